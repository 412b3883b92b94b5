package nodes

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// ExtractReply picks the customer-facing reply out of the turn transcript:
// the last assistant message with content, else the last message of any
// role with content, else a stringified fallback so the customer never gets
// an empty reply.
func ExtractReply(st *GraphState) (*GraphState, error) {
	for i := len(st.Transcript) - 1; i >= 0; i-- {
		msg := st.Transcript[i]
		if msg.Role == schema.Assistant && strings.TrimSpace(msg.Content) != "" {
			st.Reply = strings.TrimSpace(msg.Content)
			return st, nil
		}
	}
	for i := len(st.Transcript) - 1; i >= 0; i-- {
		if content := strings.TrimSpace(st.Transcript[i].Content); content != "" {
			st.Reply = content
			return st, nil
		}
	}
	st.Reply = fmt.Sprintf("%v", st.Transcript)
	return st, nil
}
