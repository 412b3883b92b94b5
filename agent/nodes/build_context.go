package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

// recentContextMessages bounds how much raw conversation goes into the
// context summary handed to the specialists.
const recentContextMessages = 4

// contextSnippetLen truncates each quoted message in the summary.
const contextSnippetLen = 100

// BuildContext derives the turn's context summary from the session and the
// recent log, and converts the full history for the master's message window.
func BuildContext(ctx context.Context, st *GraphState, history statex.HistoryStore) (*GraphState, error) {
	full, err := history.List(ctx, st.SessionID)
	if err != nil {
		return nil, err
	}
	recent, err := history.Recent(ctx, st.SessionID, recentContextMessages)
	if err != nil {
		return nil, err
	}

	st.History = toSchemaMessages(full)
	st.ContextSummary = summarize(st.Session, recent)
	return st, nil
}

func summarize(sess *statex.SessionState, recent []statex.StoredMessage) string {
	var parts []string
	if sess.CustomerID != "" {
		parts = append(parts, "Customer ID: "+sess.CustomerID)
	}
	if sess.LoanAmount > 0 {
		parts = append(parts, fmt.Sprintf("Loan amount discussed: ₹%.0f", sess.LoanAmount))
	}
	if sess.TenureMonths > 0 {
		parts = append(parts, fmt.Sprintf("Tenure discussed: %d months", sess.TenureMonths))
	}
	if sess.Stage != statex.StageInitial {
		parts = append(parts, "Current stage: "+string(sess.Stage))
	}

	if len(recent) > 0 {
		var lines []string
		for _, msg := range recent {
			speaker := "Assistant"
			if msg.Role == roleUser {
				speaker = "User"
			}
			lines = append(lines, speaker+": "+snippet(msg.Content, contextSnippetLen))
		}
		parts = append(parts, "Recent conversation:\n"+strings.Join(lines, "\n"))
	}

	if len(parts) == 0 {
		return "No previous context"
	}
	return strings.Join(parts, "\n")
}

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

func toSchemaMessages(msgs []statex.StoredMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case roleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case roleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return out
}

func snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
