package nodes

import (
	"context"

	"github.com/cloudwego/eino/schema"

	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

// AppendUserMessage persists the customer's message before the model runs,
// so the log keeps it even when the turn later fails.
func AppendUserMessage(ctx context.Context, st *GraphState, history statex.HistoryStore) (*GraphState, error) {
	if err := history.Append(ctx, st.SessionID, roleUser, st.Text, ""); err != nil {
		return nil, err
	}
	st.History = append(st.History, schema.UserMessage(st.Text))
	return st, nil
}
