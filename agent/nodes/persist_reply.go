package nodes

import (
	"context"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

// PersistReply appends the assistant's reply to the conversation log.
func PersistReply(ctx context.Context, st *GraphState, history statex.HistoryStore) (*GraphState, error) {
	if err := history.Append(ctx, st.SessionID, roleAssistant, st.Reply, string(contractx.AgentTypeMaster)); err != nil {
		return nil, err
	}
	return st, nil
}
