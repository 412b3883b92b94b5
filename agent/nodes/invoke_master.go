package nodes

import (
	"context"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
)

// InvokeMaster runs the master responder for this turn. The session object
// is shared with the tool executors by reference; by the time the call
// returns it carries any stage and state changes the tools made.
func InvokeMaster(ctx context.Context, st *GraphState, responder contractx.Responder) (*GraphState, error) {
	transcript, err := responder.Respond(ctx, st.Session, st.ContextSummary, st.History)
	if err != nil {
		return nil, err
	}
	st.Transcript = transcript
	return st, nil
}
