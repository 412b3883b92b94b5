package nodes

import (
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

// FinalizeTurn assembles the graph output. EnteredSanction is true only
// when this turn moved the session into the sanction stage, which the
// orchestrator uses to publish the sanction event exactly once.
func FinalizeTurn(st *GraphState) (GraphOutput, error) {
	entered := st.Session.Stage == statex.StageSanction &&
		st.Snapshot != nil && st.Snapshot.Stage != statex.StageSanction
	return GraphOutput{
		Reply:           st.Reply,
		Inputs:          st.Inputs,
		SessionID:       st.SessionID,
		EnteredSanction: entered,
	}, nil
}
