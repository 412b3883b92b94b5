package nodes

import (
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/docdetect"
)

// DetectDocuments scans the final reply for document upload requests so the
// client can render structured upload slots.
func DetectDocuments(st *GraphState) (*GraphState, error) {
	st.Inputs = docdetect.Detect(st.Reply)
	return st, nil
}
