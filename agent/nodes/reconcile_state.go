package nodes

import (
	"context"
	"errors"

	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

// ReconcileState merges the turn's in-memory session against a fresh reload
// and persists the result. Tool executors mutate the session only in
// memory, so fields this turn changed keep their in-memory value; untouched
// fields absorb whatever a concurrent writer stored meanwhile.
func ReconcileState(ctx context.Context, st *GraphState, store statex.Store) (*GraphState, error) {
	st.Session.Touch(st.Now)

	reloaded, err := store.Load(ctx, st.SessionID)
	if err != nil && !errors.Is(err, statex.ErrStateNotFound) {
		return nil, err
	}

	merged := statex.MergeTurn(st.Snapshot, st.Session, reloaded)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := store.Save(ctx, merged); err != nil {
		return nil, err
	}

	st.Session = merged
	return st, nil
}
