package nodes

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

// LoadOrCreateSession resolves the turn's session: an unknown or missing id
// starts a fresh session, a known id resumes it. The pre-call snapshot is
// kept for the end-of-turn reconcile.
func LoadOrCreateSession(ctx context.Context, st *GraphState, store statex.Store, newID func() string) (*GraphState, error) {
	if st.SessionID == "" {
		st.SessionID = newID()
		st.Session = statex.NewSessionState(st.SessionID, st.Now)
		st.Snapshot = st.Session.Clone()
		log.Info().Str("session_id", st.SessionID).Msg("starting new session")
		return st, nil
	}

	sess, err := store.Load(ctx, st.SessionID)
	switch {
	case errors.Is(err, statex.ErrStateNotFound):
		sess = statex.NewSessionState(st.SessionID, st.Now)
		log.Info().Str("session_id", st.SessionID).Msg("unknown session id, starting fresh")
	case err != nil:
		return nil, err
	case !sess.Active:
		return nil, ErrInactiveSession
	}

	st.Session = sess
	st.Snapshot = sess.Clone()
	return st, nil
}
