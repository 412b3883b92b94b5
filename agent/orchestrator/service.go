package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	nodex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/nodes"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

var (
	ErrInvalidMessage  = nodex.ErrInvalidMessage
	ErrInactiveSession = nodex.ErrInactiveSession
	ErrSessionNotFound = statex.ErrStateNotFound
)

// Greeting opens every new session.
const Greeting = "Namaste! I'm Vittam, your personal loan assistant from Tata Capital! Whether it's a wedding, travel, medical needs, or anything else, I'm here to help you get the funds you need quickly. How can I help you today?"

// defaultTurnTimeout caps one conversation turn end to end.
const defaultTurnTimeout = 30 * time.Second

// EventPublisher receives domain events. Publishing is best effort; a
// failure never fails the turn that raised the event.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

type Orchestrator struct {
	store     statex.Store
	history   statex.HistoryStore
	responder contractx.Responder
	publisher EventPublisher

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	turnTimeout time.Duration
	now         func() time.Time
	newID       func() string
}

type Config struct {
	TurnTimeout time.Duration
}

func New(
	store statex.Store,
	history statex.HistoryStore,
	responder contractx.Responder,
	publisher EventPublisher,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if history == nil {
		return nil, errors.New("history store is required")
	}
	if responder == nil {
		return nil, errors.New("master responder is required")
	}

	timeout := cfg.TurnTimeout
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}

	o := &Orchestrator{
		store:       store,
		history:     history,
		responder:   responder,
		publisher:   publisher,
		turnTimeout: timeout,
		now:         time.Now,
		newID:       uuid.NewString,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one conversation turn. With an empty session id a new
// session is started implicitly.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, text string) (contractx.TurnResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return contractx.TurnResult{}, err
	}

	if out.EnteredSanction {
		o.publishSanctioned(ctx, out.SessionID)
	}

	return contractx.TurnResult{
		Message:   out.Reply,
		Inputs:    out.Inputs,
		SessionID: out.SessionID,
	}, nil
}

// StartSession creates a fresh session and returns its id with the opening
// greeting. The greeting is logged so history replays include it.
func (o *Orchestrator) StartSession(ctx context.Context) (contractx.TurnResult, error) {
	sessionID := o.newID()
	sess := statex.NewSessionState(sessionID, o.now())
	if err := o.store.Save(ctx, sess); err != nil {
		return contractx.TurnResult{}, err
	}
	if err := o.history.Append(ctx, sessionID, "assistant", Greeting, string(contractx.AgentTypeMaster)); err != nil {
		return contractx.TurnResult{}, err
	}

	log.Info().Str("session_id", sessionID).Msg("session started")
	return contractx.TurnResult{
		Message:   Greeting,
		SessionID: sessionID,
	}, nil
}

// History returns the full conversation log of a session.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]statex.StoredMessage, error) {
	if _, err := o.store.Load(ctx, sessionID); err != nil {
		return nil, err
	}
	return o.history.List(ctx, sessionID)
}

// EndSession deactivates a session. Conversation data is retained for
// audit; only the active flag flips.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	if _, err := o.store.Load(ctx, sessionID); err != nil {
		return err
	}
	return o.store.Deactivate(ctx, sessionID)
}

func (o *Orchestrator) publishSanctioned(ctx context.Context, sessionID string) {
	if o.publisher == nil {
		return
	}
	payload := map[string]any{
		"session_id":    sessionID,
		"sanctioned_at": o.now().UTC().Format(time.RFC3339),
	}
	if err := o.publisher.Publish(ctx, "loan.sanctioned", payload); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("sanction event publish failed")
	}
}
