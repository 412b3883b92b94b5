// Package nodes holds the per-step functions of the conversation turn
// pipeline. Each node takes the turn state, does one thing, and hands the
// state on; the orchestrator wires them into a graph.
package nodes

import (
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

var (
	ErrInvalidMessage  = errors.New("message is empty")
	ErrInactiveSession = errors.New("session is no longer active")
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply           string
	Inputs          []contractx.DocumentRequirement
	SessionID       string
	EnteredSanction bool
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session  *statex.SessionState
	Snapshot *statex.SessionState

	ContextSummary string
	History        []*schema.Message
	Transcript     []*schema.Message

	Reply  string
	Inputs []contractx.DocumentRequirement
}

// ValidateRequest trims and checks the turn input. A missing session id is
// allowed; the load node mints one.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: strings.TrimSpace(in.SessionID),
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
