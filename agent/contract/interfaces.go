package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"

	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

// CapabilityRequest is the bounded view a capability receives: the current
// user query, a compact context summary, and the per-turn session object.
// Capabilities never see the full shared history.
type CapabilityRequest struct {
	Query          string
	ContextSummary string
	Session        *statex.SessionState
}

// Capability is one of the four specialized response contexts.
type Capability interface {
	Invoke(ctx context.Context, req CapabilityRequest) (string, error)
}

type Registry interface {
	Sales() Capability
	Verification() Capability
	Underwriting() Capability
	Sanction() Capability
}

// Dispatcher makes a capability safely invocable: any fault inside the call
// is converted to a plain textual error message, never propagated.
type Dispatcher interface {
	Dispatch(ctx context.Context, agent AgentType, req CapabilityRequest) string
}

// Responder is the outer AI collaborator. It receives the full prior history
// and the per-turn session, decides which capabilities to call, and returns
// the messages produced during this turn (assistant and tool messages, in
// order).
type Responder interface {
	Respond(ctx context.Context, session *statex.SessionState, contextSummary string, history []*schema.Message) ([]*schema.Message, error)
}
