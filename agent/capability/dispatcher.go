package capability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
)

type dispatcherImpl struct {
	registry contractx.Registry
}

// NewDispatcher wraps a registry with fault isolation: a failing capability
// becomes a readable error text in the conversation instead of a failed
// turn.
func NewDispatcher(registry contractx.Registry) (contractx.Dispatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: registry is required", contractx.ErrValidation)
	}
	return &dispatcherImpl{registry: registry}, nil
}

func (d *dispatcherImpl) Dispatch(ctx context.Context, agentType contractx.AgentType, req contractx.CapabilityRequest) string {
	c := d.capabilityFor(agentType)
	if c == nil {
		log.Error().Str("agent", string(agentType)).Msg("dispatch to unknown capability")
		return fmt.Sprintf("Error in %s Agent: unknown capability", displayName(agentType))
	}

	answer, err := c.Invoke(ctx, req)
	if err != nil {
		log.Error().Err(err).
			Str("agent", string(agentType)).
			Str("session_id", sessionID(req)).
			Msg("capability invocation failed")
		return fmt.Sprintf("Error in %s Agent: %v", displayName(agentType), err)
	}
	return answer
}

func (d *dispatcherImpl) capabilityFor(agentType contractx.AgentType) contractx.Capability {
	switch agentType {
	case contractx.AgentTypeSales:
		return d.registry.Sales()
	case contractx.AgentTypeVerification:
		return d.registry.Verification()
	case contractx.AgentTypeUnderwriting:
		return d.registry.Underwriting()
	case contractx.AgentTypeSanction:
		return d.registry.Sanction()
	default:
		return nil
	}
}

func displayName(agentType contractx.AgentType) string {
	switch agentType {
	case contractx.AgentTypeSales:
		return "Sales"
	case contractx.AgentTypeVerification:
		return "Verification"
	case contractx.AgentTypeUnderwriting:
		return "Underwriting"
	case contractx.AgentTypeSanction:
		return "Sanction"
	default:
		return string(agentType)
	}
}

func sessionID(req contractx.CapabilityRequest) string {
	if req.Session == nil {
		return ""
	}
	return req.Session.SessionID
}
