package capability

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	llmx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/llm"
	promptx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/prompt"
	toolx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/tool"
)

type registryImpl struct {
	sales        contractx.Capability
	verification contractx.Capability
	underwriting contractx.Capability
	sanction     contractx.Capability
}

func (r *registryImpl) Sales() contractx.Capability        { return r.sales }
func (r *registryImpl) Verification() contractx.Capability { return r.verification }
func (r *registryImpl) Underwriting() contractx.Capability { return r.underwriting }
func (r *registryImpl) Sanction() contractx.Capability     { return r.sanction }

// NewRegistry builds all four specialists, each on its own chat model so
// model and temperature can differ per capability.
func NewRegistry(ctx context.Context, cfg llmx.Config, deps toolx.Deps) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()
	reg := &registryImpl{}

	type binding struct {
		agentType contractx.AgentType
		prompt    string
		target    *contractx.Capability
	}
	bindings := []binding{
		{contractx.AgentTypeSales, prompts.Sales, &reg.sales},
		{contractx.AgentTypeVerification, prompts.Verification, &reg.verification},
		{contractx.AgentTypeUnderwriting, prompts.Underwriting, &reg.underwriting},
		{contractx.AgentTypeSanction, prompts.Sanction, &reg.sanction},
	}

	for _, s := range bindings {
		modelCfg := cfg.OpenRouterFor(s.agentType)
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create model for agent=%s: %v", contractx.ErrModelInvoke, s.agentType, err)
		}
		c, err := newCapability(s.agentType, chatModel, s.prompt, deps)
		if err != nil {
			return nil, err
		}
		*s.target = c
	}

	return reg, nil
}
