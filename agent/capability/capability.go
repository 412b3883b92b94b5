// Package capability hosts the four bounded loan specialists and the master
// responder that routes between them. Each capability is a tool-calling
// model bound to its own tool set; capabilities never see each other.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	toolx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/tool"
)

// maxToolRounds bounds the generate/execute loop of one capability
// invocation. A capability that has not produced a final answer by then is
// cut off with whatever content the last round carried.
const maxToolRounds = 4

// queryFormat frames the routed query with the turn context, mirroring the
// shape the master was prompted with.
const queryFormat = "[Conversation Context: %s]\n\nUser's current message: %s"

type capabilityImpl struct {
	agentType    contractx.AgentType
	chatModel    einomodel.ToolCallingChatModel
	executor     toolx.Executor
	allowedTools map[string]struct{}
	systemPrompt string
}

func newCapability(
	agentType contractx.AgentType,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	deps toolx.Deps,
) (*capabilityImpl, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: agent=%s", contractx.ErrPromptMissing, agentType)
	}

	infos, executor := toolx.BuildForAgent(agentType, deps)
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: no tools for agent=%s", contractx.ErrValidation, agentType)
	}

	bound, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
	}

	allowed := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		if info == nil || strings.TrimSpace(info.Name) == "" {
			continue
		}
		allowed[info.Name] = struct{}{}
	}

	return &capabilityImpl{
		agentType:    agentType,
		chatModel:    bound,
		executor:     executor,
		allowedTools: allowed,
		systemPrompt: systemPrompt,
	}, nil
}

// Invoke runs the capability's generate/execute loop for one routed query
// and returns the final conversational answer.
func (c *capabilityImpl) Invoke(ctx context.Context, req contractx.CapabilityRequest) (string, error) {
	if req.Session == nil {
		return "", fmt.Errorf("%w: capability request without session", contractx.ErrValidation)
	}

	messages := []*schema.Message{
		schema.SystemMessage(c.systemPrompt),
		schema.UserMessage(fmt.Sprintf(queryFormat, req.ContextSummary, req.Query)),
	}

	var lastContent string
	for round := 0; round < maxToolRounds; round++ {
		msg, err := c.chatModel.Generate(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("%w: agent=%s generate: %v", contractx.ErrModelInvoke, c.agentType, err)
		}
		if msg == nil {
			return "", fmt.Errorf("%w: agent=%s returned no message", contractx.ErrSchemaViolation, c.agentType)
		}

		if len(msg.ToolCalls) == 0 {
			content := strings.TrimSpace(msg.Content)
			if content == "" {
				return "", fmt.Errorf("%w: agent=%s final message is empty", contractx.ErrSchemaViolation, c.agentType)
			}
			return content, nil
		}

		lastContent = strings.TrimSpace(msg.Content)
		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			toolMsg, err := c.executeCall(ctx, req, call)
			if err != nil {
				return "", err
			}
			messages = append(messages, toolMsg)
		}
	}

	if lastContent != "" {
		return lastContent, nil
	}
	return "", fmt.Errorf("%w: agent=%s exceeded %d tool rounds", contractx.ErrModelInvoke, c.agentType, maxToolRounds)
}

func (c *capabilityImpl) executeCall(ctx context.Context, req contractx.CapabilityRequest, call schema.ToolCall) (*schema.Message, error) {
	name := strings.TrimSpace(call.Function.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: agent=%s produced a tool call without a name", contractx.ErrSchemaViolation, c.agentType)
	}
	if _, ok := c.allowedTools[name]; !ok {
		return nil, fmt.Errorf("%w: tool=%s is not allowed for agent=%s", contractx.ErrSchemaViolation, name, c.agentType)
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("%w: invalid args for tool=%s: %v", contractx.ErrSchemaViolation, name, err)
		}
	}

	result, err := c.executor(ctx, req.Session, name, args)
	if err != nil {
		return nil, fmt.Errorf("agent=%s tool=%s: %w", c.agentType, name, err)
	}
	if result.Error != "" {
		log.Warn().
			Str("agent", string(c.agentType)).
			Str("tool", name).
			Str("error", result.Error).
			Msg("tool returned an error result")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal result for tool=%s: %v", contractx.ErrValidation, name, err)
	}
	return schema.ToolMessage(string(payload), call.ID), nil
}
