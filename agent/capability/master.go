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
	llmx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/llm"
	promptx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/prompt"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

// maxRouteRounds bounds the master's route/respond loop within one turn.
const maxRouteRounds = 6

const (
	RouteSales        = "route_to_sales"
	RouteVerification = "route_to_verification"
	RouteUnderwriting = "route_to_underwriting"
	RouteSanction     = "route_to_sanction"
)

var routeTargets = map[string]contractx.AgentType{
	RouteSales:        contractx.AgentTypeSales,
	RouteVerification: contractx.AgentTypeVerification,
	RouteUnderwriting: contractx.AgentTypeUnderwriting,
	RouteSanction:     contractx.AgentTypeSanction,
}

// Master routes each customer turn to exactly one or more specialists and
// composes the final reply from their answers.
type Master struct {
	chatModel    einomodel.ToolCallingChatModel
	dispatcher   contractx.Dispatcher
	systemPrompt string
}

func NewMaster(ctx context.Context, cfg llmx.Config, dispatcher contractx.Dispatcher) (*Master, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher is required", contractx.ErrValidation)
	}

	modelCfg := cfg.OpenRouterFor(contractx.AgentTypeMaster)
	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create master model: %v", contractx.ErrModelInvoke, err)
	}
	bound, err := chatModel.WithTools(routeToolInfos())
	if err != nil {
		return nil, fmt.Errorf("%w: bind route tools: %v", contractx.ErrModelInvoke, err)
	}

	return &Master{
		chatModel:    bound,
		dispatcher:   dispatcher,
		systemPrompt: promptx.LoadPromptSet().Master,
	}, nil
}

// Respond runs one master turn and returns the messages the turn produced,
// final assistant reply last. The caller extracts and persists the reply.
func (m *Master) Respond(
	ctx context.Context,
	session *statex.SessionState,
	contextSummary string,
	history []*schema.Message,
) ([]*schema.Message, error) {
	if session == nil {
		return nil, statex.ErrNilSessionState
	}

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(m.systemPrompt))
	messages = append(messages, history...)

	var transcript []*schema.Message
	for round := 0; round < maxRouteRounds; round++ {
		msg, err := m.chatModel.Generate(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("%w: master generate: %v", contractx.ErrModelInvoke, err)
		}
		if msg == nil {
			return nil, fmt.Errorf("%w: master returned no message", contractx.ErrSchemaViolation)
		}

		messages = append(messages, msg)
		transcript = append(transcript, msg)
		if len(msg.ToolCalls) == 0 {
			return transcript, nil
		}

		for _, call := range msg.ToolCalls {
			answer := m.route(ctx, session, contextSummary, call)
			toolMsg := schema.ToolMessage(answer, call.ID)
			messages = append(messages, toolMsg)
			transcript = append(transcript, toolMsg)
		}
	}

	return transcript, fmt.Errorf("%w: master exceeded %d route rounds", contractx.ErrModelInvoke, maxRouteRounds)
}

// route dispatches one routing tool call. Routing faults degrade to error
// text in the tool message so the master can still answer the customer.
func (m *Master) route(ctx context.Context, session *statex.SessionState, contextSummary string, call schema.ToolCall) string {
	name := strings.TrimSpace(call.Function.Name)
	target, ok := routeTargets[name]
	if !ok {
		log.Warn().Str("tool", name).Msg("master called an unknown route")
		return fmt.Sprintf("Error: unknown route %q", name)
	}

	var args struct {
		Query string `json:"query"`
	}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("invalid route arguments")
			return fmt.Sprintf("Error: invalid arguments for route %q", name)
		}
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return fmt.Sprintf("Error: route %q needs a query", name)
	}

	log.Info().
		Str("session_id", session.SessionID).
		Str("agent", string(target)).
		Msg("routing to capability")
	return m.dispatcher.Dispatch(ctx, target, contractx.CapabilityRequest{
		Query:          query,
		ContextSummary: contextSummary,
		Session:        session,
	})
}

func routeToolInfos() []*schema.ToolInfo {
	route := func(name, desc string) *schema.ToolInfo {
		return &schema.ToolInfo{
			Name: name,
			Desc: desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "The customer's request, rephrased for the specialist", Required: true},
			}),
		}
	}
	return []*schema.ToolInfo{
		route(RouteSales, "Route to the sales specialist for offers, rates, objections, and general loan interest."),
		route(RouteVerification, "Route to the verification specialist for PAN, phone, OTP, and KYC."),
		route(RouteUnderwriting, "Route to the underwriting specialist for eligibility, credit score, EMI, and salary slips."),
		route(RouteSanction, "Route to the sanction specialist for sanction letters, final terms, and disbursement."),
	}
}
