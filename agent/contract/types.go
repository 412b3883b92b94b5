package contract

type AgentType string

const (
	AgentTypeMaster       AgentType = "master"
	AgentTypeSales        AgentType = "sales"
	AgentTypeVerification AgentType = "verification"
	AgentTypeUnderwriting AgentType = "underwriting"
	AgentTypeSanction     AgentType = "sanction"
)

// WorkerAgentTypes lists the four bounded capabilities the master responder
// can route to. The master itself is never routable.
var WorkerAgentTypes = []AgentType{
	AgentTypeSales,
	AgentTypeVerification,
	AgentTypeUnderwriting,
	AgentTypeSanction,
}

func (a AgentType) IsWorker() bool {
	switch a {
	case AgentTypeSales, AgentTypeVerification, AgentTypeUnderwriting, AgentTypeSanction:
		return true
	default:
		return false
	}
}

// DocumentRequirement is one upload the assistant asked the customer for.
// Name and Description come from a static catalog, never from the matched
// text itself.
type DocumentRequirement struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TurnResult is what one completed conversation turn hands back to the
// transport layer.
type TurnResult struct {
	Message   string                `json:"message"`
	Inputs    []DocumentRequirement `json:"inputs"`
	SessionID string                `json:"session_id"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
