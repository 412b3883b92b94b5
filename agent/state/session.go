package state

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Stage is the conversation position in the loan sales journey. Stages are
// strictly ordered and a session only ever moves forward; starting over means
// a brand-new session id.
type Stage string

const (
	StageInitial      Stage = "initial"
	StageVerification Stage = "verification"
	StageUnderwriting Stage = "underwriting"
	StageSanction     Stage = "sanction"
)

var stageRank = map[Stage]int{
	StageInitial:      0,
	StageVerification: 1,
	StageUnderwriting: 2,
	StageSanction:     3,
}

// allowedNext is the accepted transition table. Verification jumps straight
// to sanction on an instant approval; every other move is one step forward.
// Any stage back to initial happens only through a brand-new session.
var allowedNext = map[Stage]map[Stage]bool{
	StageInitial:      {StageVerification: true},
	StageVerification: {StageUnderwriting: true, StageSanction: true},
	StageUnderwriting: {StageSanction: true},
}

func (s Stage) Valid() bool {
	_, ok := stageRank[s]
	return ok
}

// CustomerSnapshot is the customer reference data captured into the session
// after identity verification succeeds.
type CustomerSnapshot struct {
	CustomerID       string  `json:"customer_id"`
	Name             string  `json:"name"`
	PAN              string  `json:"pan"`
	Phone            string  `json:"phone"`
	CreditScore      int     `json:"credit_score"`
	PreapprovedLimit float64 `json:"preapproved_limit"`
	MonthlySalary    float64 `json:"monthly_salary"`
}

const DefaultTenureMonths = 60

// SessionState is the per-session mutable object passed by reference into
// every rule-engine operation during a turn. It is never shared across
// sessions.
type SessionState struct {
	SessionID    string            `json:"session_id"`
	Stage        Stage             `json:"conversation_stage"`
	CustomerID   string            `json:"customer_id,omitempty"`
	LoanAmount   float64           `json:"loan_amount,omitempty"`
	TenureMonths int               `json:"tenure_months"`
	Customer     *CustomerSnapshot `json:"customer_data,omitempty"`

	// SalarySlipVerified gates final approval of conditional decisions.
	SalarySlipVerified bool `json:"salary_slip_verified,omitempty"`

	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
	ErrInvalidStage    = errors.New("invalid conversation stage")
)

func NewSessionState(sessionID string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:    sessionID,
		Stage:        StageInitial,
		TenureMonths: DefaultTenureMonths,
		Active:       true,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Advance moves the session to a later stage along the accepted transition
// table. Requests outside the table — holding the stage, moving backwards,
// or skipping ahead of verification — are logged and ignored, never fatal.
func (s *SessionState) Advance(to Stage) bool {
	if s == nil || !to.Valid() {
		return false
	}
	if !allowedNext[s.Stage][to] {
		log.Warn().
			Str("session_id", s.SessionID).
			Str("from", string(s.Stage)).
			Str("to", string(to)).
			Msg("ignoring out-of-order stage transition")
		return false
	}
	s.Stage = to
	return true
}

func (s *SessionState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if !s.Stage.Valid() {
		return ErrInvalidStage
	}
	return nil
}

// Clone returns a deep copy, used to snapshot the pre-call state of a turn.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Customer != nil {
		cust := *s.Customer
		cp.Customer = &cust
	}
	return &cp
}

// MergeTurn reconciles the session after a turn: fields this turn changed
// in memory keep the in-memory value, every untouched field takes the
// freshly reloaded one so writes from elsewhere survive. The merge is
// non-transactional; two concurrent turns on one session id can interleave
// here and silently drop one turn's updates. Callers must serialize turns
// per session.
func MergeTurn(snapshot, current, reloaded *SessionState) *SessionState {
	if snapshot == nil || current == nil {
		return reloaded
	}
	if reloaded == nil {
		return current.Clone()
	}

	out := reloaded.Clone()
	out.UpdatedAt = current.UpdatedAt

	if current.Stage != snapshot.Stage {
		out.Stage = current.Stage
	}
	if current.CustomerID != snapshot.CustomerID {
		out.CustomerID = current.CustomerID
	}
	if current.LoanAmount != snapshot.LoanAmount {
		out.LoanAmount = current.LoanAmount
	}
	if current.TenureMonths != snapshot.TenureMonths {
		out.TenureMonths = current.TenureMonths
	}
	if current.SalarySlipVerified != snapshot.SalarySlipVerified {
		out.SalarySlipVerified = current.SalarySlipVerified
	}
	if current.Active != snapshot.Active {
		out.Active = current.Active
	}
	if customerID(current.Customer) != customerID(snapshot.Customer) {
		out.Customer = cloneSnapshot(current.Customer)
	}
	return out
}

func customerID(c *CustomerSnapshot) string {
	if c == nil {
		return ""
	}
	return c.CustomerID
}

func cloneSnapshot(c *CustomerSnapshot) *CustomerSnapshot {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
