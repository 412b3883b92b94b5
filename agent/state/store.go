package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// StoredMessage is one entry of the append-only conversation log.
type StoredMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	AgentType string `json:"agent_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

var ErrStateNotFound = errors.New("session state not found")

// Store is the session persistence contract used by the orchestrator.
type Store interface {
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	Save(ctx context.Context, st *SessionState) error
	// Deactivate acknowledges the end of a session without removing data.
	Deactivate(ctx context.Context, sessionID string) error
}

// HistoryStore is the append-only conversation log.
type HistoryStore interface {
	Append(ctx context.Context, sessionID, role, content, agentType string) error
	List(ctx context.Context, sessionID string) ([]StoredMessage, error)
	Recent(ctx context.Context, sessionID string, n int) ([]StoredMessage, error)
}

// NewDB opens a Postgres connection pool through bun.
func NewDB(dsn string) (*bun.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

type sessionMetadata struct {
	CustomerID         string            `json:"customer_id,omitempty"`
	LoanAmount         float64           `json:"loan_amount,omitempty"`
	TenureMonths       int               `json:"tenure_months,omitempty"`
	ConversationStage  string            `json:"conversation_stage,omitempty"`
	CustomerData       *CustomerSnapshot `json:"customer_data,omitempty"`
	SalarySlipVerified bool              `json:"salary_slip_verified,omitempty"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        int64           `bun:"id,pk,autoincrement"`
	SessionID string          `bun:"session_id,notnull,unique"`
	CreatedAt time.Time       `bun:"created_at,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,notnull"`
	IsActive  bool            `bun:"is_active,notnull"`
	Metadata  sessionMetadata `bun:"metadata,type:jsonb"`
}

type conversationRow struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`

	ID        int64     `bun:"id,pk,autoincrement"`
	SessionID string    `bun:"session_id,notnull"`
	Role      string    `bun:"role,notnull"`
	Content   string    `bun:"content,notnull"`
	AgentType string    `bun:"agent_type,nullzero"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// PostgresStore persists SessionState rows with metadata as JSONB.
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewPostgresStore(db *bun.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

func (p *PostgresStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	var row sessionRow
	err := p.db.NewSelect().
		Model(&row).
		Where("session_id = ?", sessionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	st := rowToState(&row)
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session state loaded from store: %w", err)
	}
	return st, nil
}

func (p *PostgresStore) Save(ctx context.Context, st *SessionState) error {
	if st == nil {
		return ErrNilSessionState
	}
	if err := st.Validate(); err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = p.now().UTC()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = st.UpdatedAt
	}

	row := stateToRow(st)
	_, err := p.db.NewInsert().
		Model(row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at").
		Set("is_active = EXCLUDED.is_active").
		Set("metadata = EXCLUDED.metadata").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Deactivate(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	_, err := p.db.NewUpdate().
		Model((*sessionRow)(nil)).
		Set("is_active = ?", false).
		Set("updated_at = ?", p.now().UTC()).
		Where("session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

func rowToState(row *sessionRow) *SessionState {
	tenure := row.Metadata.TenureMonths
	if tenure <= 0 {
		tenure = DefaultTenureMonths
	}
	stage := Stage(row.Metadata.ConversationStage)
	if !stage.Valid() {
		stage = StageInitial
	}
	return &SessionState{
		SessionID:          row.SessionID,
		Stage:              stage,
		CustomerID:         row.Metadata.CustomerID,
		LoanAmount:         row.Metadata.LoanAmount,
		TenureMonths:       tenure,
		Customer:           cloneSnapshot(row.Metadata.CustomerData),
		SalarySlipVerified: row.Metadata.SalarySlipVerified,
		Active:             row.IsActive,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func stateToRow(st *SessionState) *sessionRow {
	return &sessionRow{
		SessionID: st.SessionID,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
		IsActive:  st.Active,
		Metadata: sessionMetadata{
			CustomerID:         st.CustomerID,
			LoanAmount:         st.LoanAmount,
			TenureMonths:       st.TenureMonths,
			ConversationStage:  string(st.Stage),
			CustomerData:       cloneSnapshot(st.Customer),
			SalarySlipVerified: st.SalarySlipVerified,
		},
	}
}

// PostgresHistory appends and reads the ordered conversation log. Messages
// are never edited or deleted.
type PostgresHistory struct {
	db  *bun.DB
	now func() time.Time
}

func NewPostgresHistory(db *bun.DB) (*PostgresHistory, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresHistory{db: db, now: time.Now}, nil
}

func (p *PostgresHistory) Append(ctx context.Context, sessionID, role, content, agentType string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if strings.TrimSpace(content) == "" {
		return errors.New("message content is empty")
	}
	row := &conversationRow{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		AgentType: agentType,
		CreatedAt: p.now().UTC(),
	}
	if _, err := p.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (p *PostgresHistory) List(ctx context.Context, sessionID string) ([]StoredMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	var rows []conversationRow
	err := p.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return rowsToMessages(rows), nil
}

func (p *PostgresHistory) Recent(ctx context.Context, sessionID string, n int) ([]StoredMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	if n <= 0 {
		return nil, nil
	}
	var rows []conversationRow
	err := p.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("created_at DESC", "id DESC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	// newest-first from the query; return oldest-first
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rowsToMessages(rows), nil
}

func rowsToMessages(rows []conversationRow) []StoredMessage {
	msgs := make([]StoredMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, StoredMessage{
			Role:      row.Role,
			Content:   row.Content,
			AgentType: row.AgentType,
			Timestamp: row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return msgs
}
