package kyc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

type customerRow struct {
	bun.BaseModel `bun:"table:customers,alias:cu"`

	ID               int64   `bun:"id,pk,autoincrement"`
	CustomerID       string  `bun:"customer_id,notnull,unique"`
	Name             string  `bun:"name,notnull"`
	DOB              string  `bun:"dob,nullzero"`
	Address          string  `bun:"address,nullzero"`
	PAN              string  `bun:"pan,notnull,unique"`
	Phone            string  `bun:"phone,nullzero"`
	CreditScore      int     `bun:"credit_score,notnull"`
	PreapprovedLimit float64 `bun:"preapproved_limit,notnull"`
	MonthlySalary    float64 `bun:"monthly_salary,notnull"`
}

// PostgresStore serves the customer book out of Postgres.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(db *bun.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) ByPAN(ctx context.Context, pan string) (*Customer, error) {
	return p.one(ctx, "pan = ?", strings.ToUpper(pan))
}

func (p *PostgresStore) ByPhone(ctx context.Context, phone string) (*Customer, error) {
	return p.one(ctx, "phone = ?", phone)
}

func (p *PostgresStore) ByID(ctx context.Context, customerID string) (*Customer, error) {
	return p.one(ctx, "customer_id = ?", customerID)
}

func (p *PostgresStore) one(ctx context.Context, where string, arg any) (*Customer, error) {
	var row customerRow
	err := p.db.NewSelect().Model(&row).Where(where, arg).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	return &Customer{
		CustomerID:       row.CustomerID,
		Name:             row.Name,
		DOB:              row.DOB,
		Address:          row.Address,
		PAN:              row.PAN,
		Phone:            row.Phone,
		CreditScore:      row.CreditScore,
		PreapprovedLimit: row.PreapprovedLimit,
		MonthlySalary:    row.MonthlySalary,
	}, nil
}
