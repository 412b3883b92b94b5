package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// OfferTemplate is one priced loan product from the catalog.
type OfferTemplate struct {
	bun.BaseModel `bun:"table:offer_templates,alias:o"`

	ID               int64     `bun:"id,pk,autoincrement" json:"id"`
	Name             string    `bun:"name,notnull" json:"name"`
	MinCreditScore   int       `bun:"min_credit_score,notnull" json:"min_credit_score"`
	MaxCreditScore   int       `bun:"max_credit_score,notnull" json:"max_credit_score"`
	MinAmount        float64   `bun:"min_amount,notnull" json:"min_amount"`
	MaxAmount        float64   `bun:"max_amount,notnull" json:"max_amount"`
	MinTenureMonths  int       `bun:"min_tenure_months,notnull" json:"min_tenure_months"`
	MaxTenureMonths  int       `bun:"max_tenure_months,notnull" json:"max_tenure_months"`
	BaseRatePct      float64   `bun:"base_rate_pct,notnull" json:"base_rate_pct"`
	ProcessingFeePct float64   `bun:"processing_fee_pct,notnull" json:"processing_fee_pct"`
	Active           bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"created_at"`
}

func (o *OfferTemplate) matches(score int, amount float64, tenureMonths int) bool {
	if !o.Active || score < o.MinCreditScore {
		return false
	}
	// MaxCreditScore 0 means the band is open-ended upwards
	if o.MaxCreditScore > 0 && score > o.MaxCreditScore {
		return false
	}
	if amount < o.MinAmount || amount > o.MaxAmount {
		return false
	}
	return tenureMonths >= o.MinTenureMonths && tenureMonths <= o.MaxTenureMonths
}

// OfferStore serves the active offer catalog.
type OfferStore interface {
	Active(ctx context.Context) ([]OfferTemplate, error)
}

// ErrNoOffer signals that the catalog holds no match; callers fall back to
// tier pricing.
var ErrNoOffer = errors.New("no matching offer")

// SelectOffer picks the cheapest active template the request qualifies for.
func SelectOffer(offers []OfferTemplate, score int, amount float64, tenureMonths int) (*OfferTemplate, error) {
	var best *OfferTemplate
	for i := range offers {
		o := &offers[i]
		if !o.matches(score, amount, tenureMonths) {
			continue
		}
		if best == nil || o.BaseRatePct < best.BaseRatePct {
			best = o
		}
	}
	if best == nil {
		return nil, ErrNoOffer
	}
	return best, nil
}

// PostgresOfferStore reads the catalog out of Postgres.
type PostgresOfferStore struct {
	db *bun.DB
}

func NewPostgresOfferStore(db *bun.DB) (*PostgresOfferStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresOfferStore{db: db}, nil
}

func (p *PostgresOfferStore) Active(ctx context.Context) ([]OfferTemplate, error) {
	var offers []OfferTemplate
	err := p.db.NewSelect().
		Model(&offers).
		Where("is_active = ?", true).
		Order("base_rate_pct ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active offers: %w", err)
	}
	return offers, nil
}
