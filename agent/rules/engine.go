package rules

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MinCreditScore is the hard floor below which no loan is offered.
	MinCreditScore = 700
	// ExcellentScore marks the better pricing tier.
	ExcellentScore = 750

	// DefaultProcessingFeePct applies when no offer overrides it.
	DefaultProcessingFeePct = 3.5

	// SupportHelpline is quoted verbatim in rejection remediation.
	SupportHelpline = "1860 267 6060"
)

// Tier is the pricing band derived from the credit score.
type Tier string

const (
	TierExcellent  Tier = "excellent"
	TierGood       Tier = "good"
	TierIneligible Tier = "ineligible"
)

func CreditTier(score int) Tier {
	switch {
	case score >= ExcellentScore:
		return TierExcellent
	case score >= MinCreditScore:
		return TierGood
	default:
		return TierIneligible
	}
}

// TierRate is the fallback annual interest rate when no offer template
// matches the request.
func TierRate(tier Tier) (float64, error) {
	switch tier {
	case TierExcellent:
		return 10.99, nil
	case TierGood:
		return 12.5, nil
	default:
		return 0, fmt.Errorf("no rate for tier %q", tier)
	}
}

// DecisionStatus is the outcome of an eligibility evaluation.
type DecisionStatus string

const (
	StatusApproved    DecisionStatus = "approved"
	StatusConditional DecisionStatus = "conditional"
	StatusRejected    DecisionStatus = "rejected"
)

// DecisionInput carries everything the eligibility rules read. The engine is
// pure: it never touches the session or the database.
type DecisionInput struct {
	CreditScore        int
	PreapprovedLimit   float64
	MonthlySalary      float64
	RequestedAmount    float64
	TenureMonths       int
	AnnualRatePct      float64
	SalarySlipVerified bool
}

// Decision is the full eligibility verdict for one request.
type Decision struct {
	Status       DecisionStatus
	Reason       string
	EMI          float64
	RequiredDocs []string
	Remediation  string
}

var (
	ErrInvalidPrincipal = errors.New("principal must be positive")
	ErrInvalidTenure    = errors.New("tenure must be positive")
	ErrNegativeRate     = errors.New("annual rate cannot be negative")
)

var (
	baseDocs = []string{"identity_proof", "address_proof", "bank_statement"}
	// conditional approvals above the pre-approved limit also need income proof
	incomeDocs = []string{"salary_slips", "employment_certificate"}
)

// Eligibility evaluates one loan request against the credit policy.
//
// Requests up to the pre-approved limit are approved outright. Requests up
// to twice the limit are conditionally approved pending income proof; the
// condition clears only when the salary slip is verified and the EMI stays
// within half the monthly salary. Anything above twice the limit, or any
// score below the floor, is rejected. Rejection never carries a stage
// change; that is the caller's concern.
func Eligibility(in DecisionInput) (Decision, error) {
	if in.CreditScore < MinCreditScore {
		return Decision{
			Status:      StatusRejected,
			Reason:      fmt.Sprintf("credit score %d is below the minimum of %d", in.CreditScore, MinCreditScore),
			Remediation: fmt.Sprintf("Please contact our support helpline %s to discuss options for improving your credit profile.", SupportHelpline),
		}, nil
	}

	rate := in.AnnualRatePct
	if rate <= 0 {
		var err error
		rate, err = TierRate(CreditTier(in.CreditScore))
		if err != nil {
			return Decision{}, err
		}
	}
	emi, err := EMI(in.RequestedAmount, in.TenureMonths, rate)
	if err != nil {
		return Decision{}, err
	}

	switch {
	case in.RequestedAmount <= in.PreapprovedLimit:
		return Decision{
			Status:       StatusApproved,
			Reason:       "requested amount is within the pre-approved limit",
			EMI:          emi.EMI,
			RequiredDocs: append([]string(nil), baseDocs...),
		}, nil

	case in.RequestedAmount <= 2*in.PreapprovedLimit:
		docs := append(append([]string(nil), baseDocs...), incomeDocs...)
		if in.SalarySlipVerified && withinEMICap(emi.EMI, in.MonthlySalary) {
			return Decision{
				Status:       StatusApproved,
				Reason:       "income verified and EMI within half of monthly salary",
				EMI:          emi.EMI,
				RequiredDocs: docs,
			}, nil
		}
		if in.SalarySlipVerified {
			return Decision{
				Status:      StatusRejected,
				Reason:      fmt.Sprintf("EMI %.2f exceeds half of monthly salary %.2f", emi.EMI, in.MonthlySalary),
				EMI:         emi.EMI,
				Remediation: "Consider a longer tenure or a lower amount to bring the EMI down.",
			}, nil
		}
		return Decision{
			Status:       StatusConditional,
			Reason:       "amount exceeds the pre-approved limit; income verification required",
			EMI:          emi.EMI,
			RequiredDocs: docs,
		}, nil

	default:
		return Decision{
			Status:      StatusRejected,
			Reason:      fmt.Sprintf("requested amount %.0f exceeds twice the pre-approved limit of %.0f", in.RequestedAmount, in.PreapprovedLimit),
			Remediation: fmt.Sprintf("The maximum we can consider is %.0f.", 2*in.PreapprovedLimit),
		}, nil
	}
}

func withinEMICap(emi, monthlySalary float64) bool {
	return monthlySalary > 0 && emi <= monthlySalary/2
}

// EMIResult breaks an equated monthly installment into its components.
type EMIResult struct {
	EMI           float64
	TotalAmount   float64
	TotalInterest float64
}

// EMI computes the standard reducing-balance installment
// P*r*(1+r)^n / ((1+r)^n - 1) with r as the monthly rate. A zero rate
// degenerates to an interest-free P/n split.
func EMI(principal float64, months int, annualRatePct float64) (EMIResult, error) {
	if principal <= 0 {
		return EMIResult{}, ErrInvalidPrincipal
	}
	if months <= 0 {
		return EMIResult{}, ErrInvalidTenure
	}
	if annualRatePct < 0 {
		return EMIResult{}, ErrNegativeRate
	}

	n := float64(months)
	if annualRatePct == 0 {
		emi := principal / n
		return EMIResult{EMI: emi, TotalAmount: principal, TotalInterest: 0}, nil
	}

	r := annualRatePct / 12 / 100
	factor := math.Pow(1+r, n)
	emi := principal * r * factor / (factor - 1)
	total := emi * n
	return EMIResult{
		EMI:           emi,
		TotalAmount:   total,
		TotalInterest: total - principal,
	}, nil
}

// ProcessingFee returns the one-time fee for an amount. A non-positive pct
// falls back to the default.
func ProcessingFee(amount, pct float64) float64 {
	if pct <= 0 {
		pct = DefaultProcessingFeePct
	}
	return amount * pct / 100
}
