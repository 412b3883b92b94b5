package tool

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/rules"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

const sanctionValidityDays = 30

func executeSanctionTool(ctx context.Context, deps Deps, sess *statex.SessionState, tool string, args map[string]any) (contractx.ToolResult, error) {
	switch tool {
	case ToolSanctionLetter:
		return generateSanctionLetter(ctx, deps, sess, tool)
	case ToolLoanTerms:
		return loanTerms(ctx, deps, sess, tool)
	case ToolDisbursementInfo:
		return disbursementInfo(sess, tool), nil
	}
	return contractx.ToolResult{Tool: tool, Error: "unknown sanction tool"}, nil
}

func generateSanctionLetter(ctx context.Context, deps Deps, sess *statex.SessionState, tool string) (contractx.ToolResult, error) {
	cust := sess.Customer
	if cust == nil {
		return contractx.ToolResult{Tool: tool, Error: "customer is not verified yet; a sanction letter needs a verified identity"}, nil
	}
	if sess.LoanAmount <= 0 {
		return contractx.ToolResult{Tool: tool, Error: "no approved loan amount on this session; run the eligibility check first"}, nil
	}

	tenure := sess.TenureMonths
	if tenure <= 0 {
		tenure = statex.DefaultTenureMonths
	}
	rate, feePct, _, err := priceFor(ctx, deps, cust.CreditScore, sess.LoanAmount, tenure)
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}
	emi, err := rules.EMI(sess.LoanAmount, tenure, rate)
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}

	now := time.Now().UTC()
	sess.Advance(statex.StageSanction)
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"reference":         fmt.Sprintf("SL-%s-%s", cust.CustomerID, now.Format("20060102")),
			"customer_id":       cust.CustomerID,
			"customer_name":     cust.Name,
			"loan_amount":       sess.LoanAmount,
			"tenure_months":     tenure,
			"interest_rate_pct": rate,
			"emi":               round2(emi.EMI),
			"total_amount":      round2(emi.TotalAmount),
			"processing_fee":    round2(rules.ProcessingFee(sess.LoanAmount, feePct)),
			"issued_on":         now.Format("2006-01-02"),
			"valid_until":       now.AddDate(0, 0, sanctionValidityDays).Format("2006-01-02"),
			"message":           fmt.Sprintf("Congratulations %s! Your loan of ₹%.0f has been sanctioned.", cust.Name, sess.LoanAmount),
		},
	}, nil
}

func loanTerms(ctx context.Context, deps Deps, sess *statex.SessionState, tool string) (contractx.ToolResult, error) {
	terms := map[string]any{
		"loan_features": map[string]any{
			"interest_rate":     "10.99% p.a. onwards",
			"loan_amount_range": "₹50,000 to ₹50,00,000",
			"tenure_range":      "12 to 60 months",
			"disbursement_time": "24-48 hours after document verification",
			"collateral":        "Not required",
		},
		"conditions": []string{
			"Fixed interest rate for the entire tenure",
			"Prepayment allowed after 12 months with applicable charges",
			"EMI debited automatically via NACH/auto-debit mandate",
			"Sanction letter valid for 30 days from date of issue",
		},
	}

	if cust := sess.Customer; cust != nil && sess.LoanAmount > 0 {
		tenure := sess.TenureMonths
		if tenure <= 0 {
			tenure = statex.DefaultTenureMonths
		}
		rate, feePct, _, err := priceFor(ctx, deps, cust.CreditScore, sess.LoanAmount, tenure)
		if err == nil {
			emi, emiErr := rules.EMI(sess.LoanAmount, tenure, rate)
			if emiErr == nil {
				terms["your_loan"] = map[string]any{
					"loan_amount":       sess.LoanAmount,
					"tenure_months":     tenure,
					"interest_rate_pct": rate,
					"emi":               round2(emi.EMI),
					"processing_fee":    round2(rules.ProcessingFee(sess.LoanAmount, feePct)),
				}
			}
		}
	}
	return contractx.ToolResult{Tool: tool, Result: terms}, nil
}

func disbursementInfo(sess *statex.SessionState, tool string) contractx.ToolResult {
	result := map[string]any{
		"process": []string{
			"1. Complete KYC verification (if not done)",
			"2. Sign the loan agreement",
			"3. Provide bank account details for disbursement",
			"4. Loan amount is credited within 24-48 hours",
		},
		"support": "For assistance, contact our support team on " + rules.SupportHelpline,
	}
	if sess.Customer != nil {
		result["customer_id"] = sess.Customer.CustomerID
		result["customer_name"] = sess.Customer.Name
	}
	return contractx.ToolResult{Tool: tool, Result: result}
}
