package tool

import (
	"context"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/rules"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

func executeUnderwritingTool(ctx context.Context, deps Deps, sess *statex.SessionState, tool string, args map[string]any) (contractx.ToolResult, error) {
	switch tool {
	case ToolCreditScore:
		cust := sess.Customer
		if cust == nil {
			return contractx.ToolResult{Tool: tool, Error: "customer is not verified yet; complete verification first"}, nil
		}
		return contractx.ToolResult{
			Tool: tool,
			Result: map[string]any{
				"customer_id":  cust.CustomerID,
				"credit_score": cust.CreditScore,
				"tier":         string(rules.CreditTier(cust.CreditScore)),
			},
		}, nil

	case ToolPreapprovedLimit:
		cust := sess.Customer
		if cust == nil {
			return contractx.ToolResult{Tool: tool, Error: "customer is not verified yet; complete verification first"}, nil
		}
		return contractx.ToolResult{
			Tool: tool,
			Result: map[string]any{
				"customer_id":       cust.CustomerID,
				"preapproved_limit": cust.PreapprovedLimit,
				"max_considerable":  2 * cust.PreapprovedLimit,
			},
		}, nil

	case ToolCheckEligibility:
		return checkEligibility(ctx, deps, sess, tool, args)

	case ToolCalculateEMI:
		principal := floatArg(args, "principal")
		tenure := intArg(args, "tenure_months")
		rate := floatArg(args, "annual_rate_pct")
		if rate <= 0 && sess.Customer != nil {
			rate, _, _, _ = priceFor(ctx, deps, sess.Customer.CreditScore, principal, tenure)
		}
		emi, err := rules.EMI(principal, tenure, rate)
		if err != nil {
			return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
		}
		return contractx.ToolResult{
			Tool: tool,
			Result: map[string]any{
				"principal":       principal,
				"tenure_months":   tenure,
				"annual_rate_pct": rate,
				"emi":             round2(emi.EMI),
				"total_amount":    round2(emi.TotalAmount),
				"total_interest":  round2(emi.TotalInterest),
			},
		}, nil

	case ToolVerifySalarySlip:
		return verifySalarySlip(ctx, deps, sess, tool)
	}
	return contractx.ToolResult{Tool: tool, Error: "unknown underwriting tool"}, nil
}

// checkEligibility runs the rule engine and moves the session along:
// outright approval goes straight to sanction, a conditional decision holds
// the session in underwriting pending income proof, and rejection leaves
// the stage untouched.
func checkEligibility(ctx context.Context, deps Deps, sess *statex.SessionState, tool string, args map[string]any) (contractx.ToolResult, error) {
	cust := sess.Customer
	if cust == nil {
		return contractx.ToolResult{Tool: tool, Error: "customer is not verified yet; complete verification first"}, nil
	}

	amount := floatArg(args, "loan_amount")
	if amount <= 0 {
		amount = sess.LoanAmount
	}
	if amount <= 0 {
		return contractx.ToolResult{Tool: tool, Error: "loan_amount is required"}, nil
	}
	tenure := intArg(args, "tenure_months")
	if tenure <= 0 {
		tenure = sess.TenureMonths
	}
	if tenure <= 0 {
		tenure = statex.DefaultTenureMonths
	}

	rate, _, _, _ := priceFor(ctx, deps, cust.CreditScore, amount, tenure)
	decision, err := rules.Eligibility(rules.DecisionInput{
		CreditScore:        cust.CreditScore,
		PreapprovedLimit:   cust.PreapprovedLimit,
		MonthlySalary:      cust.MonthlySalary,
		RequestedAmount:    amount,
		TenureMonths:       tenure,
		AnnualRatePct:      rate,
		SalarySlipVerified: sess.SalarySlipVerified,
	})
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}

	switch decision.Status {
	case rules.StatusApproved:
		sess.LoanAmount = amount
		sess.TenureMonths = tenure
		sess.Advance(statex.StageSanction)
	case rules.StatusConditional:
		sess.LoanAmount = amount
		sess.TenureMonths = tenure
		sess.Advance(statex.StageUnderwriting)
	case rules.StatusRejected:
		// rejection is an outcome, not a stage
	}

	result := map[string]any{
		"status":        string(decision.Status),
		"reason":        decision.Reason,
		"loan_amount":   amount,
		"tenure_months": tenure,
	}
	if decision.EMI > 0 {
		result["emi"] = round2(decision.EMI)
	}
	if len(decision.RequiredDocs) > 0 {
		result["required_documents"] = decision.RequiredDocs
	}
	if decision.Remediation != "" {
		result["remediation"] = decision.Remediation
	}
	return contractx.ToolResult{Tool: tool, Result: result}, nil
}

// verifySalarySlip accepts the upload, then re-runs the pending conditional
// decision; a clean pass promotes the session to sanction.
func verifySalarySlip(ctx context.Context, deps Deps, sess *statex.SessionState, tool string) (contractx.ToolResult, error) {
	cust := sess.Customer
	if cust == nil {
		return contractx.ToolResult{Tool: tool, Error: "customer is not verified yet; complete verification first"}, nil
	}
	sess.SalarySlipVerified = true

	result := map[string]any{
		"verified": true,
		"message":  "Salary slip verified.",
	}
	if sess.LoanAmount > 0 {
		rate, _, _, _ := priceFor(ctx, deps, cust.CreditScore, sess.LoanAmount, sess.TenureMonths)
		decision, err := rules.Eligibility(rules.DecisionInput{
			CreditScore:        cust.CreditScore,
			PreapprovedLimit:   cust.PreapprovedLimit,
			MonthlySalary:      cust.MonthlySalary,
			RequestedAmount:    sess.LoanAmount,
			TenureMonths:       sess.TenureMonths,
			AnnualRatePct:      rate,
			SalarySlipVerified: true,
		})
		if err != nil {
			return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
		}
		result["eligibility"] = map[string]any{
			"status": string(decision.Status),
			"reason": decision.Reason,
		}
		if decision.Status == rules.StatusApproved {
			sess.Advance(statex.StageSanction)
			result["message"] = "Salary slip verified and the loan is fully approved."
		}
	}
	return contractx.ToolResult{Tool: tool, Result: result}, nil
}
