package tool

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/rules"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

func executeSalesTool(ctx context.Context, deps Deps, sess *statex.SessionState, tool string, args map[string]any) (contractx.ToolResult, error) {
	switch tool {
	case ToolNeedsAnalyze:
		return analyzeNeeds(tool, stringArg(args, "query")), nil
	case ToolObjectionHandle:
		return handleObjection(tool, stringArg(args, "objection_type")), nil
	case ToolOfferGenerate:
		return generateOffer(ctx, deps, sess, tool, args)
	case ToolIntentDetect:
		return detectIntent(tool, stringArg(args, "query")), nil
	case ToolOffersList:
		return listOffers(ctx, deps, sess, tool, args)
	case ToolDocumentsChecklist:
		return documentChecklist(sess, tool, args), nil
	case ToolChargesInfo:
		return chargesAndFees(tool, args), nil
	}
	return contractx.ToolResult{Tool: tool, Error: "unknown sales tool"}, nil
}

var (
	amountLakhPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:lakh|lac|l\b)`)
	amountDigitPattern = regexp.MustCompile(`(?:rs\.?|inr|₹)\s*([\d,]+)`)
	tenurePattern      = regexp.MustCompile(`(\d+)\s*(?:months?|years?)`)
)

func analyzeNeeds(tool, query string) contractx.ToolResult {
	lower := strings.ToLower(query)

	var amount float64
	if m := amountLakhPattern.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			amount = v * 100000
		}
	} else if m := amountDigitPattern.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			amount = v
		}
	}

	purpose := ""
	for keyword, label := range map[string]string{
		"wedding": "wedding", "marriage": "wedding",
		"medical": "medical", "hospital": "medical",
		"travel": "travel", "vacation": "travel",
		"education": "education", "course": "education",
		"renovation": "home_renovation", "home": "home_renovation",
		"business": "business", "debt": "debt_consolidation",
	} {
		if strings.Contains(lower, keyword) {
			purpose = label
			break
		}
	}

	urgency := "normal"
	for _, kw := range []string{"urgent", "asap", "immediately", "today", "quick"} {
		if strings.Contains(lower, kw) {
			urgency = "high"
			break
		}
	}

	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"intent": "loan_inquiry",
			"extracted_info": map[string]any{
				"loan_amount_mentioned": amount,
				"purpose":               purpose,
				"urgency":               urgency,
			},
		},
	}
}

var objectionResponses = map[string]string{
	"interest_rate": "Our rates start at just 10.99% p.a. for customers with excellent credit. Would you like me to check the exact rate you qualify for? I just need your PAN.",
	"tenure":        "Tenure is flexible from 12 to 60 months, and you can prepay after 12 months. A longer tenure brings the EMI down considerably.",
	"amount":        "Many of our customers have pre-approved limits ready. Sharing your PAN takes a minute and tells us exactly how much you qualify for.",
	"process":       "The whole process is digital: quick PAN and phone OTP verification, upload documents right here in chat, and money in your account within 24-48 hours.",
	"existing_loans": "Existing EMIs are fine as long as total EMIs stay within half your monthly salary. We can also look at consolidating them into one lower payment.",
	"documents":     "Just identity and address proof plus a recent bank statement. Most customers already have these handy, and you can upload them right here.",
	"time":          "We have had customers go from first inquiry to money in account in under 2 days. Ready to start? Share your PAN and let's check your eligibility.",
}

func handleObjection(tool, objectionType string) contractx.ToolResult {
	response, ok := objectionResponses[strings.ToLower(strings.TrimSpace(objectionType))]
	if !ok {
		response = "I understand the concern. Let me walk you through how our loan works and find the best fit for you."
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"objection_type": objectionType,
			"response":       response,
		},
	}
}

func generateOffer(ctx context.Context, deps Deps, sess *statex.SessionState, tool string, args map[string]any) (contractx.ToolResult, error) {
	amount := floatArg(args, "loan_amount")
	if amount <= 0 {
		amount = sess.LoanAmount
	}
	tenure := intArg(args, "tenure_months")
	if tenure <= 0 {
		tenure = sess.TenureMonths
	}
	if tenure <= 0 {
		tenure = statex.DefaultTenureMonths
	}

	if sess.Customer == nil {
		return contractx.ToolResult{
			Tool: tool,
			Result: map[string]any{
				"message": "To create a personalized offer with your pre-approved limit and best rate, please share your PAN number first.",
			},
		}, nil
	}
	if amount <= 0 {
		amount = sess.Customer.PreapprovedLimit
	}

	rate, feePct, offerName, err := priceFor(ctx, deps, sess.Customer.CreditScore, amount, tenure)
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}
	emi, err := rules.EMI(amount, tenure, rate)
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}

	result := map[string]any{
		"customer_name":      sess.Customer.Name,
		"loan_amount":        amount,
		"tenure_months":      tenure,
		"interest_rate_pct":  rate,
		"emi":                round2(emi.EMI),
		"total_interest":     round2(emi.TotalInterest),
		"processing_fee":     round2(rules.ProcessingFee(amount, feePct)),
		"preapproved_limit":  sess.Customer.PreapprovedLimit,
		"message":            fmt.Sprintf("Great news, %s! You qualify for ₹%.0f at %.2f%% p.a. with an EMI of just ₹%.0f/month.", sess.Customer.Name, amount, rate, emi.EMI),
	}
	if offerName != "" {
		result["offer_name"] = offerName
	}
	return contractx.ToolResult{Tool: tool, Result: result}, nil
}

// priceFor resolves the rate from the offer catalog, falling back to tier
// pricing when nothing matches.
func priceFor(ctx context.Context, deps Deps, score int, amount float64, tenure int) (rate, feePct float64, offerName string, err error) {
	if deps.Offers != nil {
		offers, oerr := deps.Offers.Active(ctx)
		if oerr == nil {
			if offer, serr := rules.SelectOffer(offers, score, amount, tenure); serr == nil {
				return offer.BaseRatePct, offer.ProcessingFeePct, offer.Name, nil
			}
		}
	}
	rate, err = rules.TierRate(rules.CreditTier(score))
	return rate, 0, "", err
}

func detectIntent(tool, query string) contractx.ToolResult {
	lower := strings.ToLower(query)

	classify := func() (string, float64) {
		for _, kw := range []string{"urgent", "asap", "immediately", "quick", "fast", "today"} {
			if strings.Contains(lower, kw) {
				return "urgent", 0.8
			}
		}
		for _, kw := range []string{"apply", "interested", "want", "need", "proceed", "how do i"} {
			if strings.Contains(lower, kw) {
				return "serious", 0.75
			}
		}
		for _, kw := range []string{"expensive", "high", "rate", "cost", "too much", "better", "cheaper"} {
			if strings.Contains(lower, kw) {
				return "objection", 0.7
			}
		}
		for _, kw := range []string{"what", "how", "tell me", "explain", "information"} {
			if strings.Contains(lower, kw) {
				return "information_seeking", 0.7
			}
		}
		return "curious", 0.6
	}
	intent, confidence := classify()

	actions := map[string]string{
		"urgent":              "Fast-track verification and approval",
		"serious":             "Provide detailed offer and start application",
		"objection":           "Address concern with persuasive response",
		"information_seeking": "Provide clear information",
		"curious":             "Engage with benefits and features",
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"intent":           intent,
			"confidence":       confidence,
			"suggested_action": actions[intent],
		},
	}
}

func listOffers(ctx context.Context, deps Deps, sess *statex.SessionState, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.Offers == nil {
		return contractx.ToolResult{Tool: tool, Error: "offer catalog is unavailable"}, nil
	}
	offers, err := deps.Offers.Active(ctx)
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}, nil
	}

	amount := floatArg(args, "loan_amount")
	tenure := intArg(args, "tenure_months")
	score := 0
	if sess.Customer != nil {
		score = sess.Customer.CreditScore
	}

	var listed []map[string]any
	for _, o := range offers {
		if score > 0 && (score < o.MinCreditScore || (o.MaxCreditScore > 0 && score > o.MaxCreditScore)) {
			continue
		}
		if amount > 0 && (amount < o.MinAmount || amount > o.MaxAmount) {
			continue
		}
		if tenure > 0 && (tenure < o.MinTenureMonths || tenure > o.MaxTenureMonths) {
			continue
		}
		listed = append(listed, map[string]any{
			"name":               o.Name,
			"base_rate_pct":      o.BaseRatePct,
			"amount_range":       fmt.Sprintf("₹%.0f - ₹%.0f", o.MinAmount, o.MaxAmount),
			"tenure_months":      fmt.Sprintf("%d - %d", o.MinTenureMonths, o.MaxTenureMonths),
			"processing_fee_pct": o.ProcessingFeePct,
		})
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"total_offers": len(listed),
			"offers":       listed,
		},
	}, nil
}

func documentChecklist(sess *statex.SessionState, tool string, args map[string]any) contractx.ToolResult {
	always := map[string]string{
		"identity_proof": "Aadhaar, Voter ID, Passport, or Driving License",
		"address_proof":  "Same as identity proof",
		"bank_statement": "Last 3 months (salary account)",
	}
	result := map[string]any{"always_required": always}

	amount := floatArg(args, "loan_amount")
	if amount <= 0 {
		amount = sess.LoanAmount
	}
	overLimit := sess.Customer != nil && amount > sess.Customer.PreapprovedLimit
	if overLimit {
		result["also_required"] = map[string]string{
			"salary_slips":           "Last 2 months",
			"employment_certificate": "Showing 1 year continuous employment",
		}
	} else {
		result["conditional"] = "Salary slips and employment certificate are only needed when the amount exceeds your pre-approved limit."
	}
	return contractx.ToolResult{Tool: tool, Result: result}
}

func chargesAndFees(tool string, args map[string]any) contractx.ToolResult {
	result := map[string]any{
		"processing_fee":       "Up to 3.5% of loan amount + GST",
		"penal_charges":        "3% per month on defaulted amount (annualized 36%)",
		"cheque_dishonour":     "₹600 per instrument per instance",
		"mandate_rejection":    "₹450",
		"statement_of_account": "₹250 + GST for physical copy (digital free)",
		"loan_cancellation":    "2% of loan amount OR ₹5,750 (whichever is higher)",
		"prepayment":           "Allowed after 12 months with applicable charges",
	}
	if amount := floatArg(args, "loan_amount"); amount > 0 {
		result["processing_fee_estimate"] = round2(rules.ProcessingFee(amount, 0))
	}
	return contractx.ToolResult{Tool: tool, Result: result}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
