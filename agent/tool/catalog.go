// Package tool defines the capability tool catalog and executes domain
// operations against the rule engine, the KYC service and the offer catalog.
// Tools are the only writers of session state during a turn.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/kyc"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/rules"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

const (
	ToolNeedsAnalyze       = "needs.analyze"
	ToolObjectionHandle    = "objection.handle"
	ToolOfferGenerate      = "offer.generate"
	ToolIntentDetect       = "intent.detect"
	ToolOffersList         = "offers.list"
	ToolDocumentsChecklist = "documents.checklist"
	ToolChargesInfo        = "charges.info"

	ToolVerifyDetails = "kyc.verify_details"
	ToolVerifyPAN     = "kyc.verify_pan"
	ToolVerifyPhone   = "kyc.verify_phone"
	ToolVerifyOTP     = "kyc.verify_otp"

	ToolCreditScore      = "credit.score"
	ToolPreapprovedLimit = "credit.preapproved_limit"
	ToolCheckEligibility = "loan.check_eligibility"
	ToolCalculateEMI     = "loan.calculate_emi"
	ToolVerifySalarySlip = "documents.verify_salary_slip"

	ToolSanctionLetter   = "sanction.generate_letter"
	ToolLoanTerms        = "loan.terms"
	ToolDisbursementInfo = "loan.disbursement_info"
)

// Executor runs one tool call inside a turn. Executors mutate the session
// in place; callers persist it afterwards.
type Executor func(ctx context.Context, sess *statex.SessionState, tool string, args map[string]any) (contractx.ToolResult, error)

// Deps carries the shared services every capability's tools draw on.
type Deps struct {
	KYC    *kyc.Service
	Offers rules.OfferStore
}

func BuildForAgent(agentType contractx.AgentType, deps Deps) ([]*schema.ToolInfo, Executor) {
	return InfosFor(agentType), NewExecutor(agentType, deps)
}

func NewExecutor(agentType contractx.AgentType, deps Deps) Executor {
	fallback := DefaultExecutor(agentType)
	return func(ctx context.Context, sess *statex.SessionState, tool string, args map[string]any) (contractx.ToolResult, error) {
		if !allowed(agentType, tool) {
			return fallback(ctx, sess, tool, args)
		}
		switch tool {
		case ToolNeedsAnalyze, ToolObjectionHandle, ToolOfferGenerate, ToolIntentDetect,
			ToolOffersList, ToolDocumentsChecklist, ToolChargesInfo:
			return executeSalesTool(ctx, deps, sess, tool, args)
		case ToolVerifyDetails, ToolVerifyPAN, ToolVerifyPhone, ToolVerifyOTP:
			return executeVerificationTool(ctx, deps, sess, tool, args)
		case ToolCreditScore, ToolPreapprovedLimit, ToolCheckEligibility,
			ToolCalculateEMI, ToolVerifySalarySlip:
			return executeUnderwritingTool(ctx, deps, sess, tool, args)
		case ToolSanctionLetter, ToolLoanTerms, ToolDisbursementInfo:
			return executeSanctionTool(ctx, deps, sess, tool, args)
		default:
			return fallback(ctx, sess, tool, args)
		}
	}
}

func DefaultExecutor(agentType contractx.AgentType) Executor {
	return func(_ context.Context, _ *statex.SessionState, tool string, _ map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("tool=%s is unavailable for agent=%s", tool, agentType),
		}, nil
	}
}

func allowed(agentType contractx.AgentType, tool string) bool {
	for _, info := range InfosFor(agentType) {
		if info.Name == tool {
			return true
		}
	}
	return false
}

// InfosFor returns the tool schemas a capability may bind. Tool sets are
// disjoint apart from the shared informational tools.
func InfosFor(agentType contractx.AgentType) []*schema.ToolInfo {
	switch agentType {
	case contractx.AgentTypeSales:
		return []*schema.ToolInfo{
			{
				Name: ToolNeedsAnalyze,
				Desc: "Analyze the customer's loan needs: purpose, amount, tenure and urgency.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "Customer's statement about their loan needs", Required: true},
				}),
			},
			{
				Name: ToolObjectionHandle,
				Desc: "Return a persuasive response to a common objection (interest_rate, tenure, amount, process, existing_loans, documents, time).",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"objection_type": {Type: schema.String, Desc: "Objection category", Required: true},
				}),
			},
			{
				Name: ToolOfferGenerate,
				Desc: "Generate a personalized loan offer using the customer profile and the offer catalog.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"loan_amount":   {Type: schema.Number, Desc: "Requested loan amount in INR"},
					"tenure_months": {Type: schema.Integer, Desc: "Requested tenure in months"},
				}),
			},
			{
				Name: ToolIntentDetect,
				Desc: "Classify the buying intent of the customer's message as hot, warm or cold.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "Customer's latest message", Required: true},
				}),
			},
			offersListInfo(),
			documentsChecklistInfo(),
			chargesInfo(),
		}
	case contractx.AgentTypeVerification:
		return []*schema.ToolInfo{
			{
				Name: ToolVerifyDetails,
				Desc: "Verify full KYC details (name, date of birth, address, PAN) against the customer record.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"name":    {Type: schema.String, Desc: "Customer's full name", Required: true},
					"dob":     {Type: schema.String, Desc: "Date of birth, YYYY-MM-DD", Required: true},
					"address": {Type: schema.String, Desc: "Residential address"},
					"pan":     {Type: schema.String, Desc: "PAN number", Required: true},
				}),
			},
			{
				Name: ToolVerifyPAN,
				Desc: "Validate a PAN number and look the customer up by it.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"pan": {Type: schema.String, Desc: "PAN number, 10 characters", Required: true},
				}),
			},
			{
				Name: ToolVerifyPhone,
				Desc: "Validate a phone number and send a verification OTP to it.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"phone": {Type: schema.String, Desc: "Phone number, with or without country code", Required: true},
				}),
			},
			{
				Name: ToolVerifyOTP,
				Desc: "Check the OTP the customer received on their phone.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"phone": {Type: schema.String, Desc: "Phone number the OTP was sent to", Required: true},
					"otp":   {Type: schema.String, Desc: "6-digit OTP", Required: true},
				}),
			},
			documentsChecklistInfo(),
		}
	case contractx.AgentTypeUnderwriting:
		return []*schema.ToolInfo{
			{
				Name: ToolCreditScore,
				Desc: "Fetch the verified customer's credit score and pricing tier.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"customer_id": {Type: schema.String, Desc: "Customer id from verification"},
				}),
			},
			{
				Name: ToolPreapprovedLimit,
				Desc: "Fetch the verified customer's pre-approved loan limit.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"customer_id": {Type: schema.String, Desc: "Customer id from verification"},
				}),
			},
			{
				Name: ToolCheckEligibility,
				Desc: "Run the eligibility rules for a requested amount and tenure; the decision may approve, conditionally approve or reject.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"loan_amount":   {Type: schema.Number, Desc: "Requested loan amount in INR", Required: true},
					"tenure_months": {Type: schema.Integer, Desc: "Tenure in months"},
				}),
			},
			{
				Name: ToolCalculateEMI,
				Desc: "Calculate the monthly EMI for a principal, tenure and annual rate.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"principal":       {Type: schema.Number, Desc: "Loan principal in INR", Required: true},
					"tenure_months":   {Type: schema.Integer, Desc: "Tenure in months", Required: true},
					"annual_rate_pct": {Type: schema.Number, Desc: "Annual interest rate percent"},
				}),
			},
			{
				Name: ToolVerifySalarySlip,
				Desc: "Mark the customer's salary slips as verified and re-run the pending conditional decision.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"document_ref": {Type: schema.String, Desc: "Reference of the uploaded salary slip"},
				}),
			},
			offersListInfo(),
			chargesInfo(),
		}
	case contractx.AgentTypeSanction:
		return []*schema.ToolInfo{
			{
				Name: ToolSanctionLetter,
				Desc: "Generate the formal sanction letter for the approved loan.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"customer_id": {Type: schema.String, Desc: "Customer id from verification"},
				}),
			},
			{
				Name: ToolLoanTerms,
				Desc: "Summarize the final loan terms: amount, tenure, rate, EMI and fees.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"customer_id": {Type: schema.String, Desc: "Customer id from verification"},
				}),
			},
			{
				Name: ToolDisbursementInfo,
				Desc: "Explain the disbursement timeline and next steps after sanction.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
			},
			chargesInfo(),
		}
	default:
		return nil
	}
}

func offersListInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolOffersList,
		Desc: "List the active loan offer templates from the catalog.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"loan_amount":   {Type: schema.Number, Desc: "Filter by requested amount"},
			"tenure_months": {Type: schema.Integer, Desc: "Filter by tenure"},
		}),
	}
}

func documentsChecklistInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolDocumentsChecklist,
		Desc: "List the documents required for the loan application.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"loan_amount": {Type: schema.Number, Desc: "Requested amount, to include income proof when above the limit"},
		}),
	}
}

func chargesInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolChargesInfo,
		Desc: "Explain processing fees, foreclosure and other charges.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"loan_amount": {Type: schema.Number, Desc: "Amount for a concrete fee figure"},
		}),
	}
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func floatArg(args map[string]any, key string) float64 {
	if args == nil {
		return 0
	}
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func intArg(args map[string]any, key string) int {
	return int(floatArg(args, key))
}
