package tool

import (
	"context"
	"errors"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/kyc"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

func executeVerificationTool(ctx context.Context, deps Deps, sess *statex.SessionState, tool string, args map[string]any) (contractx.ToolResult, error) {
	if deps.KYC == nil {
		return contractx.ToolResult{Tool: tool, Error: "verification service is unavailable"}, nil
	}
	switch tool {
	case ToolVerifyDetails:
		cust, err := deps.KYC.VerifyDetails(ctx,
			stringArg(args, "name"),
			stringArg(args, "dob"),
			stringArg(args, "address"),
			stringArg(args, "pan"),
		)
		if err != nil {
			return verificationFailure(tool, err), nil
		}
		attachCustomer(sess, cust)
		completeIdentityVerification(sess)
		return contractx.ToolResult{
			Tool: tool,
			Result: map[string]any{
				"verified":    true,
				"customer_id": cust.CustomerID,
				"name":        cust.Name,
				"message":     "KYC details verified successfully. Identity verification is complete; we can now check loan eligibility.",
			},
		}, nil

	case ToolVerifyPAN:
		cust, err := deps.KYC.VerifyPAN(ctx, stringArg(args, "pan"))
		if err != nil {
			return verificationFailure(tool, err), nil
		}
		attachCustomer(sess, cust)
		completeIdentityVerification(sess)
		return contractx.ToolResult{
			Tool: tool,
			Result: map[string]any{
				"verified":     true,
				"customer_id":  cust.CustomerID,
				"name":         cust.Name,
				"credit_score": cust.CreditScore,
				"message":      "PAN verified successfully. Identity verification is complete; we can now check loan eligibility. Do not ask for a phone number or OTP.",
			},
		}, nil

	case ToolVerifyPhone:
		cust, err := deps.KYC.VerifyPhone(ctx, stringArg(args, "phone"))
		if err != nil {
			return verificationFailure(tool, err), nil
		}
		attachCustomer(sess, cust)
		return contractx.ToolResult{
			Tool: tool,
			Result: map[string]any{
				"verified":    true,
				"customer_id": cust.CustomerID,
				"message":     "OTP sent to the registered phone number. Please ask the customer for it.",
			},
		}, nil

	case ToolVerifyOTP:
		err := deps.KYC.VerifyOTP(ctx, stringArg(args, "phone"), stringArg(args, "otp"))
		if err != nil {
			return verificationFailure(tool, err), nil
		}
		completeIdentityVerification(sess)
		return contractx.ToolResult{
			Tool: tool,
			Result: map[string]any{
				"verified": true,
				"message":  "Phone verified. Identity verification complete; we can now check loan eligibility.",
			},
		}, nil
	}
	return contractx.ToolResult{Tool: tool, Error: "unknown verification tool"}, nil
}

// completeIdentityVerification moves the session through verification into
// underwriting. KYC is single-step: a verified PAN (or full details, or the
// legacy OTP) finishes identity verification on its own.
func completeIdentityVerification(sess *statex.SessionState) {
	if sess.Stage == statex.StageInitial {
		sess.Advance(statex.StageVerification)
	}
	if sess.Stage == statex.StageVerification {
		sess.Advance(statex.StageUnderwriting)
	}
}

// attachCustomer records the verified identity on the session. A session is
// bound to the first verified customer; later lookups never overwrite it.
func attachCustomer(sess *statex.SessionState, cust *kyc.Customer) {
	if sess.CustomerID != "" && sess.CustomerID != cust.CustomerID {
		return
	}
	sess.CustomerID = cust.CustomerID
	if sess.Customer == nil {
		sess.Customer = &statex.CustomerSnapshot{
			CustomerID:       cust.CustomerID,
			Name:             cust.Name,
			PAN:              cust.PAN,
			Phone:            cust.Phone,
			CreditScore:      cust.CreditScore,
			PreapprovedLimit: cust.PreapprovedLimit,
			MonthlySalary:    cust.MonthlySalary,
		}
	}
}

// verificationFailure turns a KYC error into a tool result the model can
// relay conversationally. Validation problems explain what to correct;
// everything else stays generic.
func verificationFailure(tool string, err error) contractx.ToolResult {
	var verr *kyc.ValidationError
	switch {
	case errors.As(err, &verr):
		return contractx.ToolResult{Tool: tool, Error: verr.Error()}
	case errors.Is(err, kyc.ErrCustomerNotFound):
		return contractx.ToolResult{Tool: tool, Error: "no customer record matches; please re-check the details"}
	case errors.Is(err, kyc.ErrOTPMismatch):
		return contractx.ToolResult{Tool: tool, Error: "the OTP does not match; please ask the customer to re-enter it"}
	default:
		return contractx.ToolResult{Tool: tool, Error: err.Error()}
	}
}
