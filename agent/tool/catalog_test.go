package tool

import (
	"context"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/kyc"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/rules"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

type fakeCustomerStore struct {
	cust *kyc.Customer
}

func (f *fakeCustomerStore) ByPAN(_ context.Context, pan string) (*kyc.Customer, error) {
	if f.cust != nil && f.cust.PAN == pan {
		return f.cust, nil
	}
	return nil, kyc.ErrCustomerNotFound
}

func (f *fakeCustomerStore) ByPhone(_ context.Context, phone string) (*kyc.Customer, error) {
	if f.cust != nil && f.cust.Phone == phone {
		return f.cust, nil
	}
	return nil, kyc.ErrCustomerNotFound
}

func (f *fakeCustomerStore) ByID(_ context.Context, id string) (*kyc.Customer, error) {
	if f.cust != nil && f.cust.CustomerID == id {
		return f.cust, nil
	}
	return nil, kyc.ErrCustomerNotFound
}

type fakeOfferStore struct {
	offers []rules.OfferTemplate
	err    error
}

func (f *fakeOfferStore) Active(context.Context) ([]rules.OfferTemplate, error) {
	return f.offers, f.err
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	svc, err := kyc.NewService(&fakeCustomerStore{cust: &kyc.Customer{
		CustomerID:       "CUST001",
		Name:             "Rahul Sharma",
		PAN:              "ABCDE1234F",
		Phone:            "9876543210",
		CreditScore:      780,
		PreapprovedLimit: 500000,
		MonthlySalary:    85000,
	}})
	if err != nil {
		t.Fatalf("kyc.NewService() error = %v", err)
	}
	return Deps{
		KYC: svc,
		Offers: &fakeOfferStore{offers: []rules.OfferTemplate{{
			Name:             "standard",
			MinCreditScore:   700,
			MinAmount:        50000,
			MaxAmount:        2000000,
			MinTenureMonths:  12,
			MaxTenureMonths:  72,
			BaseRatePct:      10.99,
			ProcessingFeePct: 3.5,
			Active:           true,
		}}},
	}
}

func newVerifiedSession(t *testing.T) *statex.SessionState {
	t.Helper()
	sess := statex.NewSessionState("sess-1", time.Now())
	sess.Stage = statex.StageUnderwriting
	sess.CustomerID = "CUST001"
	sess.Customer = &statex.CustomerSnapshot{
		CustomerID:       "CUST001",
		Name:             "Rahul Sharma",
		CreditScore:      780,
		PreapprovedLimit: 500000,
		MonthlySalary:    85000,
	}
	return sess
}

func TestExecutorRejectsForeignTools(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(contractx.AgentTypeSales, testDeps(t))
	sess := statex.NewSessionState("sess-1", time.Now())

	res, err := exec(context.Background(), sess, ToolVerifyPAN, map[string]any{"pan": "ABCDE1234F"})
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if !strings.Contains(res.Error, "unavailable") {
		t.Fatalf("foreign tool result = %+v, want unavailable error", res)
	}
	if sess.Stage != statex.StageInitial {
		t.Fatalf("foreign tool mutated stage to %s", sess.Stage)
	}
}

func TestVerifyPANCompletesVerification(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(contractx.AgentTypeVerification, testDeps(t))
	sess := statex.NewSessionState("sess-1", time.Now())

	res, err := exec(context.Background(), sess, ToolVerifyPAN, map[string]any{"pan": "abcde1234f"})
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if res.Error != "" {
		t.Fatalf("verify pan error = %q", res.Error)
	}
	// PAN is the single KYC step; a verified PAN leaves the customer ready
	// for the eligibility check with no phone or OTP round
	if sess.Stage != statex.StageUnderwriting {
		t.Fatalf("stage = %s, want %s", sess.Stage, statex.StageUnderwriting)
	}
	if sess.CustomerID != "CUST001" || sess.Customer == nil {
		t.Fatalf("customer not attached: id=%q customer=%v", sess.CustomerID, sess.Customer)
	}
	payload, ok := res.Result.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T", res.Result)
	}
	msg, _ := payload["message"].(string)
	if strings.Contains(msg, "phone number for OTP") {
		t.Fatalf("verification message still asks for OTP: %q", msg)
	}
}

func TestVerifyPANValidationFailureKeepsStage(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(contractx.AgentTypeVerification, testDeps(t))
	sess := statex.NewSessionState("sess-1", time.Now())

	res, err := exec(context.Background(), sess, ToolVerifyPAN, map[string]any{"pan": "NOT-A-PAN"})
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if res.Error == "" {
		t.Fatal("malformed PAN produced no error")
	}
	if sess.Stage != statex.StageInitial {
		t.Fatalf("failed verification moved stage to %s", sess.Stage)
	}
}

func TestVerifyOTPAdvancesToUnderwriting(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(contractx.AgentTypeVerification, testDeps(t))
	sess := statex.NewSessionState("sess-1", time.Now())
	sess.Stage = statex.StageVerification

	res, err := exec(context.Background(), sess, ToolVerifyOTP, map[string]any{"phone": "9876543210", "otp": "123456"})
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if res.Error != "" {
		t.Fatalf("verify otp error = %q", res.Error)
	}
	if sess.Stage != statex.StageUnderwriting {
		t.Fatalf("stage = %s, want %s", sess.Stage, statex.StageUnderwriting)
	}
}

func TestCheckEligibilityApprovedAdvancesToSanction(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(contractx.AgentTypeUnderwriting, testDeps(t))
	sess := newVerifiedSession(t)

	res, err := exec(context.Background(), sess, ToolCheckEligibility, map[string]any{
		"loan_amount":   float64(400000),
		"tenure_months": float64(60),
	})
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	result, ok := res.Result.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T", res.Result)
	}
	if result["status"] != "approved" {
		t.Fatalf("status = %v, want approved", result["status"])
	}
	if sess.Stage != statex.StageSanction {
		t.Fatalf("stage = %s, want %s", sess.Stage, statex.StageSanction)
	}
	if sess.LoanAmount != 400000 || sess.TenureMonths != 60 {
		t.Fatalf("session amount/tenure = %v/%v", sess.LoanAmount, sess.TenureMonths)
	}
}

func TestCheckEligibilityConditionalHoldsUnderwriting(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(contractx.AgentTypeUnderwriting, testDeps(t))
	sess := newVerifiedSession(t)

	res, err := exec(context.Background(), sess, ToolCheckEligibility, map[string]any{
		"loan_amount": float64(800000),
	})
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	result := res.Result.(map[string]any)
	if result["status"] != "conditional" {
		t.Fatalf("status = %v, want conditional", result["status"])
	}
	if sess.Stage != statex.StageUnderwriting {
		t.Fatalf("stage = %s, want %s", sess.Stage, statex.StageUnderwriting)
	}
}

func TestCheckEligibilityRejectionLeavesStage(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(contractx.AgentTypeUnderwriting, testDeps(t))
	sess := newVerifiedSession(t)
	sess.LoanAmount = 200000

	res, err := exec(context.Background(), sess, ToolCheckEligibility, map[string]any{
		"loan_amount": float64(1500000),
	})
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	result := res.Result.(map[string]any)
	if result["status"] != "rejected" {
		t.Fatalf("status = %v, want rejected", result["status"])
	}
	if sess.Stage != statex.StageUnderwriting {
		t.Fatalf("rejection changed stage to %s", sess.Stage)
	}
	if sess.LoanAmount != 200000 {
		t.Fatalf("rejection overwrote loan amount: %v", sess.LoanAmount)
	}
}

func TestVerifySalarySlipPromotesConditionalApproval(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(contractx.AgentTypeUnderwriting, testDeps(t))
	sess := newVerifiedSession(t)
	sess.LoanAmount = 800000
	sess.TenureMonths = 60

	res, err := exec(context.Background(), sess, ToolVerifySalarySlip, nil)
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if res.Error != "" {
		t.Fatalf("salary slip error = %q", res.Error)
	}
	if !sess.SalarySlipVerified {
		t.Fatal("salary slip not marked verified")
	}
	if sess.Stage != statex.StageSanction {
		t.Fatalf("stage = %s, want %s", sess.Stage, statex.StageSanction)
	}
}

func TestGenerateSanctionLetter(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(contractx.AgentTypeSanction, testDeps(t))
	sess := newVerifiedSession(t)
	sess.Stage = statex.StageSanction
	sess.LoanAmount = 400000
	sess.TenureMonths = 60

	res, err := exec(context.Background(), sess, ToolSanctionLetter, nil)
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if res.Error != "" {
		t.Fatalf("sanction letter error = %q", res.Error)
	}
	result := res.Result.(map[string]any)
	if result["customer_id"] != "CUST001" {
		t.Fatalf("letter customer = %v", result["customer_id"])
	}
	if ref, _ := result["reference"].(string); !strings.HasPrefix(ref, "SL-CUST001-") {
		t.Fatalf("letter reference = %v", result["reference"])
	}
}

func TestCalculateEMIUsesCatalogRate(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(contractx.AgentTypeUnderwriting, testDeps(t))
	sess := newVerifiedSession(t)

	res, err := exec(context.Background(), sess, ToolCalculateEMI, map[string]any{
		"principal":     float64(500000),
		"tenure_months": float64(36),
	})
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	result := res.Result.(map[string]any)
	if result["annual_rate_pct"] != 10.99 {
		t.Fatalf("rate = %v, want catalog rate 10.99", result["annual_rate_pct"])
	}
	emi, _ := result["emi"].(float64)
	if emi < 16300 || emi > 16450 {
		t.Fatalf("emi = %v, want about 16366", emi)
	}
}

func TestInfosForDisjointToolSets(t *testing.T) {
	t.Parallel()

	seen := map[string]contractx.AgentType{}
	shared := map[string]bool{ToolOffersList: true, ToolDocumentsChecklist: true, ToolChargesInfo: true}
	for _, agent := range contractx.WorkerAgentTypes {
		for _, info := range InfosFor(agent) {
			if shared[info.Name] {
				continue
			}
			if prev, ok := seen[info.Name]; ok {
				t.Fatalf("tool %s bound to both %s and %s", info.Name, prev, agent)
			}
			seen[info.Name] = agent
		}
	}
	if len(InfosFor(contractx.AgentTypeMaster)) != 0 {
		t.Fatal("master must not bind worker tools")
	}
}
