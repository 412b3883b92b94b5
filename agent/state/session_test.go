package state

import (
	"testing"
	"time"
)

func TestAdvanceAllowedTransitionsOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from Stage
		to   Stage
		want bool
	}{
		{name: "initial to verification", from: StageInitial, to: StageVerification, want: true},
		{name: "verification to underwriting", from: StageVerification, to: StageUnderwriting, want: true},
		{name: "verification straight to sanction", from: StageVerification, to: StageSanction, want: true},
		{name: "underwriting to sanction", from: StageUnderwriting, to: StageSanction, want: true},
		{name: "initial cannot skip to underwriting", from: StageInitial, to: StageUnderwriting, want: false},
		{name: "initial cannot skip to sanction", from: StageInitial, to: StageSanction, want: false},
		{name: "same stage is a no-op", from: StageUnderwriting, to: StageUnderwriting, want: false},
		{name: "backward move is ignored", from: StageSanction, to: StageVerification, want: false},
		{name: "unknown stage is ignored", from: StageInitial, to: Stage("disbursed"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := NewSessionState("sess-1", time.Now())
			st.Stage = tt.from
			got := st.Advance(tt.to)
			if got != tt.want {
				t.Fatalf("Advance(%s) from %s = %v, want %v", tt.to, tt.from, got, tt.want)
			}
			wantStage := tt.from
			if tt.want {
				wantStage = tt.to
			}
			if st.Stage != wantStage {
				t.Fatalf("stage after Advance = %s, want %s", st.Stage, wantStage)
			}
		})
	}
}

func TestStageNeverRegressesFromSanction(t *testing.T) {
	t.Parallel()

	st := NewSessionState("sess-1", time.Now())
	st.Stage = StageSanction
	for _, to := range []Stage{StageInitial, StageVerification, StageUnderwriting, StageSanction} {
		if st.Advance(to) {
			t.Fatalf("Advance(%s) succeeded from sanction", to)
		}
		if st.Stage != StageSanction {
			t.Fatalf("stage regressed to %s", st.Stage)
		}
	}
}

func TestNewSessionStateDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	st := NewSessionState("sess-1", now)

	if st.Stage != StageInitial {
		t.Fatalf("stage = %s, want %s", st.Stage, StageInitial)
	}
	if st.TenureMonths != DefaultTenureMonths {
		t.Fatalf("tenure = %d, want %d", st.TenureMonths, DefaultTenureMonths)
	}
	if !st.Active {
		t.Fatal("new session is not active")
	}
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	var nilState *SessionState
	if err := nilState.Validate(); err != ErrNilSessionState {
		t.Fatalf("nil state Validate() = %v, want %v", err, ErrNilSessionState)
	}

	st := NewSessionState("  ", time.Now())
	if err := st.Validate(); err != ErrInvalidSession {
		t.Fatalf("blank id Validate() = %v, want %v", err, ErrInvalidSession)
	}

	st = NewSessionState("sess-1", time.Now())
	st.Stage = Stage("bogus")
	if err := st.Validate(); err != ErrInvalidStage {
		t.Fatalf("bad stage Validate() = %v, want %v", err, ErrInvalidStage)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	st := NewSessionState("sess-1", time.Now())
	st.Customer = &CustomerSnapshot{CustomerID: "CUST001", Name: "Rahul Sharma", CreditScore: 780}

	cp := st.Clone()
	cp.Stage = StageSanction
	cp.Customer.CreditScore = 600

	if st.Stage != StageInitial {
		t.Fatalf("clone mutated original stage: %s", st.Stage)
	}
	if st.Customer.CreditScore != 780 {
		t.Fatalf("clone mutated original snapshot: %d", st.Customer.CreditScore)
	}
}

func TestMergeTurnKeepsUntouchedFields(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	snapshot := NewSessionState("sess-1", now)
	snapshot.LoanAmount = 300000

	current := snapshot.Clone()
	current.Stage = StageVerification
	current.CustomerID = "CUST001"
	current.Touch(now.Add(time.Second))

	// a concurrent write changed the amount while this turn ran
	reloaded := snapshot.Clone()
	reloaded.LoanAmount = 450000

	merged := MergeTurn(snapshot, current, reloaded)

	if merged.Stage != StageVerification {
		t.Fatalf("merged stage = %s, want this turn's %s", merged.Stage, StageVerification)
	}
	if merged.CustomerID != "CUST001" {
		t.Fatalf("merged customer id = %q, want CUST001", merged.CustomerID)
	}
	if merged.LoanAmount != 450000 {
		t.Fatalf("merged loan amount = %v, want concurrent value 450000", merged.LoanAmount)
	}
	if !merged.UpdatedAt.Equal(current.UpdatedAt) {
		t.Fatalf("merged updated_at = %v, want %v", merged.UpdatedAt, current.UpdatedAt)
	}
}

func TestMergeTurnNilInputs(t *testing.T) {
	t.Parallel()

	current := NewSessionState("sess-1", time.Now())
	current.Stage = StageUnderwriting

	if got := MergeTurn(current.Clone(), current, nil); got.Stage != StageUnderwriting {
		t.Fatalf("merge with nil reload lost stage: %s", got.Stage)
	}

	reloaded := NewSessionState("sess-1", time.Now())
	if got := MergeTurn(nil, current, reloaded); got != reloaded {
		t.Fatal("merge without snapshot should return reloaded state")
	}
}
