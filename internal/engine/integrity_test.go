package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/volako-app/volako/internal/model"
)

func TestCheckIntegrityCleanLedger(t *testing.T) {
	e, _ := newTestEngine(t)
	mustAddIncome(t, e, 100000)
	savingID := mustCreateSaving(t, e, "emergency")
	if _, err := e.AddToSaving(savingID, decimal.NewFromInt(20000), ""); err != nil {
		t.Fatalf("AddToSaving() error = %v", err)
	}
	if _, err := e.WithdrawFromSaving(savingID, decimal.NewFromInt(5000), ""); err != nil {
		t.Fatalf("WithdrawFromSaving() error = %v", err)
	}

	report, err := e.CheckIntegrity()
	if err != nil {
		t.Fatalf("CheckIntegrity() error = %v", err)
	}
	if !report.Valid {
		t.Fatalf("clean ledger flagged invalid: %v", report.Errors)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("clean ledger produced warnings: %v", report.Warnings)
	}
	if !report.Balances.AvailableBalance.Equal(report.Rebuilt.AvailableBalance) {
		t.Fatalf("live %s vs rebuilt %s", report.Balances.AvailableBalance, report.Rebuilt.AvailableBalance)
	}
}

func TestCheckIntegrityDetectsDriftedSavingBalance(t *testing.T) {
	e, s := newTestEngine(t)
	mustAddIncome(t, e, 100000)
	savingID := mustCreateSaving(t, e, "emergency")
	if _, err := e.AddToSaving(savingID, decimal.NewFromInt(20000), ""); err != nil {
		t.Fatalf("AddToSaving() error = %v", err)
	}

	// Corrupt the running balance behind the engine's back.
	savings, err := s.Savings()
	if err != nil {
		t.Fatalf("Savings() error = %v", err)
	}
	savings[0].Balance = decimal.NewFromInt(25000)
	if err := s.SetSavings(savings); err != nil {
		t.Fatalf("SetSavings() error = %v", err)
	}

	report, err := e.CheckIntegrity()
	if err != nil {
		t.Fatalf("CheckIntegrity() error = %v", err)
	}
	if report.Valid {
		t.Fatal("drifted saving balance not detected")
	}
}

func TestCheckIntegrityDetectsMissingMirror(t *testing.T) {
	e, s := newTestEngine(t)
	mustAddIncome(t, e, 100000)
	savingID := mustCreateSaving(t, e, "emergency")
	if _, err := e.AddToSaving(savingID, decimal.NewFromInt(20000), ""); err != nil {
		t.Fatalf("AddToSaving() error = %v", err)
	}

	// Drop the mirror expense but keep the transaction log entry.
	expenses, err := s.Expenses()
	if err != nil {
		t.Fatalf("Expenses() error = %v", err)
	}
	kept := expenses[:0]
	for _, exp := range expenses {
		if exp.Kind != model.KindSavingsTransfer {
			kept = append(kept, exp)
		}
	}
	if err := s.SetExpenses(kept); err != nil {
		t.Fatalf("SetExpenses() error = %v", err)
	}

	report, err := e.CheckIntegrity()
	if err != nil {
		t.Fatalf("CheckIntegrity() error = %v", err)
	}
	if len(report.Warnings) == 0 {
		t.Fatal("missing mirror expense not flagged")
	}
}

func TestCheckIntegrityDetectsNegativeAmount(t *testing.T) {
	e, s := newTestEngine(t)

	if err := s.SetIncomes([]model.Income{{
		SyncMeta: model.NewMeta(time.Now()),
		Amount:   decimal.NewFromInt(-500),
		Source:   "corrupt import",
		Date:     time.Now(),
		Kind:     model.KindPlain,
	}}); err != nil {
		t.Fatalf("SetIncomes() error = %v", err)
	}

	report, err := e.CheckIntegrity()
	if err != nil {
		t.Fatalf("CheckIntegrity() error = %v", err)
	}
	if report.Valid {
		t.Fatal("negative income not detected")
	}
}

func TestDriftTolerance(t *testing.T) {
	a := decimal.NewFromFloat(100.005)
	b := decimal.NewFromFloat(100.00)
	if drift(a, b) {
		t.Fatal("difference within epsilon flagged as drift")
	}
	if !drift(decimal.NewFromFloat(100.02), b) {
		t.Fatal("difference beyond epsilon not flagged")
	}
}
