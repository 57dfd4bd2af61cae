package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/volako-app/volako/internal/model"
	"github.com/volako-app/volako/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s), s
}

func mustAddIncome(t *testing.T, e *Engine, amount int64) {
	t.Helper()
	result, err := e.AddIncome(decimal.NewFromInt(amount), "salary", time.Time{})
	if err != nil {
		t.Fatalf("AddIncome(%d) error = %v", amount, err)
	}
	if !result.OK {
		t.Fatalf("AddIncome(%d) rejected: %s", amount, result.Message)
	}
}

func mustCreateSaving(t *testing.T, e *Engine, name string) string {
	t.Helper()
	result, err := e.CreateSaving(name, model.SavingFree, decimal.Zero, time.Time{}, nil)
	if err != nil {
		t.Fatalf("CreateSaving(%q) error = %v", name, err)
	}
	if !result.OK {
		t.Fatalf("CreateSaving(%q) rejected: %s", name, result.Message)
	}
	return result.ID
}

func TestAvailableBalanceIsAllTime(t *testing.T) {
	e, _ := newTestEngine(t)
	mustAddIncome(t, e, 100000)

	// An income dated far in the past still counts toward the available
	// balance even though it falls outside the current month.
	old := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	if _, err := e.AddIncome(decimal.NewFromInt(50000), "old salary", old); err != nil {
		t.Fatalf("AddIncome() error = %v", err)
	}

	b, err := e.Balances(time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Balances() error = %v", err)
	}
	if !b.AvailableBalance.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("AvailableBalance = %s, want 150000", b.AvailableBalance)
	}
	if !b.AllTimeIncome.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("AllTimeIncome = %s, want 150000", b.AllTimeIncome)
	}
	if !b.TotalIncome.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("period TotalIncome = %s, want 100000", b.TotalIncome)
	}
}

func TestValidateExpense(t *testing.T) {
	e, _ := newTestEngine(t)
	mustAddIncome(t, e, 100000)

	v, err := e.ValidateExpense(decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("ValidateExpense() error = %v", err)
	}
	if !v.Valid {
		t.Fatalf("ValidateExpense(50000) invalid: %s", v.Message)
	}

	v, err = e.ValidateExpense(decimal.NewFromInt(150000))
	if err != nil {
		t.Fatalf("ValidateExpense() error = %v", err)
	}
	if v.Valid {
		t.Fatal("ValidateExpense(150000) should exceed the balance")
	}
	if v.Code != CodeInsufficientFunds {
		t.Fatalf("code = %q, want %q", v.Code, CodeInsufficientFunds)
	}

	v, err = e.ValidateExpense(decimal.NewFromInt(-5))
	if err != nil {
		t.Fatalf("ValidateExpense() error = %v", err)
	}
	if v.Valid || v.Code != CodeInvalidAmount {
		t.Fatalf("negative amount: valid=%v code=%q, want invalid-amount", v.Valid, v.Code)
	}
}

func TestAddExpenseDebitsBalance(t *testing.T) {
	e, _ := newTestEngine(t)
	mustAddIncome(t, e, 100000)

	result, err := e.AddExpense(decimal.NewFromInt(50000), "rent", "", "march rent", time.Time{})
	if err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
	if !result.OK {
		t.Fatalf("AddExpense() rejected: %s", result.Message)
	}

	b, err := e.Balances(time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Balances() error = %v", err)
	}
	if !b.AvailableBalance.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("AvailableBalance = %s, want 50000", b.AvailableBalance)
	}

	// Savings addition is validated against what is left, not the original.
	v, err := e.ValidateSavingAddition(decimal.NewFromInt(60000))
	if err != nil {
		t.Fatalf("ValidateSavingAddition() error = %v", err)
	}
	if v.Valid {
		t.Fatal("ValidateSavingAddition(60000) should fail with 50000 available")
	}
}

func TestAddExpenseRejectedOverdraft(t *testing.T) {
	e, s := newTestEngine(t)
	mustAddIncome(t, e, 1000)

	result, err := e.AddExpense(decimal.NewFromInt(2000), "food", "", "", time.Time{})
	if err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
	if result.OK {
		t.Fatal("overdraft expense should be rejected")
	}
	if result.Code != CodeInsufficientFunds {
		t.Fatalf("code = %q, want %q", result.Code, CodeInsufficientFunds)
	}

	// The rejection must leave no record behind.
	expenses, err := s.Expenses()
	if err != nil {
		t.Fatalf("Expenses() error = %v", err)
	}
	if len(expenses) != 0 {
		t.Fatalf("Expenses() len = %d after rejection, want 0", len(expenses))
	}
}

func TestAddToSavingPairedWrites(t *testing.T) {
	e, s := newTestEngine(t)
	mustAddIncome(t, e, 100000)
	mustAddExpense(t, e, 50000)
	savingID := mustCreateSaving(t, e, "emergency")

	result, err := e.AddToSaving(savingID, decimal.NewFromInt(20000), "")
	if err != nil {
		t.Fatalf("AddToSaving() error = %v", err)
	}
	if !result.OK {
		t.Fatalf("AddToSaving() rejected: %s", result.Message)
	}

	b, err := e.Balances(time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Balances() error = %v", err)
	}
	if !b.AvailableBalance.Equal(decimal.NewFromInt(30000)) {
		t.Fatalf("AvailableBalance = %s, want 30000", b.AvailableBalance)
	}
	if !b.TotalSaved.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("TotalSaved = %s, want 20000", b.TotalSaved)
	}
	if !b.TotalBalanceWithSavings.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("TotalBalanceWithSavings = %s, want 50000", b.TotalBalanceWithSavings)
	}

	expenses, err := s.Expenses()
	if err != nil {
		t.Fatalf("Expenses() error = %v", err)
	}
	mirrors := 0
	for _, exp := range expenses {
		if exp.Kind == model.KindSavingsTransfer {
			mirrors++
			if exp.SavingID != savingID {
				t.Fatalf("mirror SavingID = %q, want %q", exp.SavingID, savingID)
			}
			if exp.Category != model.CategorySavings {
				t.Fatalf("mirror category = %q, want %q", exp.Category, model.CategorySavings)
			}
		}
	}
	if mirrors != 1 {
		t.Fatalf("savings-transfer mirror count = %d, want 1", mirrors)
	}

	transactions, err := s.SavingsTransactions()
	if err != nil {
		t.Fatalf("SavingsTransactions() error = %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("transactions len = %d, want 1", len(transactions))
	}
	tx := transactions[0]
	if tx.Type != model.TransactionAdd {
		t.Fatalf("transaction type = %q, want add", tx.Type)
	}
	if !tx.BalanceAfter.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("BalanceAfter = %s, want 20000", tx.BalanceAfter)
	}
}

func TestWithdrawFromSaving(t *testing.T) {
	e, s := newTestEngine(t)
	mustAddIncome(t, e, 100000)
	savingID := mustCreateSaving(t, e, "emergency")

	if _, err := e.AddToSaving(savingID, decimal.NewFromInt(20000), ""); err != nil {
		t.Fatalf("AddToSaving() error = %v", err)
	}

	// Withdrawing more than the saving holds fails, regardless of the
	// general pool.
	result, err := e.WithdrawFromSaving(savingID, decimal.NewFromInt(25000), "")
	if err != nil {
		t.Fatalf("WithdrawFromSaving() error = %v", err)
	}
	if result.OK {
		t.Fatal("withdrawal above the saving balance should be rejected")
	}
	if result.Code != CodeInsufficientSaving {
		t.Fatalf("code = %q, want %q", result.Code, CodeInsufficientSaving)
	}

	result, err = e.WithdrawFromSaving(savingID, decimal.NewFromInt(5000), "")
	if err != nil {
		t.Fatalf("WithdrawFromSaving() error = %v", err)
	}
	if !result.OK {
		t.Fatalf("WithdrawFromSaving() rejected: %s", result.Message)
	}

	b, err := e.Balances(time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Balances() error = %v", err)
	}
	if !b.AvailableBalance.Equal(decimal.NewFromInt(85000)) {
		t.Fatalf("AvailableBalance = %s, want 85000", b.AvailableBalance)
	}
	if !b.TotalSaved.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("TotalSaved = %s, want 15000", b.TotalSaved)
	}

	// Total wealth is unchanged by moving money between pools.
	if !b.TotalBalanceWithSavings.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("TotalBalanceWithSavings = %s, want 100000", b.TotalBalanceWithSavings)
	}

	incomes, err := s.Incomes()
	if err != nil {
		t.Fatalf("Incomes() error = %v", err)
	}
	mirrors := 0
	for _, inc := range incomes {
		if inc.Kind == model.KindSavingsWithdrawal {
			mirrors++
		}
	}
	if mirrors != 1 {
		t.Fatalf("savings-withdrawal mirror count = %d, want 1", mirrors)
	}
}

func TestWithdrawFromUnknownSaving(t *testing.T) {
	e, _ := newTestEngine(t)

	result, err := e.WithdrawFromSaving("nope", decimal.NewFromInt(10), "")
	if err != nil {
		t.Fatalf("WithdrawFromSaving() error = %v", err)
	}
	if result.OK || result.Code != CodeSavingNotFound {
		t.Fatalf("result = %+v, want saving-not-found", result)
	}
}

func TestDeleteIsSoft(t *testing.T) {
	e, s := newTestEngine(t)
	mustAddIncome(t, e, 1000)

	incomes, err := s.Incomes()
	if err != nil {
		t.Fatalf("Incomes() error = %v", err)
	}
	if err := e.DeleteIncome(incomes[0].ID); err != nil {
		t.Fatalf("DeleteIncome() error = %v", err)
	}

	incomes, err = s.Incomes()
	if err != nil {
		t.Fatalf("Incomes() error = %v", err)
	}
	if len(incomes) != 1 {
		t.Fatalf("tombstone purged too early: len = %d, want 1", len(incomes))
	}
	if !incomes[0].Deleted || incomes[0].Synced {
		t.Fatalf("tombstone = %+v, want deleted and dirty", incomes[0].SyncMeta)
	}

	b, err := e.Balances(time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Balances() error = %v", err)
	}
	if !b.AvailableBalance.IsZero() {
		t.Fatalf("AvailableBalance = %s after delete, want 0", b.AvailableBalance)
	}
}

func TestSetBudgetUniquePerCategory(t *testing.T) {
	e, s := newTestEngine(t)

	if _, err := e.SetBudget("food", decimal.NewFromInt(50000), "", ""); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	result, err := e.SetBudget("food", decimal.NewFromInt(60000), "", "")
	if err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if result.Message != "budget updated" {
		t.Fatalf("second SetBudget message = %q, want update", result.Message)
	}

	// "other" budgets are keyed by their reference.
	if _, err := e.SetBudget(model.CategoryOther, decimal.NewFromInt(100), "gym", ""); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if _, err := e.SetBudget(model.CategoryOther, decimal.NewFromInt(200), "books", ""); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}

	budgets, err := s.Budgets()
	if err != nil {
		t.Fatalf("Budgets() error = %v", err)
	}
	live := 0
	for _, b := range budgets {
		if !b.Deleted {
			live++
		}
	}
	if live != 3 {
		t.Fatalf("live budgets = %d, want 3", live)
	}
}

func TestTransactionHistoryOrderAndImpact(t *testing.T) {
	e, _ := newTestEngine(t)

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	if _, err := e.AddIncome(decimal.NewFromInt(1000), "salary", jan); err != nil {
		t.Fatalf("AddIncome() error = %v", err)
	}
	if _, err := e.AddIncome(decimal.NewFromInt(9000), "salary", feb); err != nil {
		t.Fatalf("AddIncome() error = %v", err)
	}
	if _, err := e.AddExpense(decimal.NewFromInt(400), "food", "", "", feb.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}

	entries, err := e.TransactionHistory()
	if err != nil {
		t.Fatalf("TransactionHistory() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("history len = %d, want 3", len(entries))
	}
	if entries[0].Income {
		t.Fatal("most recent entry should be the expense")
	}
	if !entries[0].Impact.Equal(decimal.NewFromInt(-400)) {
		t.Fatalf("expense impact = %s, want -400", entries[0].Impact)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Date.After(entries[i-1].Date) {
			t.Fatal("history not sorted most recent first")
		}
	}
}

func mustAddExpense(t *testing.T, e *Engine, amount int64) {
	t.Helper()
	result, err := e.AddExpense(decimal.NewFromInt(amount), "rent", "", "", time.Time{})
	if err != nil {
		t.Fatalf("AddExpense(%d) error = %v", amount, err)
	}
	if !result.OK {
		t.Fatalf("AddExpense(%d) rejected: %s", amount, result.Message)
	}
}
