// Package engine is the single authority for financial computation and
// validation. Every balance figure is derived here, and every mutation that
// moves money goes through it so the paired-write rules hold: a savings add
// is mirrored by exactly one expense, a withdrawal by exactly one income.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/volako-app/volako/internal/model"
	"github.com/volako-app/volako/internal/store"
)

// epsilon tolerates floating-point drift in records imported from older
// clients when comparing reconstructed against live totals.
var epsilon = decimal.NewFromFloat(0.01)

// Code classifies a rejected operation.
type Code string

const (
	CodeInvalidAmount      Code = "invalid-amount"
	CodeInsufficientFunds  Code = "insufficient-balance"
	CodeInsufficientSaving Code = "insufficient-saving-balance"
	CodeSavingNotFound     Code = "saving-not-found"
)

// Validation is the outcome of a pure validation predicate. Business
// rejections are values, never errors.
type Validation struct {
	Valid            bool
	Code             Code
	Message          string
	AvailableBalance decimal.Decimal
	SavingBalance    decimal.Decimal
}

// Result is the outcome of a mutating operation.
type Result struct {
	OK      bool
	Code    Code
	Message string
	ID      string
}

func failure(code Code, message string) Result {
	return Result{Code: code, Message: message}
}

// Engine computes balances and executes validated mutations against the
// local record store. Validate-then-mutate runs under one mutex so no
// interleaving writer can invalidate a passed check.
type Engine struct {
	mu    sync.Mutex
	store *store.Store
	now   func() time.Time
}

// New returns an engine over the given record store.
func New(s *store.Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// Balances computes all derived figures. Zero period bounds default to the
// current calendar month. AvailableBalance is always all-time; the period
// only scopes the display statistics.
func (e *Engine) Balances(periodStart, periodEnd time.Time) (model.Balances, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances(periodStart, periodEnd)
}

func (e *Engine) balances(periodStart, periodEnd time.Time) (model.Balances, error) {
	now := e.now()
	start, end := periodStart, periodEnd
	if start.IsZero() {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	if end.IsZero() {
		end = time.Date(now.Year(), now.Month()+1, 0, 23, 59, 59, 0, now.Location())
	}

	incomes, err := e.store.Incomes()
	if err != nil {
		return model.Balances{}, err
	}
	expenses, err := e.store.Expenses()
	if err != nil {
		return model.Balances{}, err
	}
	savings, err := e.store.Savings()
	if err != nil {
		return model.Balances{}, err
	}

	b := model.Balances{PeriodStart: start, PeriodEnd: end}

	for _, inc := range incomes {
		if inc.Deleted {
			continue
		}
		b.AllTimeIncome = b.AllTimeIncome.Add(inc.Amount)
		if inPeriod(inc.Date, start, end) {
			b.TotalIncome = b.TotalIncome.Add(inc.Amount)
			b.IncomeCount++
			if inc.Kind == model.KindSavingsWithdrawal {
				b.PeriodSavingsWithdrawn = b.PeriodSavingsWithdrawn.Add(inc.Amount)
			}
		}
	}

	for _, exp := range expenses {
		if exp.Deleted {
			continue
		}
		b.AllTimeExpenses = b.AllTimeExpenses.Add(exp.Amount)
		if inPeriod(exp.Date, start, end) {
			b.TotalExpenses = b.TotalExpenses.Add(exp.Amount)
			b.ExpenseCount++
			if exp.Kind == model.KindSavingsTransfer {
				b.PeriodSavingsAdded = b.PeriodSavingsAdded.Add(exp.Amount)
			}
		}
	}

	for _, s := range savings {
		if s.Deleted {
			continue
		}
		b.TotalSaved = b.TotalSaved.Add(s.Balance)
		b.SavingsCount++
	}

	b.PeriodBalance = b.TotalIncome.Sub(b.TotalExpenses)
	b.AvailableBalance = b.AllTimeIncome.Sub(b.AllTimeExpenses)
	b.TotalBalanceWithSavings = b.AvailableBalance.Add(b.TotalSaved)
	return b, nil
}

func inPeriod(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// ValidateExpense checks whether an expense of the given amount is allowed
// against the all-time available balance. Pure predicate, no mutation.
func (e *Engine) ValidateExpense(amount decimal.Decimal) (Validation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateAgainstAvailable(amount)
}

// ValidateSavingAddition checks whether the amount can leave the general
// pool to enter savings. Same rule as an expense.
func (e *Engine) ValidateSavingAddition(amount decimal.Decimal) (Validation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateAgainstAvailable(amount)
}

func (e *Engine) validateAgainstAvailable(amount decimal.Decimal) (Validation, error) {
	b, err := e.balances(time.Time{}, time.Time{})
	if err != nil {
		return Validation{}, err
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return Validation{
			Code:             CodeInvalidAmount,
			Message:          "amount must be a positive number",
			AvailableBalance: b.AvailableBalance,
		}, nil
	}

	if b.AvailableBalance.LessThan(amount) {
		return Validation{
			Code:             CodeInsufficientFunds,
			Message:          fmt.Sprintf("insufficient balance: %s available", b.AvailableBalance),
			AvailableBalance: b.AvailableBalance,
		}, nil
	}

	return Validation{Valid: true, AvailableBalance: b.AvailableBalance}, nil
}

// ValidateSavingWithdrawal checks whether the named saving can fund a
// withdrawal of the given amount.
func (e *Engine) ValidateSavingWithdrawal(savingID string, amount decimal.Decimal) (Validation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateWithdrawal(savingID, amount)
}

func (e *Engine) validateWithdrawal(savingID string, amount decimal.Decimal) (Validation, error) {
	savings, err := e.store.Savings()
	if err != nil {
		return Validation{}, err
	}

	saving := findSaving(savings, savingID)
	if saving == nil {
		return Validation{
			Code:    CodeSavingNotFound,
			Message: "saving not found",
		}, nil
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return Validation{
			Code:          CodeInvalidAmount,
			Message:       "amount must be a positive number",
			SavingBalance: saving.Balance,
		}, nil
	}

	if saving.Balance.LessThan(amount) {
		return Validation{
			Code:          CodeInsufficientSaving,
			Message:       fmt.Sprintf("insufficient saving balance: %s available", saving.Balance),
			SavingBalance: saving.Balance,
		}, nil
	}

	return Validation{Valid: true, SavingBalance: saving.Balance}, nil
}

func findSaving(savings []model.Saving, id string) *model.Saving {
	for i := range savings {
		if savings[i].ID == id && !savings[i].Deleted {
			return &savings[i]
		}
	}
	return nil
}

// AddToSaving moves money from the general pool into a saving: the balance
// is incremented, one mirror expense is appended, and one add transaction
// is logged, all within a single locked section.
func (e *Engine) AddToSaving(savingID string, amount decimal.Decimal, description string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addToSaving(savingID, amount, description)
}

func (e *Engine) addToSaving(savingID string, amount decimal.Decimal, description string) (Result, error) {
	validation, err := e.validateAgainstAvailable(amount)
	if err != nil {
		return Result{}, err
	}
	if !validation.Valid {
		return failure(validation.Code, validation.Message), nil
	}

	savings, err := e.store.Savings()
	if err != nil {
		return Result{}, err
	}
	saving := findSaving(savings, savingID)
	if saving == nil {
		return failure(CodeSavingNotFound, "saving not found"), nil
	}

	now := e.now()
	saving.Balance = saving.Balance.Add(amount)
	saving.Touch()
	if err := e.store.SetSavings(savings); err != nil {
		return Result{}, err
	}

	if description == "" {
		description = fmt.Sprintf("Transfer to savings: %s", saving.Name)
	}

	expense := model.Expense{
		SyncMeta:    model.NewMeta(now),
		Amount:      amount,
		Category:    model.CategorySavings,
		Description: description,
		Date:        now,
		Kind:        model.KindSavingsTransfer,
		SavingID:    savingID,
	}
	if err := e.appendExpense(expense); err != nil {
		return Result{}, err
	}

	tx := model.SavingsTransaction{
		SyncMeta:     model.NewMeta(now),
		SavingID:     savingID,
		Amount:       amount,
		Type:         model.TransactionAdd,
		Description:  description,
		Date:         now,
		BalanceAfter: saving.Balance,
	}
	if err := e.appendTransaction(tx); err != nil {
		return Result{}, err
	}

	return Result{OK: true, ID: tx.ID, Message: fmt.Sprintf("%s added to %s", amount, saving.Name)}, nil
}

// WithdrawFromSaving is the mirror of AddToSaving: the balance is
// decremented, one mirror income is appended, and one withdraw transaction
// is logged.
func (e *Engine) WithdrawFromSaving(savingID string, amount decimal.Decimal, description string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.withdrawFromSaving(savingID, amount, description)
}

func (e *Engine) withdrawFromSaving(savingID string, amount decimal.Decimal, description string) (Result, error) {
	validation, err := e.validateWithdrawal(savingID, amount)
	if err != nil {
		return Result{}, err
	}
	if !validation.Valid {
		return failure(validation.Code, validation.Message), nil
	}

	savings, err := e.store.Savings()
	if err != nil {
		return Result{}, err
	}
	saving := findSaving(savings, savingID)
	if saving == nil {
		return failure(CodeSavingNotFound, "saving not found"), nil
	}

	now := e.now()
	saving.Balance = saving.Balance.Sub(amount)
	saving.Touch()
	if err := e.store.SetSavings(savings); err != nil {
		return Result{}, err
	}

	if description == "" {
		description = fmt.Sprintf("Withdrawal from savings: %s", saving.Name)
	}

	income := model.Income{
		SyncMeta: model.NewMeta(now),
		Amount:   amount,
		Category: model.CategorySavingsWithdrawal,
		Source:   description,
		Date:     now,
		Kind:     model.KindSavingsWithdrawal,
		SavingID: savingID,
	}
	if err := e.appendIncome(income); err != nil {
		return Result{}, err
	}

	tx := model.SavingsTransaction{
		SyncMeta:     model.NewMeta(now),
		SavingID:     savingID,
		Amount:       amount,
		Type:         model.TransactionWithdraw,
		Description:  description,
		Date:         now,
		BalanceAfter: saving.Balance,
	}
	if err := e.appendTransaction(tx); err != nil {
		return Result{}, err
	}

	return Result{OK: true, ID: tx.ID, Message: fmt.Sprintf("%s withdrawn from %s", amount, saving.Name)}, nil
}

func (e *Engine) appendExpense(exp model.Expense) error {
	expenses, err := e.store.Expenses()
	if err != nil {
		return err
	}
	return e.store.SetExpenses(append(expenses, exp))
}

func (e *Engine) appendIncome(inc model.Income) error {
	incomes, err := e.store.Incomes()
	if err != nil {
		return err
	}
	return e.store.SetIncomes(append(incomes, inc))
}

func (e *Engine) appendTransaction(tx model.SavingsTransaction) error {
	transactions, err := e.store.SavingsTransactions()
	if err != nil {
		return err
	}
	return e.store.SetSavingsTransactions(append(transactions, tx))
}
