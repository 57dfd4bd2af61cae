package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/volako-app/volako/internal/model"
)

// AddExpense validates and appends a user-entered expense.
func (e *Engine) AddExpense(amount decimal.Decimal, category, otherReference, description string, date time.Time) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	validation, err := e.validateAgainstAvailable(amount)
	if err != nil {
		return Result{}, err
	}
	if !validation.Valid {
		return failure(validation.Code, validation.Message), nil
	}

	if category != model.CategoryOther {
		otherReference = ""
	}
	now := e.now()
	if date.IsZero() {
		date = now
	}

	exp := model.Expense{
		SyncMeta:       model.NewMeta(now),
		Amount:         amount,
		Category:       category,
		OtherReference: otherReference,
		Description:    description,
		Date:           date,
		Kind:           model.KindPlain,
	}
	if err := e.appendExpense(exp); err != nil {
		return Result{}, err
	}
	return Result{OK: true, ID: exp.ID, Message: "expense recorded"}, nil
}

// AddIncome appends an income record. Incomes only need a positive amount;
// they can never overdraw anything.
func (e *Engine) AddIncome(amount decimal.Decimal, source string, date time.Time) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return failure(CodeInvalidAmount, "amount must be a positive number"), nil
	}

	now := e.now()
	if date.IsZero() {
		date = now
	}

	inc := model.Income{
		SyncMeta: model.NewMeta(now),
		Amount:   amount,
		Source:   source,
		Date:     date,
		Kind:     model.KindPlain,
	}
	if err := e.appendIncome(inc); err != nil {
		return Result{}, err
	}
	return Result{OK: true, ID: inc.ID, Message: "income recorded"}, nil
}

// DeleteExpense soft-deletes an expense. The tombstone stays in the store
// until its deletion has been pushed.
func (e *Engine) DeleteExpense(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	expenses, err := e.store.Expenses()
	if err != nil {
		return err
	}
	for i := range expenses {
		if expenses[i].ID == id {
			expenses[i].Deleted = true
			expenses[i].Touch()
			return e.store.SetExpenses(expenses)
		}
	}
	return fmt.Errorf("expense %s not found", id)
}

// DeleteIncome soft-deletes an income record.
func (e *Engine) DeleteIncome(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	incomes, err := e.store.Incomes()
	if err != nil {
		return err
	}
	for i := range incomes {
		if incomes[i].ID == id {
			incomes[i].Deleted = true
			incomes[i].Touch()
			return e.store.SetIncomes(incomes)
		}
	}
	return fmt.Errorf("income %s not found", id)
}

// SetBudget creates or updates the budget for a category. A category may
// carry at most one live budget, except "other" which is distinguished by
// its free-text reference.
func (e *Engine) SetBudget(category string, amount decimal.Decimal, otherReference, notes string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.LessThanOrEqual(decimal.Zero) {
		return failure(CodeInvalidAmount, "amount must be a positive number"), nil
	}
	if category != model.CategoryOther {
		otherReference = ""
	}

	budgets, err := e.store.Budgets()
	if err != nil {
		return Result{}, err
	}

	for i := range budgets {
		b := &budgets[i]
		if b.Deleted || b.Category != category {
			continue
		}
		if category == model.CategoryOther && b.OtherReference != otherReference {
			continue
		}
		b.Amount = amount
		b.Notes = notes
		b.Touch()
		if err := e.store.SetBudgets(budgets); err != nil {
			return Result{}, err
		}
		return Result{OK: true, ID: b.ID, Message: "budget updated"}, nil
	}

	budget := model.Budget{
		SyncMeta:       model.NewMeta(e.now()),
		Category:       category,
		Amount:         amount,
		OtherReference: otherReference,
		Notes:          notes,
	}
	if err := e.store.SetBudgets(append(budgets, budget)); err != nil {
		return Result{}, err
	}
	return Result{OK: true, ID: budget.ID, Message: "budget created"}, nil
}

// DeleteBudget soft-deletes a budget.
func (e *Engine) DeleteBudget(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	budgets, err := e.store.Budgets()
	if err != nil {
		return err
	}
	for i := range budgets {
		if budgets[i].ID == id {
			budgets[i].Deleted = true
			budgets[i].Touch()
			return e.store.SetBudgets(budgets)
		}
	}
	return fmt.Errorf("budget %s not found", id)
}

// CreateSaving creates a savings pot with a zero balance. Money only enters
// through AddToSaving so the paired-write rule cannot be bypassed.
func (e *Engine) CreateSaving(name string, typ model.SavingType, targetAmount decimal.Decimal, targetDate time.Time, auto *model.AutoWithdraw) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if typ != model.SavingGoal {
		typ = model.SavingFree
		targetAmount = decimal.Zero
		targetDate = time.Time{}
	}

	saving := model.Saving{
		SyncMeta:     model.NewMeta(e.now()),
		Name:         name,
		Type:         typ,
		Balance:      decimal.Zero,
		TargetAmount: targetAmount,
		TargetDate:   targetDate,
		AutoWithdraw: auto,
	}

	savings, err := e.store.Savings()
	if err != nil {
		return Result{}, err
	}
	if err := e.store.SetSavings(append(savings, saving)); err != nil {
		return Result{}, err
	}
	return Result{OK: true, ID: saving.ID, Message: "saving created"}, nil
}
