package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/volako-app/volako/internal/model"
)

// CheckIntegrity reconciles the live balances against an independent
// rebuild from the transaction history and scans the ledgers for values
// that should be impossible. It is a diagnostic: nothing is mutated and
// nothing is repaired.
func (e *Engine) CheckIntegrity() (model.IntegrityReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := model.IntegrityReport{Timestamp: e.now(), Valid: true}

	balances, err := e.balances(time.Time{}, time.Time{})
	if err != nil {
		return report, err
	}
	rebuilt, err := e.rebuildFromHistory()
	if err != nil {
		return report, err
	}
	report.Balances = balances
	report.Rebuilt = rebuilt

	if drift(balances.AllTimeIncome, rebuilt.TotalIncome) {
		report.Errors = append(report.Errors,
			fmt.Sprintf("income mismatch: ledger %s vs history %s", balances.AllTimeIncome, rebuilt.TotalIncome))
	}
	if drift(balances.AllTimeExpenses, rebuilt.TotalExpenses) {
		report.Errors = append(report.Errors,
			fmt.Sprintf("expense mismatch: ledger %s vs history %s", balances.AllTimeExpenses, rebuilt.TotalExpenses))
	}
	if drift(balances.AvailableBalance, rebuilt.AvailableBalance) {
		report.Errors = append(report.Errors,
			fmt.Sprintf("available balance mismatch: ledger %s vs history %s", balances.AvailableBalance, rebuilt.AvailableBalance))
	}

	if err := e.scanNegatives(&report); err != nil {
		return report, err
	}
	if err := e.reconcileSavings(&report); err != nil {
		return report, err
	}

	report.Valid = len(report.Errors) == 0
	return report, nil
}

// drift reports whether two totals differ by more than the epsilon used to
// tolerate floating-point residue in imported data.
func drift(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(epsilon)
}

func (e *Engine) scanNegatives(report *model.IntegrityReport) error {
	incomes, err := e.store.Incomes()
	if err != nil {
		return err
	}
	for _, inc := range incomes {
		if inc.Amount.IsNegative() {
			report.Errors = append(report.Errors, fmt.Sprintf("negative income amount: %s", inc.ID))
		}
	}

	expenses, err := e.store.Expenses()
	if err != nil {
		return err
	}
	for _, exp := range expenses {
		if exp.Amount.IsNegative() {
			report.Errors = append(report.Errors, fmt.Sprintf("negative expense amount: %s", exp.ID))
		}
	}

	budgets, err := e.store.Budgets()
	if err != nil {
		return err
	}
	for _, b := range budgets {
		if b.Amount.IsNegative() {
			report.Errors = append(report.Errors, fmt.Sprintf("negative budget amount: %s", b.ID))
		}
	}

	savings, err := e.store.Savings()
	if err != nil {
		return err
	}
	for _, s := range savings {
		if s.Balance.IsNegative() {
			report.Errors = append(report.Errors, fmt.Sprintf("negative saving balance: %s", s.ID))
		}
	}
	return nil
}

// reconcileSavings checks, per saving, that the running balance equals the
// sum of its add transactions minus its withdrawals, and that every mirror
// record pairs with a logged transaction.
func (e *Engine) reconcileSavings(report *model.IntegrityReport) error {
	savings, err := e.store.Savings()
	if err != nil {
		return err
	}
	transactions, err := e.store.SavingsTransactions()
	if err != nil {
		return err
	}
	expenses, err := e.store.Expenses()
	if err != nil {
		return err
	}
	incomes, err := e.store.Incomes()
	if err != nil {
		return err
	}

	ledger := make(map[string]decimal.Decimal)
	adds, withdrawals := 0, 0
	for _, tx := range transactions {
		switch tx.Type {
		case model.TransactionAdd:
			ledger[tx.SavingID] = ledger[tx.SavingID].Add(tx.Amount)
			adds++
		case model.TransactionWithdraw:
			ledger[tx.SavingID] = ledger[tx.SavingID].Sub(tx.Amount)
			withdrawals++
		}
	}

	for _, s := range savings {
		if s.Deleted {
			continue
		}
		if drift(s.Balance, ledger[s.ID]) {
			report.Errors = append(report.Errors,
				fmt.Sprintf("saving %s balance %s does not match its transaction log (%s)", s.ID, s.Balance, ledger[s.ID]))
		}
	}

	mirrorExpenses := 0
	for _, exp := range expenses {
		if !exp.Deleted && exp.Kind == model.KindSavingsTransfer {
			mirrorExpenses++
		}
	}
	mirrorIncomes := 0
	for _, inc := range incomes {
		if !inc.Deleted && inc.Kind == model.KindSavingsWithdrawal {
			mirrorIncomes++
		}
	}

	if mirrorExpenses != adds {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d savings-transfer expense(s) vs %d add transaction(s)", mirrorExpenses, adds))
	}
	if mirrorIncomes != withdrawals {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d savings-withdrawal income(s) vs %d withdraw transaction(s)", mirrorIncomes, withdrawals))
	}
	return nil
}
