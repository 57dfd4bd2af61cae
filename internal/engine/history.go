package engine

import (
	"sort"

	"github.com/volako-app/volako/internal/model"
)

// TransactionHistory returns every live income and expense as one signed
// stream, most recent first. Incomes carry a positive impact, expenses a
// negative one.
func (e *Engine) TransactionHistory() ([]model.LedgerEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transactionHistory()
}

func (e *Engine) transactionHistory() ([]model.LedgerEntry, error) {
	incomes, err := e.store.Incomes()
	if err != nil {
		return nil, err
	}
	expenses, err := e.store.Expenses()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LedgerEntry, 0, len(incomes)+len(expenses))
	for _, inc := range incomes {
		if inc.Deleted {
			continue
		}
		entries = append(entries, model.LedgerEntry{
			ID:          inc.ID,
			Kind:        inc.Kind,
			Income:      true,
			Amount:      inc.Amount,
			Impact:      inc.Amount,
			Category:    inc.Category,
			Description: inc.Source,
			Date:        inc.Date,
		})
	}
	for _, exp := range expenses {
		if exp.Deleted {
			continue
		}
		entries = append(entries, model.LedgerEntry{
			ID:          exp.ID,
			Kind:        exp.Kind,
			Amount:      exp.Amount,
			Impact:      exp.Amount.Neg(),
			Category:    exp.Category,
			Description: exp.Description,
			Date:        exp.Date,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries, nil
}

// RebuildFromHistory replays the full transaction history from an empty
// state. Used by integrity checking to cross-check the live figures.
func (e *Engine) RebuildFromHistory() (model.RebuiltBalances, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rebuildFromHistory()
}

func (e *Engine) rebuildFromHistory() (model.RebuiltBalances, error) {
	history, err := e.transactionHistory()
	if err != nil {
		return model.RebuiltBalances{}, err
	}
	savings, err := e.store.Savings()
	if err != nil {
		return model.RebuiltBalances{}, err
	}

	var rebuilt model.RebuiltBalances
	for _, entry := range history {
		if entry.Income {
			rebuilt.TotalIncome = rebuilt.TotalIncome.Add(entry.Amount)
		} else {
			rebuilt.TotalExpenses = rebuilt.TotalExpenses.Add(entry.Amount)
		}
	}
	for _, s := range savings {
		if s.Deleted {
			continue
		}
		rebuilt.TotalSaved = rebuilt.TotalSaved.Add(s.Balance)
	}

	rebuilt.AvailableBalance = rebuilt.TotalIncome.Sub(rebuilt.TotalExpenses)
	rebuilt.TotalBalanceWithSavings = rebuilt.AvailableBalance.Add(rebuilt.TotalSaved)
	rebuilt.TransactionCount = len(history)
	return rebuilt, nil
}
