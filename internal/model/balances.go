package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balances holds every derived figure the engine computes in one pass.
// AvailableBalance is all-time income minus all-time expenses and is the
// only figure validations are checked against; the period fields are
// display statistics for the requested window.
type Balances struct {
	PeriodStart time.Time
	PeriodEnd   time.Time

	// Period statistics.
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	PeriodBalance decimal.Decimal

	// All-time figures.
	AllTimeIncome   decimal.Decimal
	AllTimeExpenses decimal.Decimal

	// Savings.
	TotalSaved             decimal.Decimal
	PeriodSavingsAdded     decimal.Decimal
	PeriodSavingsWithdrawn decimal.Decimal

	AvailableBalance        decimal.Decimal
	TotalBalanceWithSavings decimal.Decimal

	IncomeCount  int
	ExpenseCount int
	SavingsCount int
}

// LedgerEntry is one row of the unified transaction history. Impact is
// signed: positive for incomes, negative for expenses.
type LedgerEntry struct {
	ID          string
	Kind        TransferKind
	Income      bool
	Amount      decimal.Decimal
	Impact      decimal.Decimal
	Category    string
	Description string
	Date        time.Time
}

// RebuiltBalances is the result of replaying the full history from empty.
type RebuiltBalances struct {
	TotalIncome             decimal.Decimal
	TotalExpenses           decimal.Decimal
	TotalSaved              decimal.Decimal
	AvailableBalance        decimal.Decimal
	TotalBalanceWithSavings decimal.Decimal
	TransactionCount        int
}

// IntegrityReport lists detected inconsistencies without correcting them.
type IntegrityReport struct {
	Timestamp time.Time
	Valid     bool
	Errors    []string
	Warnings  []string
	Balances  Balances
	Rebuilt   RebuiltBalances
}
