// Package model defines the persisted record types shared by the local
// store, the finance engine, and the sync manager.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collection keys for the local record store and the remote tables.
const (
	KeyExpenses            = "expenses"
	KeyIncomes             = "incomes"
	KeyBudgets             = "budgets"
	KeySavings             = "savings"
	KeySavingsTransactions = "savings-transactions"
	KeySavingsJobs         = "savings-jobs"
	KeyTheme               = "theme"
	KeyLanguage            = "language"
	KeyCurrency            = "currency"
	KeyUser                = "user"
	KeyToken               = "token"
)

// TransferKind tags an expense or income as either a user-entered record or
// the automatic mirror of a savings transfer. The reserved category strings
// are kept on the record for display, but all transfer logic keys on Kind.
type TransferKind string

const (
	KindPlain             TransferKind = "plain"
	KindSavingsTransfer   TransferKind = "savings-transfer"
	KindSavingsWithdrawal TransferKind = "savings-withdrawal"
)

// Reserved category values written on mirror records.
const (
	CategorySavings           = "savings-transfer"
	CategorySavingsWithdrawal = "savings-withdrawal"
	CategoryOther             = "other"
)

// SyncMeta carries the per-record bookkeeping the sync manager relies on.
// A record is dirty (Synced == false) from creation or mutation until its
// first successful push; remote-origin records always arrive synced.
type SyncMeta struct {
	ID        string    `json:"id"`
	Synced    bool      `json:"synced"`
	Modified  bool      `json:"modified,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordID returns the record's unique id within its collection.
func (m *SyncMeta) RecordID() string { return m.ID }

// Unsynced reports whether the record still awaits a push.
func (m *SyncMeta) Unsynced() bool { return !m.Synced }

// IsModified reports whether the record was edited since its last push.
func (m *SyncMeta) IsModified() bool { return m.Modified }

// IsDeleted reports whether the record is a soft-delete tombstone.
func (m *SyncMeta) IsDeleted() bool { return m.Deleted }

// MarkSynced flips the record to the pushed state.
func (m *SyncMeta) MarkSynced() {
	m.Synced = true
	m.Modified = false
}

// Touch marks the record dirty after a local edit.
func (m *SyncMeta) Touch() {
	m.Synced = false
	m.Modified = true
}

// NewMeta returns fresh sync metadata for a locally created record.
func NewMeta(now time.Time) SyncMeta {
	return SyncMeta{ID: NewID(), CreatedAt: now}
}

// NewID generates a collision-resistant record id.
func NewID() string { return uuid.NewString() }

// Expense is one outgoing transaction.
type Expense struct {
	SyncMeta
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category"`
	OtherReference string          `json:"other_reference,omitempty"`
	Description    string          `json:"description"`
	Date           time.Time       `json:"date"`
	Kind           TransferKind    `json:"kind,omitempty"`
	SavingID       string          `json:"saving_id,omitempty"`
}

// Income is one incoming transaction.
type Income struct {
	SyncMeta
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category,omitempty"`
	Source   string          `json:"source"`
	Date     time.Time       `json:"date"`
	Kind     TransferKind    `json:"kind,omitempty"`
	SavingID string          `json:"saving_id,omitempty"`
}

// Budget is a monthly spending envelope for one category. The category is
// unique among non-deleted budgets unless it is "other".
type Budget struct {
	SyncMeta
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	OtherReference string          `json:"other_reference,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// SavingType distinguishes free-form savings from goal-driven ones.
type SavingType string

const (
	SavingFree SavingType = "free"
	SavingGoal SavingType = "goal"
)

// AutoWithdraw is the schedule configuration for automatic withdrawals.
// Execution state lives in the separate savings-jobs collection.
type AutoWithdraw struct {
	Enabled bool            `json:"enabled"`
	Amount  decimal.Decimal `json:"amount"`
	Date    time.Time       `json:"date"`
}

// Saving is one savings pot. Balance is the authoritative running total and
// must equal the sum of its add transactions minus its withdrawals.
type Saving struct {
	SyncMeta
	Name         string          `json:"name"`
	Type         SavingType      `json:"type"`
	Balance      decimal.Decimal `json:"balance"`
	TargetAmount decimal.Decimal `json:"target_amount,omitempty"`
	TargetDate   time.Time       `json:"target_date,omitempty"`
	AutoWithdraw *AutoWithdraw   `json:"auto_withdraw,omitempty"`
}

// TransactionType is the direction of a savings transaction.
type TransactionType string

const (
	TransactionAdd      TransactionType = "add"
	TransactionWithdraw TransactionType = "withdraw"
)

// SavingsTransaction is one entry in the savings audit log, with a snapshot
// of the saving's balance after the operation.
type SavingsTransaction struct {
	SyncMeta
	SavingID     string          `json:"savings_id"`
	Amount       decimal.Decimal `json:"amount"`
	Type         TransactionType `json:"type"`
	Description  string          `json:"description,omitempty"`
	Date         time.Time       `json:"date"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// JobState tracks a scheduled auto-withdrawal through its lifecycle.
type JobState string

const (
	JobScheduled JobState = "scheduled"
	JobExecuted  JobState = "executed"
	JobFailed    JobState = "failed"
)

// WithdrawJob is one scheduled auto-withdrawal, keyed by saving and date so
// a schedule fires at most once per due date.
type WithdrawJob struct {
	SyncMeta
	SavingID     string          `json:"savings_id"`
	Amount       decimal.Decimal `json:"amount"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	State        JobState        `json:"state"`
	RanAt        time.Time       `json:"ran_at,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Settings are the per-user preferences mirrored to the remote store.
type Settings struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
	Currency string `json:"currency"`
}
