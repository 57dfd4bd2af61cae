package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/volako-app/volako/internal/model"
)

// OpenGORM opens the relational remote store at the given DSN and migrates
// its schema. It backs self-hosted deployments and integration tests.
func OpenGORM(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to remote store: %w", err)
	}
	if err := db.AutoMigrate(
		&expenseRow{}, &incomeRow{}, &budgetRow{},
		&savingRow{}, &savingsTransactionRow{}, &settingsRow{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate remote schema: %w", err)
	}

	return &Store{
		Expenses:     &gormExpenses{db},
		Incomes:      &gormIncomes{db},
		Budgets:      &gormBudgets{db},
		Savings:      &gormSavings{db},
		Transactions: &gormTransactions{db},
		Settings:     &gormSettings{db},
		Health:       &gormHealth{db},
	}, nil
}

type gormHealth struct{ db *gorm.DB }

func (h *gormHealth) Ping(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Row types mirror the remote tables, one per collection, scoped by the
// owner_id column.

type expenseRow struct {
	ID             string          `gorm:"primaryKey"`
	OwnerID        string          `gorm:"index;not null"`
	Amount         decimal.Decimal `gorm:"type:numeric;not null"`
	Category       string
	OtherReference string
	Description    string
	Date           time.Time
	Kind           string
	SavingID       string
	Deleted        bool
	CreatedAt      time.Time
}

func (expenseRow) TableName() string { return "expenses" }

type incomeRow struct {
	ID        string          `gorm:"primaryKey"`
	OwnerID   string          `gorm:"index;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null"`
	Category  string
	Source    string
	Date      time.Time
	Kind      string
	SavingID  string
	Deleted   bool
	CreatedAt time.Time
}

func (incomeRow) TableName() string { return "incomes" }

type budgetRow struct {
	ID             string          `gorm:"primaryKey"`
	OwnerID        string          `gorm:"index;not null"`
	Category       string          `gorm:"not null"`
	Amount         decimal.Decimal `gorm:"type:numeric;not null"`
	OtherReference string
	Notes          string
	Deleted        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (budgetRow) TableName() string { return "budgets" }

type savingRow struct {
	ID                  string          `gorm:"primaryKey"`
	OwnerID             string          `gorm:"index;not null"`
	Name                string          `gorm:"not null"`
	Type                string          `gorm:"not null"`
	Balance             decimal.Decimal `gorm:"type:numeric;not null"`
	TargetAmount        decimal.Decimal `gorm:"type:numeric"`
	TargetDate          time.Time
	AutoWithdrawEnabled bool
	AutoWithdrawAmount  decimal.Decimal `gorm:"type:numeric"`
	AutoWithdrawDate    time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (savingRow) TableName() string { return "savings" }

type savingsTransactionRow struct {
	ID           string          `gorm:"primaryKey"`
	OwnerID      string          `gorm:"index;not null"`
	SavingsID    string          `gorm:"index;not null"`
	Amount       decimal.Decimal `gorm:"type:numeric;not null"`
	Type         string          `gorm:"not null"`
	Description  string
	Date         time.Time
	BalanceAfter decimal.Decimal `gorm:"type:numeric"`
	CreatedAt    time.Time
}

func (savingsTransactionRow) TableName() string { return "savings_transactions" }

type settingsRow struct {
	OwnerID   string `gorm:"primaryKey"`
	Theme     string
	Language  string
	Currency  string
	UpdatedAt time.Time
}

func (settingsRow) TableName() string { return "user_settings" }

type gormExpenses struct{ db *gorm.DB }

func (t *gormExpenses) List(ctx context.Context, owner string) ([]model.Expense, error) {
	var rows []expenseRow
	if err := t.db.WithContext(ctx).Where("owner_id = ?", owner).Order("date DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing remote expenses: %w", err)
	}
	out := make([]model.Expense, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Expense{
			SyncMeta:       model.SyncMeta{ID: r.ID, Deleted: r.Deleted, CreatedAt: r.CreatedAt},
			Amount:         r.Amount,
			Category:       r.Category,
			OtherReference: r.OtherReference,
			Description:    r.Description,
			Date:           r.Date,
			Kind:           model.TransferKind(r.Kind),
			SavingID:       r.SavingID,
		})
	}
	return out, nil
}

func (t *gormExpenses) Insert(ctx context.Context, owner string, records []model.Expense) error {
	rows := make([]expenseRow, 0, len(records))
	for _, e := range records {
		rows = append(rows, expenseRow{
			ID: e.ID, OwnerID: owner, Amount: e.Amount, Category: e.Category,
			OtherReference: e.OtherReference, Description: e.Description,
			Date: e.Date, Kind: string(e.Kind), SavingID: e.SavingID,
			Deleted: e.Deleted, CreatedAt: e.CreatedAt,
		})
	}
	if err := t.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("inserting remote expenses: %w", err)
	}
	return nil
}

func (t *gormExpenses) Update(ctx context.Context, owner string, e model.Expense) error {
	err := t.db.WithContext(ctx).Model(&expenseRow{}).
		Where("id = ? AND owner_id = ?", e.ID, owner).
		Updates(map[string]any{
			"amount":          e.Amount,
			"category":        e.Category,
			"other_reference": e.OtherReference,
			"description":     e.Description,
			"date":            e.Date,
			"kind":            string(e.Kind),
			"saving_id":       e.SavingID,
			"deleted":         e.Deleted,
		}).Error
	if err != nil {
		return fmt.Errorf("updating remote expense %s: %w", e.ID, err)
	}
	return nil
}

func (t *gormExpenses) Delete(ctx context.Context, owner, id string) error {
	err := t.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).Delete(&expenseRow{}).Error
	if err != nil {
		return fmt.Errorf("deleting remote expense %s: %w", id, err)
	}
	return nil
}

type gormIncomes struct{ db *gorm.DB }

func (t *gormIncomes) List(ctx context.Context, owner string) ([]model.Income, error) {
	var rows []incomeRow
	if err := t.db.WithContext(ctx).Where("owner_id = ?", owner).Order("date DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing remote incomes: %w", err)
	}
	out := make([]model.Income, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Income{
			SyncMeta: model.SyncMeta{ID: r.ID, Deleted: r.Deleted, CreatedAt: r.CreatedAt},
			Amount:   r.Amount,
			Category: r.Category,
			Source:   r.Source,
			Date:     r.Date,
			Kind:     model.TransferKind(r.Kind),
			SavingID: r.SavingID,
		})
	}
	return out, nil
}

func (t *gormIncomes) Insert(ctx context.Context, owner string, records []model.Income) error {
	rows := make([]incomeRow, 0, len(records))
	for _, inc := range records {
		rows = append(rows, incomeRow{
			ID: inc.ID, OwnerID: owner, Amount: inc.Amount, Category: inc.Category,
			Source: inc.Source, Date: inc.Date, Kind: string(inc.Kind),
			SavingID: inc.SavingID, Deleted: inc.Deleted, CreatedAt: inc.CreatedAt,
		})
	}
	if err := t.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("inserting remote incomes: %w", err)
	}
	return nil
}

func (t *gormIncomes) Update(ctx context.Context, owner string, inc model.Income) error {
	err := t.db.WithContext(ctx).Model(&incomeRow{}).
		Where("id = ? AND owner_id = ?", inc.ID, owner).
		Updates(map[string]any{
			"amount":    inc.Amount,
			"category":  inc.Category,
			"source":    inc.Source,
			"date":      inc.Date,
			"kind":      string(inc.Kind),
			"saving_id": inc.SavingID,
			"deleted":   inc.Deleted,
		}).Error
	if err != nil {
		return fmt.Errorf("updating remote income %s: %w", inc.ID, err)
	}
	return nil
}

func (t *gormIncomes) Delete(ctx context.Context, owner, id string) error {
	err := t.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).Delete(&incomeRow{}).Error
	if err != nil {
		return fmt.Errorf("deleting remote income %s: %w", id, err)
	}
	return nil
}

type gormBudgets struct{ db *gorm.DB }

func (t *gormBudgets) List(ctx context.Context, owner string) ([]model.Budget, error) {
	var rows []budgetRow
	if err := t.db.WithContext(ctx).Where("owner_id = ?", owner).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing remote budgets: %w", err)
	}
	out := make([]model.Budget, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Budget{
			SyncMeta:       model.SyncMeta{ID: r.ID, Deleted: r.Deleted, CreatedAt: r.CreatedAt},
			Category:       r.Category,
			Amount:         r.Amount,
			OtherReference: r.OtherReference,
			Notes:          r.Notes,
		})
	}
	return out, nil
}

func (t *gormBudgets) Insert(ctx context.Context, owner string, records []model.Budget) error {
	rows := make([]budgetRow, 0, len(records))
	for _, b := range records {
		rows = append(rows, budgetRow{
			ID: b.ID, OwnerID: owner, Category: b.Category, Amount: b.Amount,
			OtherReference: b.OtherReference, Notes: b.Notes,
			Deleted: b.Deleted, CreatedAt: b.CreatedAt,
		})
	}
	if err := t.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("inserting remote budgets: %w", err)
	}
	return nil
}

func (t *gormBudgets) Update(ctx context.Context, owner string, b model.Budget) error {
	err := t.db.WithContext(ctx).Model(&budgetRow{}).
		Where("id = ? AND owner_id = ?", b.ID, owner).
		Updates(map[string]any{
			"category":        b.Category,
			"amount":          b.Amount,
			"other_reference": b.OtherReference,
			"notes":           b.Notes,
			"deleted":         b.Deleted,
		}).Error
	if err != nil {
		return fmt.Errorf("updating remote budget %s: %w", b.ID, err)
	}
	return nil
}

func (t *gormBudgets) Delete(ctx context.Context, owner, id string) error {
	err := t.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).Delete(&budgetRow{}).Error
	if err != nil {
		return fmt.Errorf("deleting remote budget %s: %w", id, err)
	}
	return nil
}

type gormSavings struct{ db *gorm.DB }

func (t *gormSavings) List(ctx context.Context, owner string) ([]model.Saving, error) {
	var rows []savingRow
	if err := t.db.WithContext(ctx).Where("owner_id = ?", owner).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing remote savings: %w", err)
	}
	out := make([]model.Saving, 0, len(rows))
	for _, r := range rows {
		s := model.Saving{
			SyncMeta:     model.SyncMeta{ID: r.ID, CreatedAt: r.CreatedAt},
			Name:         r.Name,
			Type:         model.SavingType(r.Type),
			Balance:      r.Balance,
			TargetAmount: r.TargetAmount,
			TargetDate:   r.TargetDate,
		}
		if r.AutoWithdrawEnabled {
			s.AutoWithdraw = &model.AutoWithdraw{
				Enabled: true,
				Amount:  r.AutoWithdrawAmount,
				Date:    r.AutoWithdrawDate,
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (t *gormSavings) Insert(ctx context.Context, owner string, records []model.Saving) error {
	rows := make([]savingRow, 0, len(records))
	for _, s := range records {
		row := savingRow{
			ID: s.ID, OwnerID: owner, Name: s.Name, Type: string(s.Type),
			Balance: s.Balance, TargetAmount: s.TargetAmount, TargetDate: s.TargetDate,
			CreatedAt: s.CreatedAt,
		}
		if s.AutoWithdraw != nil {
			row.AutoWithdrawEnabled = s.AutoWithdraw.Enabled
			row.AutoWithdrawAmount = s.AutoWithdraw.Amount
			row.AutoWithdrawDate = s.AutoWithdraw.Date
		}
		rows = append(rows, row)
	}
	if err := t.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("inserting remote savings: %w", err)
	}
	return nil
}

func (t *gormSavings) Update(ctx context.Context, owner string, s model.Saving) error {
	updates := map[string]any{
		"name":          s.Name,
		"type":          string(s.Type),
		"balance":       s.Balance,
		"target_amount": s.TargetAmount,
		"target_date":   s.TargetDate,
	}
	if s.AutoWithdraw != nil {
		updates["auto_withdraw_enabled"] = s.AutoWithdraw.Enabled
		updates["auto_withdraw_amount"] = s.AutoWithdraw.Amount
		updates["auto_withdraw_date"] = s.AutoWithdraw.Date
	} else {
		updates["auto_withdraw_enabled"] = false
	}
	err := t.db.WithContext(ctx).Model(&savingRow{}).
		Where("id = ? AND owner_id = ?", s.ID, owner).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("updating remote saving %s: %w", s.ID, err)
	}
	return nil
}

func (t *gormSavings) Delete(ctx context.Context, owner, id string) error {
	err := t.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).Delete(&savingRow{}).Error
	if err != nil {
		return fmt.Errorf("deleting remote saving %s: %w", id, err)
	}
	return nil
}

type gormTransactions struct{ db *gorm.DB }

func (t *gormTransactions) List(ctx context.Context, owner string) ([]model.SavingsTransaction, error) {
	var rows []savingsTransactionRow
	if err := t.db.WithContext(ctx).Where("owner_id = ?", owner).Order("date DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing remote savings transactions: %w", err)
	}
	out := make([]model.SavingsTransaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.SavingsTransaction{
			SyncMeta:     model.SyncMeta{ID: r.ID, CreatedAt: r.CreatedAt},
			SavingID:     r.SavingsID,
			Amount:       r.Amount,
			Type:         model.TransactionType(r.Type),
			Description:  r.Description,
			Date:         r.Date,
			BalanceAfter: r.BalanceAfter,
		})
	}
	return out, nil
}

func (t *gormTransactions) Insert(ctx context.Context, owner string, records []model.SavingsTransaction) error {
	rows := make([]savingsTransactionRow, 0, len(records))
	for _, tx := range records {
		rows = append(rows, savingsTransactionRow{
			ID: tx.ID, OwnerID: owner, SavingsID: tx.SavingID, Amount: tx.Amount,
			Type: string(tx.Type), Description: tx.Description, Date: tx.Date,
			BalanceAfter: tx.BalanceAfter, CreatedAt: tx.CreatedAt,
		})
	}
	if err := t.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("inserting remote savings transactions: %w", err)
	}
	return nil
}

// Savings transactions are append-only; Update exists to satisfy the table
// contract but only refreshes the description.
func (t *gormTransactions) Update(ctx context.Context, owner string, tx model.SavingsTransaction) error {
	err := t.db.WithContext(ctx).Model(&savingsTransactionRow{}).
		Where("id = ? AND owner_id = ?", tx.ID, owner).
		Update("description", tx.Description).Error
	if err != nil {
		return fmt.Errorf("updating remote savings transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (t *gormTransactions) Delete(ctx context.Context, owner, id string) error {
	err := t.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).Delete(&savingsTransactionRow{}).Error
	if err != nil {
		return fmt.Errorf("deleting remote savings transaction %s: %w", id, err)
	}
	return nil
}

type gormSettings struct{ db *gorm.DB }

func (t *gormSettings) Get(ctx context.Context, owner string) (model.Settings, bool, error) {
	var row settingsRow
	err := t.db.WithContext(ctx).Where("owner_id = ?", owner).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Settings{}, false, nil
	}
	if err != nil {
		return model.Settings{}, false, fmt.Errorf("reading remote settings: %w", err)
	}
	return model.Settings{Theme: row.Theme, Language: row.Language, Currency: row.Currency}, true, nil
}

func (t *gormSettings) Upsert(ctx context.Context, owner string, settings model.Settings) error {
	row := settingsRow{
		OwnerID:   owner,
		Theme:     settings.Theme,
		Language:  settings.Language,
		Currency:  settings.Currency,
		UpdatedAt: time.Now().UTC(),
	}
	err := t.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("upserting remote settings: %w", err)
	}
	return nil
}
