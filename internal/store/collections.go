package store

import "github.com/volako-app/volako/internal/model"

// Typed accessors for the named collections. These are thin wrappers so
// callers never spell collection keys by hand.

func (s *Store) Expenses() ([]model.Expense, error) {
	return Get[model.Expense](s, model.KeyExpenses)
}

func (s *Store) SetExpenses(records []model.Expense) error {
	return Set(s, model.KeyExpenses, records)
}

func (s *Store) Incomes() ([]model.Income, error) {
	return Get[model.Income](s, model.KeyIncomes)
}

func (s *Store) SetIncomes(records []model.Income) error {
	return Set(s, model.KeyIncomes, records)
}

func (s *Store) Budgets() ([]model.Budget, error) {
	return Get[model.Budget](s, model.KeyBudgets)
}

func (s *Store) SetBudgets(records []model.Budget) error {
	return Set(s, model.KeyBudgets, records)
}

func (s *Store) Savings() ([]model.Saving, error) {
	return Get[model.Saving](s, model.KeySavings)
}

func (s *Store) SetSavings(records []model.Saving) error {
	return Set(s, model.KeySavings, records)
}

func (s *Store) SavingsTransactions() ([]model.SavingsTransaction, error) {
	return Get[model.SavingsTransaction](s, model.KeySavingsTransactions)
}

func (s *Store) SetSavingsTransactions(records []model.SavingsTransaction) error {
	return Set(s, model.KeySavingsTransactions, records)
}

func (s *Store) WithdrawJobs() ([]model.WithdrawJob, error) {
	return Get[model.WithdrawJob](s, model.KeySavingsJobs)
}

func (s *Store) SetWithdrawJobs(records []model.WithdrawJob) error {
	return Set(s, model.KeySavingsJobs, records)
}

// Settings gathers the scalar preference keys into one struct, applying the
// given defaults for unset keys.
func (s *Store) Settings(def model.Settings) (model.Settings, error) {
	theme, err := s.GetString(model.KeyTheme, def.Theme)
	if err != nil {
		return def, err
	}
	language, err := s.GetString(model.KeyLanguage, def.Language)
	if err != nil {
		return def, err
	}
	currency, err := s.GetString(model.KeyCurrency, def.Currency)
	if err != nil {
		return def, err
	}
	return model.Settings{Theme: theme, Language: language, Currency: currency}, nil
}

// SetSettings writes the scalar preference keys.
func (s *Store) SetSettings(settings model.Settings) error {
	if err := s.SetString(model.KeyTheme, settings.Theme); err != nil {
		return err
	}
	if err := s.SetString(model.KeyLanguage, settings.Language); err != nil {
		return err
	}
	return s.SetString(model.KeyCurrency, settings.Currency)
}
