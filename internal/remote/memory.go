package remote

import (
	"context"
	"sync"

	"github.com/volako-app/volako/internal/model"
)

// MemoryBackend is an in-memory remote store used by tests and local demos.
// All tables share one mutex and one failure switch so a test can simulate
// an unreachable or failing remote.
type MemoryBackend struct {
	mu    sync.RWMutex
	err   error
	opErr error

	expenses     map[string]map[string]model.Expense
	incomes      map[string]map[string]model.Income
	budgets      map[string]map[string]model.Budget
	savings      map[string]map[string]model.Saving
	transactions map[string]map[string]model.SavingsTransaction
	settings     map[string]model.Settings
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		expenses:     make(map[string]map[string]model.Expense),
		incomes:      make(map[string]map[string]model.Income),
		budgets:      make(map[string]map[string]model.Budget),
		savings:      make(map[string]map[string]model.Saving),
		transactions: make(map[string]map[string]model.SavingsTransaction),
		settings:     make(map[string]model.Settings),
	}
}

// Store returns the backend wrapped in the Store bundle.
func (b *MemoryBackend) Store() *Store {
	return &Store{
		Expenses:     &memTable[model.Expense]{b: b, rows: b.expenses},
		Incomes:      &memTable[model.Income]{b: b, rows: b.incomes},
		Budgets:      &memTable[model.Budget]{b: b, rows: b.budgets},
		Savings:      &memTable[model.Saving]{b: b, rows: b.savings},
		Transactions: &memTable[model.SavingsTransaction]{b: b, rows: b.transactions},
		Settings:     &memSettings{b: b},
		Health:       b,
	}
}

// SetError makes every subsequent operation, including Ping, fail with err.
// Pass nil to restore normal behavior.
func (b *MemoryBackend) SetError(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

// SetFailOps makes table and settings operations fail while Ping still
// succeeds, simulating a reachable but misbehaving remote.
func (b *MemoryBackend) SetFailOps(fail bool) {
	b.mu.Lock()
	if fail {
		b.opErr = ErrUnavailable
	} else {
		b.opErr = nil
	}
	b.mu.Unlock()
}

// failure returns the error table operations should surface. Callers hold
// b.mu.
func (b *MemoryBackend) failure() error {
	if b.err != nil {
		return b.err
	}
	return b.opErr
}

// Ping reports the injected failure, if any.
func (b *MemoryBackend) Ping(_ context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

type idCarrier interface{ RecordID() string }

func recordID[T any](rec T) string {
	return any(&rec).(idCarrier).RecordID()
}

type memTable[T any] struct {
	b    *MemoryBackend
	rows map[string]map[string]T
}

func (t *memTable[T]) ownerRows(owner string) map[string]T {
	rows, ok := t.rows[owner]
	if !ok {
		rows = make(map[string]T)
		t.rows[owner] = rows
	}
	return rows
}

func (t *memTable[T]) List(_ context.Context, owner string) ([]T, error) {
	t.b.mu.RLock()
	defer t.b.mu.RUnlock()
	if err := t.b.failure(); err != nil {
		return nil, err
	}
	var out []T
	for _, rec := range t.rows[owner] {
		out = append(out, rec)
	}
	return out, nil
}

func (t *memTable[T]) Insert(_ context.Context, owner string, records []T) error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if err := t.b.failure(); err != nil {
		return err
	}
	rows := t.ownerRows(owner)
	for _, rec := range records {
		rows[recordID(rec)] = rec
	}
	return nil
}

func (t *memTable[T]) Update(_ context.Context, owner string, record T) error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if err := t.b.failure(); err != nil {
		return err
	}
	t.ownerRows(owner)[recordID(record)] = record
	return nil
}

func (t *memTable[T]) Delete(_ context.Context, owner, id string) error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if err := t.b.failure(); err != nil {
		return err
	}
	delete(t.ownerRows(owner), id)
	return nil
}

type memSettings struct{ b *MemoryBackend }

func (s *memSettings) Get(_ context.Context, owner string) (model.Settings, bool, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	if err := s.b.failure(); err != nil {
		return model.Settings{}, false, err
	}
	settings, ok := s.b.settings[owner]
	return settings, ok, nil
}

func (s *memSettings) Upsert(_ context.Context, owner string, settings model.Settings) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if err := s.b.failure(); err != nil {
		return err
	}
	s.b.settings[owner] = settings
	return nil
}
