// Package syncer reconciles the local record store against the remote
// store: it pushes locally-dirty records, pulls and merges remote records,
// and publishes sync status to observers. One manager instance runs at most
// one sync cycle at a time.
package syncer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/volako-app/volako/internal/model"
	"github.com/volako-app/volako/internal/notify"
	"github.com/volako-app/volako/internal/remote"
	"github.com/volako-app/volako/internal/store"
)

// DefaultInterval is the auto-sync period.
const DefaultInterval = 60 * time.Second

// Status is published to observers on every state transition.
type Status struct {
	Online    bool       `json:"online"`
	Syncing   bool       `json:"syncing"`
	LastSync  *time.Time `json:"last_sync,omitempty"`
	FinalSync bool       `json:"final_sync,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Result is the structured outcome of a pre-logout flush. Logout must
// proceed even when the flush fails, so failures are values, not errors.
type Result struct {
	Success bool
	Message string
	Pending int
}

// Manager keeps the local store and the remote store eventually consistent.
type Manager struct {
	store    *store.Store
	remote   *remote.Store
	identity remote.IdentityProvider
	notifier notify.Notifier
	interval time.Duration

	// syncGate is the reentrancy guard: a sync request arriving while a
	// cycle is in flight is dropped, not queued.
	syncGate sync.Mutex

	mu         sync.Mutex
	online     bool
	lastSync   *time.Time
	subs       []func(Status)
	cancelAuto context.CancelFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithInterval overrides the auto-sync interval.
func WithInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithNotifier routes human-facing messages to the given sink.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// New returns a sync manager over the given stores and identity provider.
func New(s *store.Store, r *remote.Store, identity remote.IdentityProvider, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		remote:   r,
		identity: identity,
		notifier: notify.Log{},
		interval: DefaultInterval,
		online:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnStatusChange registers an observer for status transitions.
func (m *Manager) OnStatusChange(fn func(Status)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// LastSync returns the time of the last successful sync, if any.
func (m *Manager) LastSync() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSync
}

func (m *Manager) publish(status Status) {
	m.mu.Lock()
	subs := make([]func(Status), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(status)
	}
}

func (m *Manager) status(online, syncing, finalSync bool, errMsg string) Status {
	m.mu.Lock()
	last := m.lastSync
	m.mu.Unlock()
	return Status{Online: online, Syncing: syncing, LastSync: last, FinalSync: finalSync, Error: errMsg}
}

// SetOnline records a network transition. Coming back online triggers an
// immediate sync.
func (m *Manager) SetOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()

	m.publish(m.status(online, false, false, ""))

	if online {
		m.notifier.Success("connection restored")
		_ = m.Sync(ctx)
	} else {
		m.notifier.Warning("you are offline; changes will sync on reconnection")
	}
}

// checkOnline probes the remote store. A failed probe means offline; it is
// never an error condition.
func (m *Manager) checkOnline(ctx context.Context) bool {
	m.mu.Lock()
	hint := m.online
	m.mu.Unlock()
	if !hint {
		return false
	}
	if err := m.remote.Health.Ping(ctx); err != nil {
		log.Printf("sync: connectivity probe failed: %v", err)
		return false
	}
	return true
}

// StartAutoSync syncs immediately, then on every interval tick until ctx
// is cancelled or StopAutoSync is called.
func (m *Manager) StartAutoSync(ctx context.Context) {
	m.StopAutoSync()

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancelAuto = cancel
	m.mu.Unlock()

	go func() {
		_ = m.Sync(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = m.Sync(ctx)
			}
		}
	}()
	log.Printf("sync: auto-sync started (every %s)", m.interval)
}

// StopAutoSync cancels the recurring timer. An in-flight sync cycle is not
// aborted; it runs to completion before the reentrancy gate clears.
func (m *Manager) StopAutoSync() {
	m.mu.Lock()
	cancel := m.cancelAuto
	m.cancelAuto = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		log.Printf("sync: auto-sync stopped")
	}
}

// Sync runs one push cycle over every collection. A request arriving while
// another cycle is in flight is dropped. Offline and signed-out states are
// quiet no-ops. A per-collection failure aborts the remaining steps of the
// cycle; records not yet pushed stay dirty and are retried next cycle.
func (m *Manager) Sync(ctx context.Context) error {
	if !m.syncGate.TryLock() {
		log.Printf("sync: cycle already in flight, request dropped")
		return nil
	}
	defer m.syncGate.Unlock()

	if !m.checkOnline(ctx) {
		m.publish(m.status(false, false, false, ""))
		return nil
	}

	identity, err := m.identity.CurrentUser(ctx)
	if err != nil {
		err = fmt.Errorf("resolving identity: %w", err)
		m.publish(m.status(true, false, false, err.Error()))
		return err
	}
	if identity == nil {
		log.Printf("sync: no authenticated identity, skipping")
		return nil
	}

	m.publish(m.status(true, true, false, ""))

	if err := m.pushAll(ctx, identity.ID); err != nil {
		log.Printf("sync: cycle failed: %v", err)
		m.notifier.Error("synchronization failed")
		m.publish(m.status(true, false, false, err.Error()))
		return err
	}

	now := time.Now()
	m.mu.Lock()
	m.lastSync = &now
	m.mu.Unlock()

	m.publish(m.status(true, false, false, ""))
	return nil
}

// pushAll pushes the collections in a fixed order. The order is not needed
// for correctness; it keeps logs deterministic.
func (m *Manager) pushAll(ctx context.Context, owner string) error {
	if err := m.pushSettings(ctx, owner); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := m.pushIncomes(ctx, owner); err != nil {
		return fmt.Errorf("incomes: %w", err)
	}
	if err := m.pushExpenses(ctx, owner); err != nil {
		return fmt.Errorf("expenses: %w", err)
	}
	if err := m.pushBudgets(ctx, owner); err != nil {
		return fmt.Errorf("budgets: %w", err)
	}
	if err := m.pushSavings(ctx, owner); err != nil {
		return fmt.Errorf("savings: %w", err)
	}
	if err := m.pushSavingsTransactions(ctx, owner); err != nil {
		return fmt.Errorf("savings transactions: %w", err)
	}
	return nil
}

func (m *Manager) pushSettings(ctx context.Context, owner string) error {
	settings, err := m.store.Settings(model.Settings{Theme: "light", Language: "fr", Currency: "MGA"})
	if err != nil {
		return err
	}
	return m.remote.Settings.Upsert(ctx, owner, settings)
}

func (m *Manager) pushIncomes(ctx context.Context, owner string) error {
	local, err := m.store.Incomes()
	if err != nil {
		return err
	}
	updated, changed, pushErr := pushCollection[model.Income, *model.Income](ctx, m.remote.Incomes, owner, local)
	if changed {
		if err := m.store.SetIncomes(updated); err != nil {
			return err
		}
	}
	return pushErr
}

func (m *Manager) pushExpenses(ctx context.Context, owner string) error {
	local, err := m.store.Expenses()
	if err != nil {
		return err
	}
	updated, changed, pushErr := pushCollection[model.Expense, *model.Expense](ctx, m.remote.Expenses, owner, local)
	if changed {
		if err := m.store.SetExpenses(updated); err != nil {
			return err
		}
	}
	return pushErr
}

func (m *Manager) pushBudgets(ctx context.Context, owner string) error {
	local, err := m.store.Budgets()
	if err != nil {
		return err
	}
	updated, changed, pushErr := pushCollection[model.Budget, *model.Budget](ctx, m.remote.Budgets, owner, local)
	if changed {
		if err := m.store.SetBudgets(updated); err != nil {
			return err
		}
	}
	return pushErr
}

func (m *Manager) pushSavings(ctx context.Context, owner string) error {
	local, err := m.store.Savings()
	if err != nil {
		return err
	}
	updated, changed, pushErr := pushCollection[model.Saving, *model.Saving](ctx, m.remote.Savings, owner, local)
	if changed {
		if err := m.store.SetSavings(updated); err != nil {
			return err
		}
	}
	return pushErr
}

func (m *Manager) pushSavingsTransactions(ctx context.Context, owner string) error {
	local, err := m.store.SavingsTransactions()
	if err != nil {
		return err
	}
	updated, changed, pushErr := pushCollection[model.SavingsTransaction, *model.SavingsTransaction](ctx, m.remote.Transactions, owner, local)
	if changed {
		if err := m.store.SetSavingsTransactions(updated); err != nil {
			return err
		}
	}
	return pushErr
}

// LoadRemote pulls every collection for the given identity at session start
// and merges it with any local unsynced records, local-wins on collision.
// This is the one pull path that merges instead of overwriting, because
// local dirty data may predate the remote pull.
func (m *Manager) LoadRemote(ctx context.Context, identity *remote.Identity) error {
	if identity == nil {
		return fmt.Errorf("no identity to load")
	}
	owner := identity.ID

	if settings, ok, err := m.remote.Settings.Get(ctx, owner); err != nil {
		return fmt.Errorf("settings: %w", err)
	} else if ok {
		if err := m.store.SetSettings(settings); err != nil {
			return err
		}
	}

	total := 0

	remoteIncomes, err := m.remote.Incomes.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("incomes: %w", err)
	}
	localIncomes, err := m.store.Incomes()
	if err != nil {
		return err
	}
	mergedIncomes := Merge[model.Income, *model.Income](remoteIncomes, unsyncedOf[model.Income, *model.Income](localIncomes))
	if err := m.store.SetIncomes(mergedIncomes); err != nil {
		return err
	}
	total += len(remoteIncomes)

	remoteExpenses, err := m.remote.Expenses.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("expenses: %w", err)
	}
	localExpenses, err := m.store.Expenses()
	if err != nil {
		return err
	}
	mergedExpenses := Merge[model.Expense, *model.Expense](remoteExpenses, unsyncedOf[model.Expense, *model.Expense](localExpenses))
	if err := m.store.SetExpenses(mergedExpenses); err != nil {
		return err
	}
	total += len(remoteExpenses)

	remoteBudgets, err := m.remote.Budgets.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("budgets: %w", err)
	}
	localBudgets, err := m.store.Budgets()
	if err != nil {
		return err
	}
	mergedBudgets := Merge[model.Budget, *model.Budget](remoteBudgets, unsyncedOf[model.Budget, *model.Budget](localBudgets))
	if err := m.store.SetBudgets(mergedBudgets); err != nil {
		return err
	}
	total += len(remoteBudgets)

	remoteSavings, err := m.remote.Savings.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("savings: %w", err)
	}
	localSavings, err := m.store.Savings()
	if err != nil {
		return err
	}
	mergedSavings := Merge[model.Saving, *model.Saving](remoteSavings, unsyncedOf[model.Saving, *model.Saving](localSavings))
	if err := m.store.SetSavings(mergedSavings); err != nil {
		return err
	}
	total += len(remoteSavings)

	remoteTxs, err := m.remote.Transactions.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("savings transactions: %w", err)
	}
	localTxs, err := m.store.SavingsTransactions()
	if err != nil {
		return err
	}
	mergedTxs := Merge[model.SavingsTransaction, *model.SavingsTransaction](remoteTxs, unsyncedOf[model.SavingsTransaction, *model.SavingsTransaction](localTxs))
	if err := m.store.SetSavingsTransactions(mergedTxs); err != nil {
		return err
	}
	total += len(remoteTxs)

	log.Printf("sync: loaded %d remote record(s)", total)
	m.notifier.Success(fmt.Sprintf("%d record(s) loaded", total))
	return nil
}

// PendingCount counts dirty records across all collections.
func (m *Manager) PendingCount() (int, error) {
	incomes, err := m.store.Incomes()
	if err != nil {
		return 0, err
	}
	expenses, err := m.store.Expenses()
	if err != nil {
		return 0, err
	}
	budgets, err := m.store.Budgets()
	if err != nil {
		return 0, err
	}
	savings, err := m.store.Savings()
	if err != nil {
		return 0, err
	}
	txs, err := m.store.SavingsTransactions()
	if err != nil {
		return 0, err
	}

	return countUnsynced[model.Income, *model.Income](incomes) +
		countUnsynced[model.Expense, *model.Expense](expenses) +
		countUnsynced[model.Budget, *model.Budget](budgets) +
		countUnsynced[model.Saving, *model.Saving](savings) +
		countUnsynced[model.SavingsTransaction, *model.SavingsTransaction](txs), nil
}

// SyncBeforeLogout flushes pending records before sign-out. It always stops
// the auto-sync timer first so the final push is not raced by the interval,
// and it never fails hard: logout proceeds regardless, so the outcome is
// reported as a structured result.
func (m *Manager) SyncBeforeLogout(ctx context.Context) Result {
	m.StopAutoSync()

	identity, err := m.identity.CurrentUser(ctx)
	if err != nil || identity == nil {
		return Result{Success: true, Message: "nothing to sync"}
	}

	if !m.checkOnline(ctx) {
		m.notifier.Warning("offline: some records may not be synchronized")
		return Result{Success: false, Message: "offline"}
	}

	m.publish(m.status(true, true, true, ""))

	pending, err := m.PendingCount()
	if err != nil {
		m.publish(m.status(true, false, false, err.Error()))
		return Result{Success: false, Message: err.Error()}
	}
	if pending == 0 {
		m.publish(m.status(true, false, false, ""))
		m.notifier.Success("all records already synchronized")
		return Result{Success: true, Message: "nothing to sync"}
	}

	if !m.syncGate.TryLock() {
		return Result{Success: false, Message: "sync already in progress", Pending: pending}
	}
	pushErr := m.pushAll(ctx, identity.ID)
	m.syncGate.Unlock()

	if pushErr != nil {
		log.Printf("sync: final flush failed: %v", pushErr)
		m.notifier.Error("final synchronization failed")
		m.publish(m.status(true, false, false, pushErr.Error()))
		return Result{Success: false, Message: pushErr.Error(), Pending: pending}
	}

	now := time.Now()
	m.mu.Lock()
	m.lastSync = &now
	m.mu.Unlock()

	m.publish(m.status(true, false, false, ""))
	m.notifier.Success(fmt.Sprintf("%d record(s) synchronized", pending))
	return Result{Success: true, Message: fmt.Sprintf("%d record(s) synchronized", pending), Pending: pending}
}

// ClearLocalData wipes the local record store and resets manager state.
// Used on sign-out.
func (m *Manager) ClearLocalData() error {
	m.StopAutoSync()
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.mu.Lock()
	m.lastSync = nil
	m.mu.Unlock()
	log.Printf("sync: local data cleared")
	return nil
}
