// Package daemon provides the long-running background sync service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/volako-app/volako/internal/engine"
	"github.com/volako-app/volako/internal/syncer"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int

	// AutoSync drives the manager's recurring push loop. When false the
	// daemon still snapshots balances and runs scheduled withdrawals, but
	// records are only pushed by an explicit sync.
	AutoSync bool
}

// Snapshot is a compact balance state for status/event payloads.
type Snapshot struct {
	At               time.Time       `json:"at"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	TotalSaved       decimal.Decimal `json:"total_saved"`
	TotalWithSavings decimal.Decimal `json:"total_with_savings"`
	PeriodIncome     decimal.Decimal `json:"period_income"`
	PeriodExpenses   decimal.Decimal `json:"period_expenses"`
	IncomeCount      int             `json:"income_count"`
	ExpenseCount     int             `json:"expense_count"`
	SavingsCount     int             `json:"savings_count"`
}

// Delta captures snapshot deltas between cycles.
type Delta struct {
	AvailableBalance decimal.Decimal `json:"available_balance"`
	TotalSaved       decimal.Decimal `json:"total_saved"`
	IncomeCount      int             `json:"income_count"`
	ExpenseCount     int             `json:"expense_count"`
}

func (d Delta) isZero() bool {
	return d.AvailableBalance.IsZero() &&
		d.TotalSaved.IsZero() &&
		d.IncomeCount == 0 &&
		d.ExpenseCount == 0
}

// Event is emitted whenever the balance snapshot or sync status changes.
type Event struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Snapshot  Snapshot       `json:"snapshot"`
	Delta     Delta          `json:"delta"`
	Sync      *syncer.Status `json:"sync,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time     `json:"started_at"`
	LastCycleAt     time.Time     `json:"last_cycle_at"`
	IntervalSec     int           `json:"interval_sec"`
	CycleCount      int64         `json:"cycle_count"`
	Sync            syncer.Status `json:"sync"`
	Summary         Snapshot      `json:"summary"`
	LastError       string        `json:"last_error,omitempty"`
	EventCount      int           `json:"event_count"`
	SubscriberCount int           `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	manager *syncer.Manager
	eng     *engine.Engine

	mu          sync.RWMutex
	startedAt   time.Time
	lastCycleAt time.Time
	cycleCount  int64
	lastError   string
	syncStatus  syncer.Status
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service over the given sync manager and engine.
func New(cfg Config, manager *syncer.Manager, eng *engine.Engine) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = syncer.DefaultInterval
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8791"
	}

	s := &Service{
		cfg:       cfg,
		manager:   manager,
		eng:       eng,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	manager.OnStatusChange(s.onSyncStatus)
	return s
}

// Run starts the HTTP endpoints and the sync loop until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.cfg.AutoSync {
		s.manager.StartAutoSync(ctx)
		defer s.manager.StopAutoSync()
	}

	// Seed initial snapshot so status is useful immediately.
	s.cycleOnce()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.cycleOnce()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// cycleOnce runs one background cycle: due scheduled withdrawals, then a
// fresh balance snapshot. Pushing records is the sync manager's own loop.
func (s *Service) cycleOnce() {
	now := time.Now()

	if jobs, err := s.eng.RunDueAutoWithdrawals(now); err != nil {
		log.Printf("daemon: scheduled withdrawals: %v", err)
	} else if len(jobs) > 0 {
		log.Printf("daemon: ran %d scheduled withdrawal(s)", len(jobs))
	}

	balances, err := s.eng.Balances(time.Time{}, time.Time{})
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastCycleAt = now
		s.cycleCount++
		s.mu.Unlock()
		log.Printf("daemon: balance snapshot error: %v", err)
		return
	}

	snap := Snapshot{
		At:               now,
		AvailableBalance: balances.AvailableBalance,
		TotalSaved:       balances.TotalSaved,
		TotalWithSavings: balances.TotalBalanceWithSavings,
		PeriodIncome:     balances.TotalIncome,
		PeriodExpenses:   balances.TotalExpenses,
		IncomeCount:      balances.IncomeCount,
		ExpenseCount:     balances.ExpenseCount,
		SavingsCount:     balances.SavingsCount,
	}

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastCycleAt = now
	s.cycleCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: now,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      "balance_delta",
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

// onSyncStatus mirrors manager status transitions into the event stream.
func (s *Service) onSyncStatus(status syncer.Status) {
	s.mu.Lock()
	s.syncStatus = status
	s.nextEventID++
	ev := Event{
		ID:        s.nextEventID,
		Type:      "sync_status",
		Timestamp: time.Now(),
		Snapshot:  s.snapshot,
		Sync:      &status,
	}
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		AvailableBalance: curr.AvailableBalance.Sub(prev.AvailableBalance),
		TotalSaved:       curr.TotalSaved.Sub(prev.TotalSaved),
		IncomeCount:      curr.IncomeCount - prev.IncomeCount,
		ExpenseCount:     curr.ExpenseCount - prev.ExpenseCount,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastCycleAt:     s.lastCycleAt,
		IntervalSec:     int(s.cfg.Interval.Seconds()),
		CycleCount:      s.cycleCount,
		Sync:            s.syncStatus,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
