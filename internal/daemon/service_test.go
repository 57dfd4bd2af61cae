package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/volako-app/volako/internal/engine"
	"github.com/volako-app/volako/internal/model"
	"github.com/volako-app/volako/internal/notify"
	"github.com/volako-app/volako/internal/remote"
	"github.com/volako-app/volako/internal/store"
	"github.com/volako-app/volako/internal/syncer"
)

func newTestService(t *testing.T, buffer int) *Service {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	backend := remote.NewMemoryBackend()
	mgr := syncer.New(s, backend.Store(), remote.NewStaticIdentity("owner-1"))

	return New(Config{
		Interval:     10 * time.Second,
		EventsBuffer: buffer,
	}, mgr, engine.New(s))
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		AvailableBalance: decimal.NewFromInt(100_000),
		TotalSaved:       decimal.NewFromInt(20_000),
		IncomeCount:      2,
		ExpenseCount:     5,
	}
	curr := Snapshot{
		AvailableBalance: decimal.NewFromInt(85_000),
		TotalSaved:       decimal.NewFromInt(30_000),
		IncomeCount:      2,
		ExpenseCount:     7,
	}

	delta := diffSnapshots(prev, curr)
	if !delta.AvailableBalance.Equal(decimal.NewFromInt(-15_000)) {
		t.Fatalf("AvailableBalance delta = %s, want -15000", delta.AvailableBalance)
	}
	if !delta.TotalSaved.Equal(decimal.NewFromInt(10_000)) {
		t.Fatalf("TotalSaved delta = %s, want 10000", delta.TotalSaved)
	}
	if delta.IncomeCount != 0 {
		t.Fatalf("IncomeCount delta = %d, want 0", delta.IncomeCount)
	}
	if delta.ExpenseCount != 2 {
		t.Fatalf("ExpenseCount delta = %d, want 2", delta.ExpenseCount)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := newTestService(t, 2)

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestRunWithAutoSyncFlushesPendingRecords(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.SetIncomes([]model.Income{{
		SyncMeta: model.SyncMeta{ID: "i1"},
		Amount:   decimal.NewFromInt(100_000),
	}}); err != nil {
		t.Fatalf("SetIncomes() error = %v", err)
	}

	backend := remote.NewMemoryBackend()
	mgr := syncer.New(s, backend.Store(), remote.NewStaticIdentity("owner-1"),
		syncer.WithInterval(time.Hour),
		syncer.WithNotifier(notify.Discard{}),
	)

	svc := New(Config{
		Interval:     10 * time.Second,
		Addr:         "127.0.0.1:0",
		EventsBuffer: 10,
		AutoSync:     true,
	}, mgr, engine.New(s))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// StartAutoSync pushes once right away; the hour-long interval never
	// fires inside the test.
	deadline := time.Now().Add(2 * time.Second)
	for {
		pending, err := mgr.PendingCount()
		if err != nil {
			t.Fatalf("PendingCount() error = %v", err)
		}
		if pending == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pending = %d, records never pushed", pending)
		}
		time.Sleep(5 * time.Millisecond)
	}

	remoteIncomes, err := backend.Store().Incomes.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remoteIncomes) != 1 {
		t.Fatalf("remote incomes = %d, want 1", len(remoteIncomes))
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestSyncStatusEventsEnterRing(t *testing.T) {
	s := newTestService(t, 10)

	s.onSyncStatus(syncer.Status{Online: true, Syncing: true})
	s.onSyncStatus(syncer.Status{Online: true})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].Type != "sync_status" {
		t.Fatalf("event type = %q, want sync_status", s.events[0].Type)
	}
	if s.events[0].Sync == nil || !s.events[0].Sync.Syncing {
		t.Fatal("first event should carry the syncing status")
	}
	if !s.syncStatus.Online || s.syncStatus.Syncing {
		t.Fatalf("service status = %+v, want online and idle", s.syncStatus)
	}
}
