package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/volako-app/volako/internal/model"
	"github.com/volako-app/volako/internal/remote"
)

func income(id string, amount int64, synced bool) model.Income {
	return model.Income{
		SyncMeta: model.SyncMeta{ID: id, Synced: synced, CreatedAt: time.Now()},
		Amount:   decimal.NewFromInt(amount),
		Source:   "salary",
		Date:     time.Now(),
		Kind:     model.KindPlain,
	}
}

func TestMergeLocalUnsyncedWins(t *testing.T) {
	local := []model.Income{income("a", 111, false)}
	remoteRecords := []model.Income{income("a", 999, true), income("b", 200, true)}

	merged := Merge[model.Income, *model.Income](remoteRecords, local)
	if len(merged) != 2 {
		t.Fatalf("merged len = %d, want 2", len(merged))
	}
	if !merged[0].Amount.Equal(decimal.NewFromInt(111)) {
		t.Fatalf("record a amount = %s, want the local copy (111)", merged[0].Amount)
	}
	if merged[0].Synced {
		t.Fatal("local dirty record must stay dirty through a merge")
	}
	if !merged[1].Synced {
		t.Fatal("remote-origin record must arrive synced")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	local := []model.Income{income("a", 111, false)}
	remoteRecords := []model.Income{income("a", 999, true), income("b", 200, true)}

	once := Merge[model.Income, *model.Income](remoteRecords, local)
	twice := Merge[model.Income, *model.Income](remoteRecords, unsyncedOf[model.Income, *model.Income](once))
	if len(twice) != len(once) {
		t.Fatalf("second merge len = %d, want %d", len(twice), len(once))
	}
}

func TestPushCollectionInsertsAndMarksSynced(t *testing.T) {
	backend := remote.NewMemoryBackend()
	local := []model.Income{income("a", 100, false), income("b", 200, true)}

	updated, changed, err := pushCollection[model.Income, *model.Income](context.Background(), backend.Store().Incomes, "owner-1", local)
	if err != nil {
		t.Fatalf("pushCollection() error = %v", err)
	}
	if !changed {
		t.Fatal("push with a dirty record should report a change")
	}
	for _, inc := range updated {
		if inc.Unsynced() {
			t.Fatalf("record %s still dirty after push", inc.ID)
		}
	}

	remoteRecords, err := backend.Store().Incomes.List(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	// Only the dirty record was pushed; "b" claimed to be synced already.
	if len(remoteRecords) != 1 || remoteRecords[0].ID != "a" {
		t.Fatalf("remote holds %d record(s), want only the dirty one", len(remoteRecords))
	}
}

func TestPushCollectionUpdatesModified(t *testing.T) {
	backend := remote.NewMemoryBackend()
	ctx := context.Background()

	seed := income("a", 100, false)
	if err := backend.Store().Incomes.Insert(ctx, "owner-1", []model.Income{seed}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	edited := seed
	edited.Amount = decimal.NewFromInt(175)
	edited.Touch()

	updated, changed, err := pushCollection[model.Income, *model.Income](ctx, backend.Store().Incomes, "owner-1", []model.Income{edited})
	if err != nil {
		t.Fatalf("pushCollection() error = %v", err)
	}
	if !changed || updated[0].Unsynced() {
		t.Fatalf("edited record not pushed: changed=%v meta=%+v", changed, updated[0].SyncMeta)
	}

	remoteRecords, err := backend.Store().Incomes.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !remoteRecords[0].Amount.Equal(decimal.NewFromInt(175)) {
		t.Fatalf("remote amount = %s, want 175 (last writer wins)", remoteRecords[0].Amount)
	}
}

func TestPushCollectionTombstones(t *testing.T) {
	backend := remote.NewMemoryBackend()
	ctx := context.Background()

	seed := income("a", 100, false)
	if err := backend.Store().Incomes.Insert(ctx, "owner-1", []model.Income{seed}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	dead := seed
	dead.Deleted = true
	dead.Touch()
	// A tombstone the remote never saw is purged without a remote call.
	orphan := income("x", 50, false)
	orphan.Deleted = true

	updated, changed, err := pushCollection[model.Income, *model.Income](ctx, backend.Store().Incomes, "owner-1", []model.Income{dead, orphan})
	if err != nil {
		t.Fatalf("pushCollection() error = %v", err)
	}
	if !changed {
		t.Fatal("tombstone push should report a change")
	}
	if len(updated) != 0 {
		t.Fatalf("local len = %d after tombstone purge, want 0", len(updated))
	}

	remoteRecords, err := backend.Store().Incomes.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remoteRecords) != 0 {
		t.Fatalf("remote len = %d after deletion push, want 0", len(remoteRecords))
	}
}

func TestPushCollectionKeepsDirtyOnError(t *testing.T) {
	backend := remote.NewMemoryBackend()
	backend.SetError(remote.ErrUnavailable)

	local := []model.Income{income("a", 100, false)}
	updated, changed, err := pushCollection[model.Income, *model.Income](context.Background(), backend.Store().Incomes, "owner-1", local)
	if err == nil {
		t.Fatal("push against a failing backend should error")
	}
	if changed {
		t.Fatal("failed push must not report a change")
	}
	if len(updated) != 1 || updated[0].Unsynced() != true {
		t.Fatal("record must stay dirty after a failed push")
	}
}
