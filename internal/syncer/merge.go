package syncer

import (
	"context"

	"github.com/volako-app/volako/internal/remote"
)

// record constrains pointers to any type embedding model.SyncMeta.
type record[T any] interface {
	*T
	RecordID() string
	Unsynced() bool
	IsModified() bool
	IsDeleted() bool
	MarkSynced()
}

// Merge combines a remote pull with the locally-unsynced records. Remote
// records are marked synced; local unsynced records are placed first and
// duplicates are dropped by id keeping the first occurrence, so a record
// edited locally since the last push is never clobbered by a stale remote
// copy, while records with no pending edit reflect the remote truth.
func Merge[T any, P record[T]](remoteRecords, localUnsynced []T) []T {
	merged := make([]T, 0, len(remoteRecords)+len(localUnsynced))
	seen := make(map[string]struct{}, len(remoteRecords)+len(localUnsynced))

	for i := range localUnsynced {
		id := P(&localUnsynced[i]).RecordID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, localUnsynced[i])
	}

	for i := range remoteRecords {
		P(&remoteRecords[i]).MarkSynced()
		id := P(&remoteRecords[i]).RecordID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, remoteRecords[i])
	}

	return merged
}

// unsyncedOf filters the records still awaiting a push.
func unsyncedOf[T any, P record[T]](records []T) []T {
	var out []T
	for i := range records {
		if P(&records[i]).Unsynced() {
			out = append(out, records[i])
		}
	}
	return out
}

// countUnsynced counts the records still awaiting a push.
func countUnsynced[T any, P record[T]](records []T) int {
	n := 0
	for i := range records {
		if P(&records[i]).Unsynced() {
			n++
		}
	}
	return n
}

// pushCollection reconciles one local collection against its remote table:
// unsynced tombstones are pushed as deletions and purged, unknown unsynced
// records are inserted, known modified records are updated field-by-field.
// The push overwrites remote state for the ids it owns without a compare
// step; ties with a concurrent remote writer resolve last-writer-wins.
// Returns the updated local slice and whether it changed.
func pushCollection[T any, P record[T]](ctx context.Context, table remote.Table[T], owner string, local []T) ([]T, bool, error) {
	if len(local) == 0 {
		return local, false, nil
	}

	remoteRecords, err := table.List(ctx, owner)
	if err != nil {
		return local, false, err
	}
	remoteIDs := make(map[string]struct{}, len(remoteRecords))
	for i := range remoteRecords {
		remoteIDs[P(&remoteRecords[i]).RecordID()] = struct{}{}
	}

	changed := false

	// Tombstones first: push the deletion, then purge locally. A tombstone
	// never seen by the remote is purged outright.
	kept := local[:0]
	for i := range local {
		p := P(&local[i])
		if !p.IsDeleted() || !p.Unsynced() {
			kept = append(kept, local[i])
			continue
		}
		if _, exists := remoteIDs[p.RecordID()]; exists {
			if err := table.Delete(ctx, owner, p.RecordID()); err != nil {
				// Keep the tombstone dirty; the next cycle retries it.
				kept = append(kept, local[i])
				return append(kept, local[i+1:]...), changed, err
			}
		}
		changed = true
	}
	local = kept

	var toInsert []T
	for i := range local {
		p := P(&local[i])
		if _, exists := remoteIDs[p.RecordID()]; !exists && p.Unsynced() {
			toInsert = append(toInsert, local[i])
		}
	}
	if len(toInsert) > 0 {
		if err := table.Insert(ctx, owner, toInsert); err != nil {
			return local, changed, err
		}
		inserted := make(map[string]struct{}, len(toInsert))
		for i := range toInsert {
			inserted[P(&toInsert[i]).RecordID()] = struct{}{}
		}
		for i := range local {
			p := P(&local[i])
			if _, ok := inserted[p.RecordID()]; ok {
				p.MarkSynced()
			}
		}
		changed = true
	}

	for i := range local {
		p := P(&local[i])
		_, exists := remoteIDs[p.RecordID()]
		if !exists || !p.IsModified() || !p.Unsynced() {
			continue
		}
		if err := table.Update(ctx, owner, local[i]); err != nil {
			return local, changed, err
		}
		p.MarkSynced()
		changed = true
	}

	return local, changed, nil
}
