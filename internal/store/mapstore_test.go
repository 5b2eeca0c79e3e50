package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fixedClock returns a Clock frozen at t.
func fixedClock(t int64) Clock {
	return func() int64 { return t }
}

// panicClock panics on its nth call (1-based); earlier calls return t.
func panicClock(t int64, n int) Clock {
	calls := 0
	return func() int64 {
		calls++
		if calls >= n {
			panic("clock failure")
		}
		return t
	}
}

// TestMapStoreInsertAndGet tests the basic write/read path
func TestMapStoreInsertAndGet(t *testing.T) {
	s := NewMapStore(fixedClock(100))

	if err := s.Insert("key1", "value1"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec, err := s.GetClone("key1")
	if err != nil {
		t.Fatalf("GetClone failed: %v", err)
	}
	if rec.Value != "value1" {
		t.Errorf("Expected value 'value1', got %q", rec.Value)
	}
	if rec.Created != 100 || rec.Updated != 100 {
		t.Errorf("Expected timestamps 100/100, got %d/%d", rec.Created, rec.Updated)
	}
}

// TestMapStoreInsertDuplicate tests duplicate rejection
func TestMapStoreInsertDuplicate(t *testing.T) {
	s := NewMapStore(fixedClock(100))

	if err := s.Insert("key1", "value1"); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := s.Insert("key1", "value2")
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Original record must be untouched.
	rec, err := s.GetClone("key1")
	if err != nil {
		t.Fatalf("GetClone failed: %v", err)
	}
	if rec.Value != "value1" {
		t.Errorf("Duplicate insert must not change stored value, got %q", rec.Value)
	}
}

// TestMapStoreGetMissing tests the not-found path
func TestMapStoreGetMissing(t *testing.T) {
	s := NewMapStore(nil)

	_, err := s.GetClone("nonexistent")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

// TestMapStoreGetCloneIsolation verifies callers get copies, not aliases
func TestMapStoreGetCloneIsolation(t *testing.T) {
	s := NewMapStore(fixedClock(100))
	s.Insert("key1", "value1")

	rec, _ := s.GetClone("key1")
	rec.Value = "mutated"

	stored, _ := s.GetClone("key1")
	if stored.Value != "value1" {
		t.Errorf("Mutating a clone must not affect the store, got %q", stored.Value)
	}
}

// TestMapStoreSetOrInsert tests upsert semantics
func TestMapStoreSetOrInsert(t *testing.T) {
	t.Run("inserts when absent", func(t *testing.T) {
		s := NewMapStore(fixedClock(100))
		if err := s.SetOrInsert("key1", "value1"); err != nil {
			t.Fatalf("SetOrInsert failed: %v", err)
		}
		rec, _ := s.GetClone("key1")
		if rec.Value != "value1" || rec.Created != 100 {
			t.Errorf("Expected fresh record at 100, got %+v", rec)
		}
	})

	t.Run("updates when present", func(t *testing.T) {
		now := int64(100)
		s := NewMapStore(func() int64 { return now })
		s.Insert("key1", "value1")

		now = 200
		if err := s.SetOrInsert("key1", "value2"); err != nil {
			t.Fatalf("SetOrInsert failed: %v", err)
		}
		rec, _ := s.GetClone("key1")
		if rec.Value != "value2" {
			t.Errorf("Expected value 'value2', got %q", rec.Value)
		}
		if rec.Created != 100 || rec.Updated != 200 {
			t.Errorf("Expected timestamps 100/200, got %d/%d", rec.Created, rec.Updated)
		}
	})

	t.Run("same value leaves updated alone", func(t *testing.T) {
		now := int64(100)
		s := NewMapStore(func() int64 { return now })
		s.Insert("key1", "value1")

		now = 200
		s.SetOrInsert("key1", "value1")
		rec, _ := s.GetClone("key1")
		if rec.Updated != 100 {
			t.Errorf("Identical value must not bump updated, got %d", rec.Updated)
		}
	})
}

// TestMapStoreInsertRecord tests whole-record insertion
func TestMapStoreInsertRecord(t *testing.T) {
	s := NewMapStore(fixedClock(999))

	if err := s.InsertRecord(Reconstruct("key1", "value1", 10, 20)); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	rec, _ := s.GetClone("key1")
	if rec.Created != 10 || rec.Updated != 20 {
		t.Errorf("InsertRecord must keep the record's own timestamps, got %d/%d", rec.Created, rec.Updated)
	}

	err := s.InsertRecord(Reconstruct("key1", "other", 1, 1))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

// TestMapStoreSetOrInsertRecord tests whole-record upsert
func TestMapStoreSetOrInsertRecord(t *testing.T) {
	s := NewMapStore(fixedClock(999))
	s.Insert("key1", "old")

	if err := s.SetOrInsertRecord(Reconstruct("key1", "new", 10, 20)); err != nil {
		t.Fatalf("SetOrInsertRecord failed: %v", err)
	}

	rec, _ := s.GetClone("key1")
	if rec.Value != "new" || rec.Created != 10 || rec.Updated != 20 {
		t.Errorf("Expected record fields fully adopted, got %+v", rec)
	}
}

// TestMapStoreContainsAndLen tests membership and size
func TestMapStoreContainsAndLen(t *testing.T) {
	s := NewMapStore(nil)

	if n, _ := s.Len(); n != 0 {
		t.Errorf("Expected empty store, got len %d", n)
	}

	s.Insert("key1", "value1")
	s.Insert("key2", "value2")

	if n, _ := s.Len(); n != 2 {
		t.Errorf("Expected len 2, got %d", n)
	}
	if ok, _ := s.Contains("key1"); !ok {
		t.Error("Expected key1 to be present")
	}
	if ok, _ := s.Contains("missing"); ok {
		t.Error("Expected 'missing' to be absent")
	}
}

// TestMapStoreDelete tests removal and the returned record
func TestMapStoreDelete(t *testing.T) {
	s := NewMapStore(fixedClock(100))
	s.Insert("key1", "value1")

	rec, err := s.Delete("key1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if rec.Key != "key1" || rec.Value != "value1" {
		t.Errorf("Expected removed record key1:value1, got %s", rec.String())
	}

	if ok, _ := s.Contains("key1"); ok {
		t.Error("Key should be gone after delete")
	}

	_, err = s.Delete("key1")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound on second delete, got %v", err)
	}
}

// TestMapStoreTimestampWindow verifies wall-clock records land inside the
// window bracketing the insert
func TestMapStoreTimestampWindow(t *testing.T) {
	s := NewMapStore(nil)

	before := time.Now().Unix()
	s.Insert("key1", "value1")
	after := time.Now().Unix()

	rec, _ := s.GetClone("key1")
	if rec.Created < before || rec.Created > after {
		t.Errorf("Created %d outside window [%d, %d]", rec.Created, before, after)
	}
	if rec.Updated != rec.Created {
		t.Errorf("Fresh record should have updated == created, got %d/%d", rec.Updated, rec.Created)
	}
}

// TestMapStoreBytesRoundTrip tests serialize-then-rebuild fidelity
func TestMapStoreBytesRoundTrip(t *testing.T) {
	s := NewMapStore(fixedClock(100))
	s.Insert("key1", "value1")
	s.Insert("key2", "value2")

	buf, err := s.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}

	// Inserts after the capture must not appear in the rebuilt store.
	s.Insert("key3", "value3")

	rebuilt, err := MapStoreFromBytes(buf, fixedClock(200))
	if err != nil {
		t.Fatalf("MapStoreFromBytes failed: %v", err)
	}

	if n, _ := rebuilt.Len(); n != 2 {
		t.Errorf("Expected 2 records in rebuilt store, got %d", n)
	}
	rec, err := rebuilt.GetClone("key1")
	if err != nil {
		t.Fatalf("GetClone on rebuilt store failed: %v", err)
	}
	if rec.Value != "value1" || rec.Created != 100 {
		t.Errorf("Round trip lost record fields: %+v", rec)
	}
	if ok, _ := rebuilt.Contains("key3"); ok {
		t.Error("Record inserted after capture must not be in rebuilt store")
	}
}

// TestMapStoreFromBytesKeyMismatch tests rejection of inconsistent mappings
func TestMapStoreFromBytesKeyMismatch(t *testing.T) {
	buf := []byte(`{"alias":{"key":"real","value":"v","created":1,"updated":1}}`)

	_, err := MapStoreFromBytes(buf, nil)
	if !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("Expected ErrKeyMismatch, got %v", err)
	}
}

// TestMapStoreFromBytesGarbage tests rejection of malformed payloads
func TestMapStoreFromBytesGarbage(t *testing.T) {
	_, err := MapStoreFromBytes([]byte("not json"), nil)
	if !errors.Is(err, ErrDeserialize) {
		t.Errorf("Expected ErrDeserialize, got %v", err)
	}
}

// TestMapStoreSnapshotAndLoad tests the structured export/import cycle
func TestMapStoreSnapshotAndLoad(t *testing.T) {
	s := NewMapStore(fixedClock(100))
	s.Insert("key1", "value1")
	s.Insert("key2", "value2")

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Version != SnapshotVersion {
		t.Errorf("Expected snapshot version %d, got %d", SnapshotVersion, snap.Version)
	}
	if len(snap.Data) != 2 {
		t.Errorf("Expected 2 snapshot entries, got %d", len(snap.Data))
	}

	// Snapshot is non-destructive.
	if n, _ := s.Len(); n != 2 {
		t.Errorf("Snapshot must not drain the store, len %d", n)
	}

	other := NewMapStore(fixedClock(500))
	other.Insert("stale", "gone")
	if err := other.LoadSnapshot(snap); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if n, _ := other.Len(); n != 2 {
		t.Errorf("Expected 2 records after load, got %d", n)
	}
	if ok, _ := other.Contains("stale"); ok {
		t.Error("LoadSnapshot must replace prior contents")
	}
	rec, _ := other.GetClone("key1")
	if rec.Created != 100 {
		t.Errorf("Loaded record must keep stored timestamps, got %d", rec.Created)
	}
}

// TestMapStoreDrainSnapshot tests the consuming export
func TestMapStoreDrainSnapshot(t *testing.T) {
	s := NewMapStore(fixedClock(100))
	s.Insert("key1", "value1")

	snap, err := s.DrainSnapshot()
	if err != nil {
		t.Fatalf("DrainSnapshot failed: %v", err)
	}
	if len(snap.Data) != 1 {
		t.Errorf("Expected 1 snapshot entry, got %d", len(snap.Data))
	}
	if n, _ := s.Len(); n != 0 {
		t.Errorf("DrainSnapshot must empty the store, len %d", n)
	}
}

// TestMapStoreLoadSnapshotDuplicates tests duplicate rejection without
// clobbering existing state
func TestMapStoreLoadSnapshotDuplicates(t *testing.T) {
	s := NewMapStore(fixedClock(100))
	s.Insert("keep", "me")

	bad := &Snapshot{
		Version: SnapshotVersion,
		Data: []RecordData{
			{Key: "dup", Value: "a", Created: 1, Updated: 1},
			{Key: "dup", Value: "b", Created: 2, Updated: 2},
		},
	}

	err := s.LoadSnapshot(bad)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if ok, _ := s.Contains("keep"); !ok {
		t.Error("Failed load must leave prior contents intact")
	}
}

// TestMapStoreConcurrentInserts runs parallel writers on disjoint keys
func TestMapStoreConcurrentInserts(t *testing.T) {
	const writers = 8
	const perWriter = 50

	s := NewMapStore(nil)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i)
				if err := s.Insert(key, "value"); err != nil {
					t.Errorf("Insert %s failed: %v", key, err)
				}
			}
		}(w)
	}
	wg.Wait()

	if n, _ := s.Len(); n != writers*perWriter {
		t.Errorf("Expected %d records, got %d", writers*perWriter, n)
	}
}

// TestMapStorePoisoning tests that a panic mid-mutation wedges the store
func TestMapStorePoisoning(t *testing.T) {
	s := NewMapStore(panicClock(100, 2))
	s.Insert("key1", "value1")

	// Second clock call panics inside the critical section.
	err := s.Insert("key2", "value2")
	if !errors.Is(err, ErrStorePoisoned) {
		t.Fatalf("Expected ErrStorePoisoned from panicking mutation, got %v", err)
	}

	// Every subsequent operation refuses to serve.
	if _, err := s.GetClone("key1"); !errors.Is(err, ErrStorePoisoned) {
		t.Errorf("Expected poisoned GetClone, got %v", err)
	}
	if err := s.SetOrInsert("key3", "v"); !errors.Is(err, ErrStorePoisoned) {
		t.Errorf("Expected poisoned SetOrInsert, got %v", err)
	}
	if _, err := s.Len(); !errors.Is(err, ErrStorePoisoned) {
		t.Errorf("Expected poisoned Len, got %v", err)
	}
	if _, err := s.Bytes(); !errors.Is(err, ErrStorePoisoned) {
		t.Errorf("Expected poisoned Bytes, got %v", err)
	}
}
