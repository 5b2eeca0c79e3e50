package store

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// MapStore implements Store with a single RWMutex guarding one hash map.
// The coarse lock serializes every operation, which is the simplest
// correct strategy and fine at modest throughput; use ShardedStore when
// contention across keys matters.
type MapStore struct {
	mu       sync.RWMutex
	data     map[string]*Record
	clock    Clock
	poisoned atomic.Bool
}

var _ Store = (*MapStore)(nil)

// NewMapStore creates an empty MapStore. A nil clock defaults to
// SystemClock.
func NewMapStore(clock Clock) *MapStore {
	if clock == nil {
		clock = SystemClock
	}
	return &MapStore{
		data:  make(map[string]*Record),
		clock: clock,
	}
}

// MapStoreFromBytes reconstructs a MapStore from the Bytes wire form.
func MapStoreFromBytes(data []byte, clock Clock) (*MapStore, error) {
	mapping, err := decodeMapping(data)
	if err != nil {
		return nil, err
	}
	s := NewMapStore(clock)
	s.data = mapping
	return s, nil
}

// recoverMutation converts a panic inside a mutating critical section
// into a poisoned store. The map may be half-updated at that point, so
// every later operation refuses to serve.
func (m *MapStore) recoverMutation(err *error) {
	if r := recover(); r != nil {
		m.poisoned.Store(true)
		*err = fmt.Errorf("%w: %v", ErrStorePoisoned, r)
	}
}

func (m *MapStore) GetClone(key string) (Record, error) {
	if m.poisoned.Load() {
		return Record{}, ErrStorePoisoned
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.data[key]
	if !exists {
		return Record{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return *rec, nil
}

func (m *MapStore) Insert(key, value string) (err error) {
	if m.poisoned.Load() {
		return ErrStorePoisoned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.recoverMutation(&err)

	if _, exists := m.data[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	rec := NewRecord(key, value, m.clock())
	m.data[key] = &rec
	return nil
}

func (m *MapStore) InsertRecord(rec Record) (err error) {
	if m.poisoned.Load() {
		return ErrStorePoisoned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.recoverMutation(&err)

	if _, exists := m.data[rec.Key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, rec.Key)
	}
	stored := rec
	m.data[rec.Key] = &stored
	return nil
}

func (m *MapStore) SetOrInsert(key, value string) (err error) {
	if m.poisoned.Load() {
		return ErrStorePoisoned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.recoverMutation(&err)

	if existing, exists := m.data[key]; exists {
		existing.Update(value, m.clock())
		return nil
	}
	rec := NewRecord(key, value, m.clock())
	m.data[key] = &rec
	return nil
}

func (m *MapStore) SetOrInsertRecord(rec Record) (err error) {
	if m.poisoned.Load() {
		return ErrStorePoisoned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.recoverMutation(&err)

	if existing, exists := m.data[rec.Key]; exists {
		existing.OverwriteWith(rec)
		return nil
	}
	stored := rec
	m.data[rec.Key] = &stored
	return nil
}

func (m *MapStore) Contains(key string) (bool, error) {
	if m.poisoned.Load() {
		return false, ErrStorePoisoned
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.data[key]
	return exists, nil
}

func (m *MapStore) Len() (int, error) {
	if m.poisoned.Load() {
		return 0, ErrStorePoisoned
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data), nil
}

func (m *MapStore) Delete(key string) (_ Record, err error) {
	if m.poisoned.Load() {
		return Record{}, ErrStorePoisoned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.recoverMutation(&err)

	rec, exists := m.data[key]
	if !exists {
		return Record{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	removed := *rec
	delete(m.data, key)
	return removed, nil
}

func (m *MapStore) Snapshot() (*Snapshot, error) {
	if m.poisoned.Load() {
		return nil, ErrStorePoisoned
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, 0, len(m.data))
	for _, rec := range m.data {
		records = append(records, *rec)
	}
	return NewSnapshot(records), nil
}

func (m *MapStore) DrainSnapshot() (_ *Snapshot, err error) {
	if m.poisoned.Load() {
		return nil, ErrStorePoisoned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.recoverMutation(&err)

	records := make([]Record, 0, len(m.data))
	for _, rec := range m.data {
		records = append(records, *rec)
	}
	m.data = make(map[string]*Record)
	return NewSnapshot(records), nil
}

func (m *MapStore) LoadSnapshot(snap *Snapshot) (err error) {
	if m.poisoned.Load() {
		return ErrStorePoisoned
	}
	// Stage outside the lock so a bad snapshot never clobbers state.
	staged, err := stageSnapshot(snap)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.recoverMutation(&err)

	m.data = staged
	return nil
}

func (m *MapStore) Bytes() ([]byte, error) {
	if m.poisoned.Load() {
		return nil, ErrStorePoisoned
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return encodeMapping(m.data)
}
