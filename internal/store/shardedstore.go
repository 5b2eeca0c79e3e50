package store

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// DefaultShards is the stripe count used when the caller doesn't pick one.
const DefaultShards = 16

// ShardedStore implements Store with lock striping: keys are routed to a
// fixed set of stripes by fnv32a hash, and each stripe has its own mutex
// and map. Operations on keys in different stripes proceed without
// blocking each other; whole-store operations visit stripes one at a time.
type ShardedStore struct {
	stripes  []*stripe
	clock    Clock
	poisoned atomic.Bool
}

type stripe struct {
	mu   sync.RWMutex
	data map[string]*Record
}

var _ Store = (*ShardedStore)(nil)

// NewShardedStore creates an empty ShardedStore with n stripes. Values
// below 1 fall back to DefaultShards; a nil clock defaults to SystemClock.
func NewShardedStore(n int, clock Clock) *ShardedStore {
	if n < 1 {
		n = DefaultShards
	}
	if clock == nil {
		clock = SystemClock
	}
	stripes := make([]*stripe, n)
	for i := range stripes {
		stripes[i] = &stripe{data: make(map[string]*Record)}
	}
	return &ShardedStore{stripes: stripes, clock: clock}
}

// ShardedStoreFromBytes reconstructs a ShardedStore from the Bytes wire
// form, distributing entries across n stripes.
func ShardedStoreFromBytes(data []byte, n int, clock Clock) (*ShardedStore, error) {
	mapping, err := decodeMapping(data)
	if err != nil {
		return nil, err
	}
	s := NewShardedStore(n, clock)
	for key, rec := range mapping {
		s.stripeFor(key).data[key] = rec
	}
	return s, nil
}

// stripeFor routes a key to its stripe by hashing the key, the same way
// records hash their identity: only the key participates.
func (s *ShardedStore) stripeFor(key string) *stripe {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.stripes[int(h.Sum32())%len(s.stripes)]
}

func (s *ShardedStore) recoverMutation(err *error) {
	if r := recover(); r != nil {
		s.poisoned.Store(true)
		*err = fmt.Errorf("%w: %v", ErrStorePoisoned, r)
	}
}

func (s *ShardedStore) GetClone(key string) (Record, error) {
	if s.poisoned.Load() {
		return Record{}, ErrStorePoisoned
	}
	sh := s.stripeFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, exists := sh.data[key]
	if !exists {
		return Record{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return *rec, nil
}

func (s *ShardedStore) Insert(key, value string) (err error) {
	if s.poisoned.Load() {
		return ErrStorePoisoned
	}
	sh := s.stripeFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	defer s.recoverMutation(&err)

	if _, exists := sh.data[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	rec := NewRecord(key, value, s.clock())
	sh.data[key] = &rec
	return nil
}

func (s *ShardedStore) InsertRecord(rec Record) (err error) {
	if s.poisoned.Load() {
		return ErrStorePoisoned
	}
	sh := s.stripeFor(rec.Key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	defer s.recoverMutation(&err)

	if _, exists := sh.data[rec.Key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, rec.Key)
	}
	stored := rec
	sh.data[rec.Key] = &stored
	return nil
}

func (s *ShardedStore) SetOrInsert(key, value string) (err error) {
	if s.poisoned.Load() {
		return ErrStorePoisoned
	}
	sh := s.stripeFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	defer s.recoverMutation(&err)

	if existing, exists := sh.data[key]; exists {
		existing.Update(value, s.clock())
		return nil
	}
	rec := NewRecord(key, value, s.clock())
	sh.data[key] = &rec
	return nil
}

func (s *ShardedStore) SetOrInsertRecord(rec Record) (err error) {
	if s.poisoned.Load() {
		return ErrStorePoisoned
	}
	sh := s.stripeFor(rec.Key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	defer s.recoverMutation(&err)

	if existing, exists := sh.data[rec.Key]; exists {
		existing.OverwriteWith(rec)
		return nil
	}
	stored := rec
	sh.data[rec.Key] = &stored
	return nil
}

func (s *ShardedStore) Contains(key string) (bool, error) {
	if s.poisoned.Load() {
		return false, ErrStorePoisoned
	}
	sh := s.stripeFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	_, exists := sh.data[key]
	return exists, nil
}

func (s *ShardedStore) Len() (int, error) {
	if s.poisoned.Load() {
		return 0, ErrStorePoisoned
	}
	total := 0
	for _, sh := range s.stripes {
		sh.mu.RLock()
		total += len(sh.data)
		sh.mu.RUnlock()
	}
	return total, nil
}

func (s *ShardedStore) Delete(key string) (_ Record, err error) {
	if s.poisoned.Load() {
		return Record{}, ErrStorePoisoned
	}
	sh := s.stripeFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	defer s.recoverMutation(&err)

	rec, exists := sh.data[key]
	if !exists {
		return Record{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	removed := *rec
	delete(sh.data, key)
	return removed, nil
}

func (s *ShardedStore) Snapshot() (*Snapshot, error) {
	if s.poisoned.Load() {
		return nil, ErrStorePoisoned
	}
	var records []Record
	for _, sh := range s.stripes {
		sh.mu.RLock()
		for _, rec := range sh.data {
			records = append(records, *rec)
		}
		sh.mu.RUnlock()
	}
	return NewSnapshot(records), nil
}

// DrainSnapshot drains stripe by stripe, holding one stripe lock at a
// time. An insert racing the drain into an already-drained stripe
// survives in the store rather than joining the snapshot.
func (s *ShardedStore) DrainSnapshot() (_ *Snapshot, err error) {
	if s.poisoned.Load() {
		return nil, ErrStorePoisoned
	}
	defer s.recoverMutation(&err)

	var records []Record
	for _, sh := range s.stripes {
		sh.mu.Lock()
		for _, rec := range sh.data {
			records = append(records, *rec)
		}
		sh.data = make(map[string]*Record)
		sh.mu.Unlock()
	}
	return NewSnapshot(records), nil
}

func (s *ShardedStore) LoadSnapshot(snap *Snapshot) (err error) {
	if s.poisoned.Load() {
		return ErrStorePoisoned
	}
	staged, err := stageSnapshot(snap)
	if err != nil {
		return err
	}
	defer s.recoverMutation(&err)

	fresh := make([]map[string]*Record, len(s.stripes))
	for i := range fresh {
		fresh[i] = make(map[string]*Record)
	}
	for key, rec := range staged {
		h := fnv.New32a()
		h.Write([]byte(key))
		fresh[int(h.Sum32())%len(s.stripes)][key] = rec
	}
	for i, sh := range s.stripes {
		sh.mu.Lock()
		sh.data = fresh[i]
		sh.mu.Unlock()
	}
	return nil
}

func (s *ShardedStore) Bytes() ([]byte, error) {
	if s.poisoned.Load() {
		return nil, ErrStorePoisoned
	}
	flat := make(map[string]*Record)
	for _, sh := range s.stripes {
		sh.mu.RLock()
		for key, rec := range sh.data {
			flat[key] = rec
		}
		sh.mu.RUnlock()
	}
	return encodeMapping(flat)
}
