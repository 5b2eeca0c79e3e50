package store

import (
	"errors"
	"fmt"
	"io/fs"
)

// Strategy selects the concrete Store implementation.
type Strategy string

const (
	// StrategyMap is the single-lock hash table (MapStore).
	StrategyMap Strategy = "map"
	// StrategySharded is the lock-striped map (ShardedStore).
	StrategySharded Strategy = "sharded"
)

// Options configures store construction. The zero value builds a
// MapStore with DefaultShards (unused) and SystemClock.
type Options struct {
	Strategy Strategy
	Shards   int   // stripe count for StrategySharded; <1 means DefaultShards
	Clock    Clock // nil means SystemClock
}

// New constructs an empty store for the requested strategy. Unknown
// strategies fall back to the map store, so callers wired from config
// always get a working table.
func New(opts Options) Store {
	switch opts.Strategy {
	case StrategySharded:
		return NewShardedStore(opts.Shards, opts.Clock)
	default:
		return NewMapStore(opts.Clock)
	}
}

// FromSnapshot constructs a store and loads the snapshot into it,
// preserving stored timestamps. Fails with ErrDuplicateKey if the
// snapshot contains duplicate keys.
func FromSnapshot(snap *Snapshot, opts Options) (Store, error) {
	s := New(opts)
	if err := s.LoadSnapshot(snap); err != nil {
		return nil, err
	}
	return s, nil
}

// FromBytes constructs a store from the Bytes wire form.
func FromBytes(data []byte, opts Options) (Store, error) {
	switch opts.Strategy {
	case StrategySharded:
		return ShardedStoreFromBytes(data, opts.Shards, opts.Clock)
	default:
		return MapStoreFromBytes(data, opts.Clock)
	}
}

// Open builds a store, seeding it from the snapshot file at path when
// one exists. A missing file yields an empty store; a corrupt or
// version-mismatched file is an error.
func Open(path string, opts Options) (Store, error) {
	if path == "" {
		return New(opts), nil
	}
	data, err := ReadStoreFile(path)
	if err != nil {
		if isNotExist(err) {
			return New(opts), nil
		}
		return nil, fmt.Errorf("open store: %w", err)
	}
	return FromBytes(data, opts)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
