// Package store implements the in-memory record table at the heart of sdb:
// a concurrency-safe mapping from string keys to versioned Records, with
// interchangeable locking strategies behind a single capability contract.
//
// # Overview
//
// The package provides:
//
//   - Record: one stored key/value pair with creation/update provenance
//     timestamps (unix seconds).
//   - Store: the capability contract every backend satisfies.
//   - MapStore: a single RWMutex guarding one hash map. Simplest strategy;
//     serializes all operations.
//   - ShardedStore: a lock-striped map. Keys are routed to stripes by
//     fnv32a hash, so operations on different keys rarely contend.
//   - Snapshot / ByteEnvelope: versioned, serializable exports of store
//     contents for file or wire transport.
//
// # Concurrency model
//
// Every Store operation is a short, bounded, synchronous critical section.
// Both strategies guarantee at most one in-flight mutation per key and
// per-key sequential consistency: a GetClone that completes strictly after
// a mutation on the same key observes that mutation's effect.
//
// A panic recovered inside a mutating critical section marks the store
// poisoned. From then on every operation returns ErrStorePoisoned instead
// of touching state that may be half-updated; callers treat this as a
// recoverable error, never a crash.
//
// # Time
//
// Record timestamps come from a Clock injected at construction. Production
// code uses SystemClock; tests inject fixed or scripted clocks for
// deterministic timestamp assertions.
//
// # Persistence
//
// Two distinct round-trip paths exist:
//
//   - Snapshot: a versioned list of records (Snapshot/DrainSnapshot/
//     LoadSnapshot), intended for structured export and import.
//   - Bytes: a direct JSON encoding of the internal mapping
//     (Bytes/FromBytes), wrapped in a ByteEnvelope for file transport.
//
// Neither path guarantees iteration order; the underlying maps are
// unordered.
package store
