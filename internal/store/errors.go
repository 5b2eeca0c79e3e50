package store

import "errors"

// Sentinel errors for store operations. Call sites wrap these with %w and
// the offending key, so callers can match with errors.Is while users see
// the full context.
var (
	// ErrKeyNotFound is returned when a key doesn't exist in the store.
	ErrKeyNotFound = errors.New("key not found")

	// ErrDuplicateKey is returned by strict inserts when the key is
	// already present.
	ErrDuplicateKey = errors.New("key already exists")

	// ErrKeyMismatch is returned when a caller-supplied key conflicts
	// with a record's own key field.
	ErrKeyMismatch = errors.New("key does not match record key")

	// ErrStorePoisoned is returned by every operation after a panic was
	// recovered inside a mutating critical section. The store's state may
	// be inconsistent and is no longer served.
	ErrStorePoisoned = errors.New("store poisoned by panic during mutation")

	// ErrSerialize wraps codec failures while encoding store contents.
	ErrSerialize = errors.New("serialization failed")

	// ErrDeserialize wraps codec failures while decoding store contents,
	// including unsupported envelope versions.
	ErrDeserialize = errors.New("deserialization failed")
)
