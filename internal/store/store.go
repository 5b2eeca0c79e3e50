package store

// Store defines the capability contract for the key→record table.
// All implementations must be safe for concurrent use, with at most one
// in-flight mutation per key and per-key sequential consistency.
type Store interface {
	// GetClone returns a copy of the record stored under key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	GetClone(key string) (Record, error)

	// Insert creates a fresh record for key. It does not overwrite;
	// ErrDuplicateKey is returned if the key is already present.
	Insert(key, value string) error

	// InsertRecord inserts a fully-formed record verbatim, preserving its
	// timestamps. Same duplicate-key semantics as Insert.
	InsertRecord(rec Record) error

	// SetOrInsert updates the record under key with Update semantics
	// (conditional timestamp bump, Created preserved), creating a fresh
	// record if the key is absent. Never fails on a healthy store.
	SetOrInsert(key, value string) error

	// SetOrInsertRecord replaces the record under rec.Key with
	// OverwriteWith semantics (all four fields adopted), inserting rec
	// verbatim if the key is absent.
	SetOrInsertRecord(rec Record) error

	// Contains reports whether key is present.
	Contains(key string) (bool, error)

	// Len returns the number of records.
	Len() (int, error)

	// Delete removes and returns the record under key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Delete(key string) (Record, error)

	// Snapshot exports the current records as a versioned snapshot.
	// Non-consuming; safe to call while the store stays live.
	Snapshot() (*Snapshot, error)

	// DrainSnapshot exports the records and empties the store. Export and
	// reset are atomic per key, not across the whole store: writes racing
	// a drain land either in the returned snapshot or in the emptied
	// store, never both. The store remains usable afterwards.
	DrainSnapshot() (*Snapshot, error)

	// LoadSnapshot discards any prior state and loads the snapshot's
	// records, preserving their stored timestamps. Fails with
	// ErrDuplicateKey if the snapshot itself contains duplicate keys,
	// in which case the prior state is left untouched.
	LoadSnapshot(snap *Snapshot) error

	// Bytes serializes the entire internal mapping directly (JSON object
	// of key→record). This is a lower-level round-trip path than
	// Snapshot and preserves every record field exactly.
	Bytes() ([]byte, error)
}
