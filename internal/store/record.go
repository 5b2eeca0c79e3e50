package store

import "hash/fnv"

// Record is one stored key/value pair with provenance timestamps.
// Key is the record's immutable identity; Created is set once at
// construction and never changes; Updated moves forward only when the
// value actually changes (or on an explicit Touch/Clear).
type Record struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Created int64  `json:"created"` // unix seconds, set once
	Updated int64  `json:"updated"` // unix seconds, >= Created
}

// NewRecord creates a fresh record with both timestamps set to now.
func NewRecord(key, value string, now int64) Record {
	return Record{
		Key:     key,
		Value:   value,
		Created: now,
		Updated: now,
	}
}

// Reconstruct builds a record from fully explicit fields, used when
// rehydrating from storage or wire messages. No validation is performed;
// callers are responsible for preserving Updated >= Created.
func Reconstruct(key, value string, created, updated int64) Record {
	return Record{
		Key:     key,
		Value:   value,
		Created: created,
		Updated: updated,
	}
}

// Update replaces the value and bumps Updated, unless the new value is
// identical to the current one, in which case nothing changes.
func (r *Record) Update(value string, now int64) {
	if value == r.Value {
		return
	}
	r.Value = value
	r.Updated = now
}

// Clear empties the value and bumps Updated unconditionally.
func (r *Record) Clear(now int64) {
	r.Value = ""
	r.Updated = now
}

// Touch bumps Updated without changing the value.
func (r *Record) Touch(now int64) {
	r.Updated = now
}

// OverwriteWith replaces all four fields with other's, adopting the
// incoming timestamps rather than recomputing them. This is the "set"
// semantics used when the caller already holds an authoritative record.
func (r *Record) OverwriteWith(other Record) {
	r.Key = other.Key
	r.Value = other.Value
	r.Created = other.Created
	r.Updated = other.Updated
}

// Equal reports whether all four fields match.
func (r Record) Equal(other Record) bool {
	return r == other
}

// Less orders records lexicographically over (key, value, created, updated).
func (r Record) Less(other Record) bool {
	if r.Key != other.Key {
		return r.Key < other.Key
	}
	if r.Value != other.Value {
		return r.Value < other.Value
	}
	if r.Created != other.Created {
		return r.Created < other.Created
	}
	return r.Updated < other.Updated
}

// HashKey hashes the record's identity. Only the key participates, so two
// records for the same key collide regardless of value or timestamps.
func (r Record) HashKey() uint32 {
	h := fnv.New32a()
	h.Write([]byte(r.Key))
	return h.Sum32()
}

// String renders the record's display form, "key:value".
func (r Record) String() string {
	return r.Key + ":" + r.Value
}
