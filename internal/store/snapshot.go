package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotVersion is the current on-disk format version for both envelope
// kinds. Readers treat any other value as a hard error; no migration
// logic exists for older or newer formats.
const SnapshotVersion uint8 = 1

// RecordData is the serializable mirror of Record used inside snapshots.
type RecordData struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Created int64  `json:"created"`
	Updated int64  `json:"updated"`
}

// Snapshot is a versioned list-of-records envelope for structured
// export/import. Entry order is implementation-defined: the source maps
// are unordered, so callers must not assume insertion order survives a
// round trip.
type Snapshot struct {
	Version uint8        `json:"version"`
	Data    []RecordData `json:"data"`
}

// NewSnapshot wraps records in a current-version snapshot envelope.
func NewSnapshot(records []Record) *Snapshot {
	data := make([]RecordData, 0, len(records))
	for _, r := range records {
		data = append(data, RecordData(r))
	}
	return &Snapshot{Version: SnapshotVersion, Data: data}
}

// Records converts the snapshot's entries back into Records, preserving
// their stored timestamps.
func (s *Snapshot) Records() []Record {
	records := make([]Record, 0, len(s.Data))
	for _, d := range s.Data {
		records = append(records, Record(d))
	}
	return records
}

// Marshal encodes the snapshot as JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	buf, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", ErrSerialize, err)
	}
	return buf, nil
}

// UnmarshalSnapshot decodes a snapshot and validates its version.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", ErrDeserialize, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", ErrDeserialize, snap.Version)
	}
	return &snap, nil
}

// ByteEnvelope wraps an opaque serialized payload (such as a whole-store
// byte blob) with a format version for file transport.
type ByteEnvelope struct {
	Version uint8  `json:"version"`
	Data    []byte `json:"data"`
}

// NewByteEnvelope wraps data in a current-version envelope.
func NewByteEnvelope(data []byte) *ByteEnvelope {
	return &ByteEnvelope{Version: SnapshotVersion, Data: data}
}

// WriteStoreFile serializes the store's mapping, wraps it in a
// ByteEnvelope, and writes it to path. The write goes through a temp file
// in the same directory and a rename, so a crash never leaves a torn
// snapshot behind.
func WriteStoreFile(s Store, path string) error {
	raw, err := s.Bytes()
	if err != nil {
		return err
	}
	buf, err := json.Marshal(NewByteEnvelope(raw))
	if err != nil {
		return fmt.Errorf("%w: envelope: %v", ErrSerialize, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}

// ReadStoreFile reads a ByteEnvelope from path and returns the wrapped
// store bytes, validating the envelope version.
func ReadStoreFile(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	var env ByteEnvelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrDeserialize, err)
	}
	if env.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported envelope version %d", ErrDeserialize, env.Version)
	}
	return env.Data, nil
}

// decodeMapping decodes the key→record JSON object produced by Bytes,
// defensively rejecting entries whose object key disagrees with the
// record's own key field.
func decodeMapping(data []byte) (map[string]*Record, error) {
	var raw map[string]Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: mapping: %v", ErrDeserialize, err)
	}
	mapping := make(map[string]*Record, len(raw))
	for key, rec := range raw {
		if key != rec.Key {
			return nil, fmt.Errorf("%w: entry %q holds record %q", ErrKeyMismatch, key, rec.Key)
		}
		r := rec
		mapping[key] = &r
	}
	return mapping, nil
}

// encodeMapping encodes a key→record map as the Bytes wire form.
func encodeMapping(mapping map[string]*Record) ([]byte, error) {
	flat := make(map[string]Record, len(mapping))
	for key, rec := range mapping {
		flat[key] = *rec
	}
	buf, err := json.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("%w: mapping: %v", ErrSerialize, err)
	}
	return buf, nil
}

// stageSnapshot builds a fresh mapping from snapshot records, failing
// fast on duplicate keys so a half-loaded state is never installed.
func stageSnapshot(snap *Snapshot) (map[string]*Record, error) {
	staged := make(map[string]*Record, len(snap.Data))
	for _, d := range snap.Data {
		if _, exists := staged[d.Key]; exists {
			return nil, fmt.Errorf("%w: %q in snapshot", ErrDuplicateKey, d.Key)
		}
		rec := Record(d)
		staged[d.Key] = &rec
	}
	return staged, nil
}
