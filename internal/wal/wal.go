package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Op identifies the kind of mutation an entry records.
type Op string

const (
	// OpSet records an upsert of key to value.
	OpSet Op = "set"
	// OpDelete records removal of key.
	OpDelete Op = "delete"
)

// FileName is the log file created inside the configured directory.
const FileName = "wal.log"

// ErrCorrupt marks a log whose entries are malformed or whose sequence
// numbers are not strictly increasing.
var ErrCorrupt = errors.New("wal corrupt")

// Entry is one logged mutation, stored as a single JSON line.
type Entry struct {
	Seq   uint64 `json:"seq"`
	Op    Op     `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Log appends mutation entries to a single file. Safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	file *os.File
	path string
	seq  uint64
}

// Open creates or reopens the log in dir, recovering the highest
// sequence number already on disk so appends continue from there.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}
	path := filepath.Join(dir, FileName)

	seq := uint64(0)
	entries, err := readEntries(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if n := len(entries); n > 0 {
		seq = entries[n-1].Seq
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}
	return &Log{file: file, path: path, seq: seq}, nil
}

// Append writes one entry with the next sequence number and returns it.
func (l *Log) Append(op Op, key, value string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{Seq: l.seq + 1, Op: op, Key: key, Value: value}
	line, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("append wal: %w", err)
	}
	line = append(line, '\n')
	if _, err := l.file.Write(line); err != nil {
		return Entry{}, fmt.Errorf("append wal: %w", err)
	}
	l.seq = entry.Seq
	return entry, nil
}

// Seq returns the sequence number of the most recently appended entry,
// or zero for an empty log.
func (l *Log) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close wal: %w", err)
	}
	return nil
}

// Replay reads the log in dir and invokes apply on each entry in order.
// A missing log file is not an error; there is simply nothing to replay.
// Returns the highest sequence number seen.
func Replay(dir string, apply func(Entry) error) (uint64, error) {
	entries, err := readEntries(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	seq := uint64(0)
	for _, entry := range entries {
		if err := apply(entry); err != nil {
			return seq, fmt.Errorf("replay entry %d: %w", entry.Seq, err)
		}
		seq = entry.Seq
	}
	return seq, nil
}

// readEntries loads and validates every entry in the file at path.
// Sequence numbers must be strictly increasing; anything else means the
// log was torn or tampered with and replaying it would be unsafe.
func readEntries(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read wal: %w", err)
	}
	defer file.Close()

	var entries []Entry
	var last uint64
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(text, &entry); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, line, err)
		}
		if entry.Seq <= last {
			return nil, fmt.Errorf("%w: line %d: seq %d after %d", ErrCorrupt, line, entry.Seq, last)
		}
		if entry.Op != OpSet && entry.Op != OpDelete {
			return nil, fmt.Errorf("%w: line %d: unknown op %q", ErrCorrupt, line, entry.Op)
		}
		last = entry.Seq
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read wal: %w", err)
	}
	return entries, nil
}
