// Package wal provides a minimal write-ahead log for replaying store
// mutations across restarts.
//
// The log is a single append-only file of JSON lines, one Entry per
// line. Each entry carries a monotonically increasing sequence number,
// an operation kind, and the key (plus value for sets). On startup the
// log is replayed in order before the server begins accepting requests;
// on open, the highest sequence number already on disk is recovered so
// appends continue where the previous process stopped.
//
// The log complements snapshot persistence rather than replacing it:
// snapshots capture whole-store state at shutdown, the log captures the
// individual mutations in between.
package wal
