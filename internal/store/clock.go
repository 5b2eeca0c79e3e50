package store

import "time"

// Clock supplies the unix-seconds timestamps recorded on mutations.
// Stores take a Clock at construction so tests can pin time; production
// code uses SystemClock.
type Clock func() int64

// SystemClock returns the current wall-clock time in unix seconds.
func SystemClock() int64 {
	return time.Now().Unix()
}
