package pathstore

import "sync/atomic"

// globalIDCounter is the source of unique IDs for listener tokens.
// Atomic operations keep ID generation lock-free.
var globalIDCounter uint64

// nextID returns the next unique listener ID.
// IDs are monotonically increasing and never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
