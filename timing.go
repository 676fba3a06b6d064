// FILE: lixenwraith/nodeconf/timing.go
package nodeconf

import "time"

// Timing constants for the registry watcher.
const (
	MinDebounce          = 10 * time.Millisecond  // Floor for event coalescence
	ShutdownTimeout      = 100 * time.Millisecond // Graceful watcher termination window
	DefaultDebounce      = 500 * time.Millisecond // File change coalescence period
	DefaultReloadTimeout = 5 * time.Second        // Maximum duration for reload operations
)

const (
	// subscriberBuffer is the capacity of each change channel
	subscriberBuffer = 10

	// DefaultMaxWatchers limits concurrent subscriber channels
	DefaultMaxWatchers = 100
)
