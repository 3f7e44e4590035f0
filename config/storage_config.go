package config

import "fmt"

// TraceStorageType selects the backing store for the frame trace
// recorder (§2's added component 7). Grounded on the teacher's own
// StorageType/StorageConfig shape, narrowed from broker persistence to a
// diagnostics-only trail.
type TraceStorageType string

const (
	// TraceStorageNone disables frame tracing entirely.
	TraceStorageNone TraceStorageType = "none"
	// TraceStorageMemory keeps the trail in a process-local ring buffer.
	TraceStorageMemory TraceStorageType = "memory"
	// TraceStorageBuntDB persists the trail so it survives a crash of
	// the host process (not of the connection — reconnection remains
	// out of scope).
	TraceStorageBuntDB TraceStorageType = "buntdb"
)

// TraceConfig configures the frame trace recorder.
type TraceConfig struct {
	Type TraceStorageType

	// PerChannelLimit bounds how many frames are retained per channel
	// before the oldest is dropped. Zero means DefaultTraceLimit.
	PerChannelLimit int

	// BuntDBPath is the file path for TraceStorageBuntDB; empty means
	// ":memory:".
	BuntDBPath string
}

// DefaultTraceLimit is the per-channel frame trail length when
// PerChannelLimit is left at zero.
const DefaultTraceLimit = 64

// Validate ensures the trace configuration is internally consistent.
func (tc TraceConfig) Validate() error {
	switch tc.Type {
	case "", TraceStorageNone, TraceStorageMemory, TraceStorageBuntDB:
		return nil
	default:
		return fmt.Errorf("unknown trace storage type: %s", tc.Type)
	}
}
