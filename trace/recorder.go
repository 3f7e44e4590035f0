// Package trace implements the frame trace recorder (SPEC_FULL §2
// component 7): a bounded, per-channel trail of recently seen/sent
// frames kept for post-mortem debugging after a channel closes
// unexpectedly. It is diagnostics, not protocol state — Channel calls
// into it on the side (Connection only holds it and hands it to its
// channels), and its absence never changes dispatch behavior.
package trace

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aleybovich/amqpmux/config"
	"github.com/aleybovich/amqpmux/storage"
	"github.com/aleybovich/amqpmux/wire"
)

// Recorder records frames per channel and replays the most recent ones.
type Recorder interface {
	// Record appends fr to channel's trail, dropping the oldest entry
	// once the configured per-channel limit is exceeded.
	Record(channel uint16, fr wire.Frame)
	// Recent returns the channel's trail, oldest first.
	Recent(channel uint16) []wire.Frame
	// Close releases any backing resources.
	Close() error
}

// New builds a Recorder from cfg. An empty/None type returns a Recorder
// whose methods are no-ops, so callers never need a nil check.
func New(cfg config.TraceConfig) (Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	limit := cfg.PerChannelLimit
	if limit <= 0 {
		limit = config.DefaultTraceLimit
	}

	switch cfg.Type {
	case "", config.TraceStorageNone:
		return noopRecorder{}, nil
	case config.TraceStorageMemory:
		return newMemoryRecorder(limit), nil
	case config.TraceStorageBuntDB:
		provider := storage.NewBuntDBProvider(cfg.BuntDBPath)
		if err := provider.Initialize(); err != nil {
			return nil, fmt.Errorf("initializing buntdb trace storage: %w", err)
		}
		return newPersistentRecorder(provider, limit), nil
	default:
		return nil, fmt.Errorf("unknown trace storage type: %s", cfg.Type)
	}
}

type noopRecorder struct{}

func (noopRecorder) Record(uint16, wire.Frame) {}
func (noopRecorder) Recent(uint16) []wire.Frame { return nil }
func (noopRecorder) Close() error               { return nil }

// memoryRecorder keeps each channel's trail in a bounded, drop-oldest
// slice guarded by a single mutex.
type memoryRecorder struct {
	mu      sync.Mutex
	limit   int
	trails  map[uint16][]wire.Frame
}

func newMemoryRecorder(limit int) *memoryRecorder {
	return &memoryRecorder{limit: limit, trails: make(map[uint16][]wire.Frame)}
}

func (r *memoryRecorder) Record(channel uint16, fr wire.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trail := append(r.trails[channel], fr)
	if len(trail) > r.limit {
		trail = trail[len(trail)-r.limit:]
	}
	r.trails[channel] = trail
}

func (r *memoryRecorder) Recent(channel uint16) []wire.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wire.Frame, len(r.trails[channel]))
	copy(out, r.trails[channel])
	return out
}

func (r *memoryRecorder) Close() error { return nil }

// persistentRecorder writes the same bounded trail through a
// storage.Provider, so the trail survives a crash of the host process.
type persistentRecorder struct {
	mu       sync.Mutex
	provider storage.Provider
	limit    int
	seq      map[uint16]uint64
}

func newPersistentRecorder(provider storage.Provider, limit int) *persistentRecorder {
	return &persistentRecorder{provider: provider, limit: limit, seq: make(map[uint16]uint64)}
}

type storedFrame struct {
	Type    byte   `json:"type"`
	Channel uint16 `json:"channel"`
	Payload []byte `json:"payload"`
}

func frameKey(channel uint16, seq uint64) string {
	return fmt.Sprintf("%s%d:%020d", storage.KeyPrefixFrame, channel, seq)
}

func (r *persistentRecorder) Record(channel uint16, fr wire.Frame) {
	r.mu.Lock()
	seq := r.seq[channel]
	r.seq[channel] = seq + 1
	r.mu.Unlock()

	payload, err := json.Marshal(storedFrame{Type: fr.Type, Channel: fr.Channel, Payload: fr.Payload})
	if err != nil {
		return
	}
	_ = r.provider.Set(frameKey(channel, seq), payload)
	r.trim(channel)
}

func (r *persistentRecorder) trim(channel uint16) {
	prefix := fmt.Sprintf("%s%d:", storage.KeyPrefixFrame, channel)
	keys, err := r.provider.Keys(prefix)
	if err != nil || len(keys) <= r.limit {
		return
	}
	stale := keys[:len(keys)-r.limit]
	_ = r.provider.DeleteBatch(stale)
}

func (r *persistentRecorder) Recent(channel uint16) []wire.Frame {
	prefix := fmt.Sprintf("%s%d:", storage.KeyPrefixFrame, channel)
	keys, err := r.provider.Keys(prefix)
	if err != nil {
		return nil
	}
	out := make([]wire.Frame, 0, len(keys))
	for _, k := range keys {
		raw, err := r.provider.Get(k)
		if err != nil {
			continue
		}
		var sf storedFrame
		if err := json.Unmarshal(raw, &sf); err != nil {
			continue
		}
		out = append(out, wire.Frame{Type: sf.Type, Channel: sf.Channel, Payload: sf.Payload})
	}
	return out
}

func (r *persistentRecorder) Close() error { return r.provider.Close() }
