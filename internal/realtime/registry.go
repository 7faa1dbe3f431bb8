package realtime

import (
	"sync"

	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/metrics"
)

// Registration identifies one Register call. Deregister only removes the
// entry it was issued for, so a stale session cannot evict a newer one.
type Registration struct {
	Identity   string
	Generation uint64
}

type registryEntry struct {
	conn       Conn
	generation uint64
}

// Registry maps identities to their single live connection.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]registryEntry
	generation uint64
	logger     *logger.Logger
}

func NewRegistry(logger *logger.Logger) *Registry {
	return &Registry{
		entries: make(map[string]registryEntry),
		logger:  logger,
	}
}

// Register installs conn for identity, replacing any previous connection.
// The replaced connection is detached but not closed; its session keeps
// running until its own read fails.
func (r *Registry) Register(identity string, conn Conn) Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	if prev, ok := r.entries[identity]; ok {
		r.logger.Info("Connection registry: detached previous connection",
			"identity", identity, "previous_conn", prev.conn.ID(), "conn", conn.ID())
	}
	r.entries[identity] = registryEntry{conn: conn, generation: r.generation}
	metrics.RealtimeConnections.Set(float64(len(r.entries)))

	return Registration{Identity: identity, Generation: r.generation}
}

// Deregister removes the entry only if reg is still current and reports
// whether it did.
func (r *Registry) Deregister(reg Registration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.entries[reg.Identity]
	if !ok || current.generation != reg.Generation {
		return false
	}
	delete(r.entries, reg.Identity)
	metrics.RealtimeConnections.Set(float64(len(r.entries)))

	return true
}

func (r *Registry) Lookup(identity string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[identity]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Count returns the number of registered identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
