package shadercache

import (
	"sync"

	"github.com/gogpu/shadercache/backend"
)

// WorkerID identifies a logical compilation worker. Creating a compiler
// backend context is expensive, so contexts are created once per worker and
// reused for every session that worker opens.
type WorkerID uint32

// SessionRegistry maps worker identities to lazily created compiler backend
// contexts. The first session acquired for a worker creates and publishes its
// context; the entry is read-only for the rest of the worker's lifetime.
//
// SessionRegistry is safe for concurrent use. Get-or-create is guarded by a
// mutex, so two workers racing on the same WorkerID still end up sharing one
// context.
type SessionRegistry struct {
	mu       sync.Mutex
	contexts map[WorkerID]backend.Backend
	factory  func() backend.Backend
}

// NewSessionRegistry creates a registry whose contexts are produced by
// factory. A nil factory selects [backend.Default] at first use, which picks
// the best registered backend.
func NewSessionRegistry(factory func() backend.Backend) *SessionRegistry {
	return &SessionRegistry{
		contexts: make(map[WorkerID]backend.Backend),
		factory:  factory,
	}
}

// defaultRegistry backs programs that do not supply their own registry.
var defaultRegistry = NewSessionRegistry(nil)

// DefaultRegistry returns the process-wide registry used by programs created
// without [WithRegistry].
func DefaultRegistry() *SessionRegistry {
	return defaultRegistry
}

// Context returns the backend context for the given worker, creating it on
// first use. Returns ErrNoBackend if no backend can be produced.
func (r *SessionRegistry) Context(worker WorkerID) (backend.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.contexts[worker]; ok {
		return b, nil
	}

	var b backend.Backend
	if r.factory != nil {
		b = r.factory()
	} else {
		b = backend.Default()
	}
	if b == nil {
		return nil, ErrNoBackend
	}
	r.contexts[worker] = b
	return b, nil
}

// AcquireSession opens a fresh per-compile session bound to the worker's
// shared context. cfg's slices are snapshotted by the backend during this
// call; the caller may reuse the backing storage afterwards.
func (r *SessionRegistry) AcquireSession(worker WorkerID, cfg backend.SessionConfig) (backend.Session, error) {
	b, err := r.Context(worker)
	if err != nil {
		return nil, err
	}
	return b.NewSession(cfg)
}

// Workers returns the worker identities that currently hold a context.
// Useful for diagnostics.
func (r *SessionRegistry) Workers() []WorkerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]WorkerID, 0, len(r.contexts))
	for id := range r.contexts {
		ids = append(ids, id)
	}
	return ids
}
