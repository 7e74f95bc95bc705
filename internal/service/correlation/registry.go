// Package correlation tracks outstanding authorization requests and the
// handlers waiting on them, keyed by the request's state value.
package correlation

import (
	"sync"

	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/model"
)

type pending struct {
	resource string
	handlers []model.TokenHandler
}

// Registry maps states to waiting handlers and resources to their in-flight state.
// It is safe for concurrent use. Handlers are always invoked without the
// registry lock held.
type Registry struct {
	mu      sync.Mutex
	byState map[string]*pending
	active  map[string]string
	log     *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		byState: make(map[string]*pending),
		active:  make(map[string]string),
		log:     log,
	}
}

// Register marks state as the in-flight request for resource and appends
// handler to the state's handler list.
func (r *Registry) Register(state, resource string, handler model.TokenHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byState[state]
	if !ok {
		p = &pending{resource: resource}
		r.byState[state] = p
	}
	if handler != nil {
		p.handlers = append(p.handlers, handler)
	}
	r.active[resource] = state
}

// Join appends handler to the in-flight request for resource. It reports
// false, registering nothing, when no request for resource is outstanding.
// A nil handler only looks the state up.
func (r *Registry) Join(resource string, handler model.TokenHandler) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.active[resource]
	if !ok {
		return "", false
	}
	p, ok := r.byState[state]
	if !ok {
		delete(r.active, resource)
		return "", false
	}
	if handler != nil {
		p.handlers = append(p.handlers, handler)
	}
	return state, true
}

// IsPending reports whether state has not been dispatched yet
func (r *Registry) IsPending(state string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byState[state]
	return ok
}

// Pending returns the number of outstanding states
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byState)
}

// Dispatch delivers result to every handler registered for state, in
// registration order. The state's bookkeeping is removed before any handler
// runs, so a handler may start a new request for the same resource.
// Returns false when state is unknown or was already dispatched.
func (r *Registry) Dispatch(state string, result model.TokenResult) bool {
	r.mu.Lock()
	p, ok := r.byState[state]
	if ok {
		delete(r.byState, state)
		if r.active[p.resource] == state {
			delete(r.active, p.resource)
		}
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	for i, h := range p.handlers {
		r.invoke(state, i, h, result)
	}
	return true
}

func (r *Registry) invoke(state string, idx int, h model.TokenHandler, result model.TokenResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("token handler panicked",
				zap.String("state", state),
				zap.Int("handler", idx),
				zap.Any("panic", rec),
			)
		}
	}()
	h(result)
}
