// Package circuitbreaker provides named circuit breakers using sony/gobreaker.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// State represents the circuit breaker state.
type State = gobreaker.State

// States
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Settings holds settings shared by every breaker of a Manager.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold uint32
	// MaxRequests is the number of trial calls allowed while half-open
	MaxRequests uint32
	// Timeout is the period of open state before switching to half-open
	Timeout time.Duration
}

// DefaultSettings returns default breaker settings.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: 3,
		MaxRequests:      1,
		Timeout:          30 * time.Second,
	}
}

// Manager hands out one circuit breaker per name.
type Manager struct {
	settings Settings
	log      *zap.Logger

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

// NewManager creates a new circuit breaker manager.
func NewManager(settings Settings, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		settings: settings,
		log:      log,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Get returns or creates the circuit breaker for name.
func (m *Manager) Get(name string) *gobreaker.CircuitBreaker[struct{}] {
	m.mu.RLock()
	cb, exists := m.breakers[name]
	m.mu.RUnlock()

	if exists {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, exists = m.breakers[name]; exists {
		return cb
	}

	cb = m.createBreaker(name)
	m.breakers[name] = cb
	return cb
}

func (m *Manager) createBreaker(name string) *gobreaker.CircuitBreaker[struct{}] {
	threshold := m.settings.FailureThreshold
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: m.settings.MaxRequests,
		Timeout:     m.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			m.log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Run calls fn under the breaker for name. While the circuit is open fn is
// not called and the returned error satisfies IsRejected.
func (m *Manager) Run(name string, fn func() error) error {
	_, err := m.Get(name).Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// State returns the current state of a circuit breaker.
func (m *Manager) State(name string) State {
	return m.Get(name).State()
}

// States returns all circuit breaker states.
func (m *Manager) States() map[string]State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]State, len(m.breakers))
	for name, cb := range m.breakers {
		states[name] = cb.State()
	}
	return states
}

// IsRejected reports whether err came from an open or saturated breaker
// rather than from the protected call.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
