package frame

import (
	apperrors "github.com/shoatman/electron-ng2seed/pkg/errors"
	"github.com/shoatman/electron-ng2seed/pkg/resilience/circuitbreaker"
)

// Breaker names.
const (
	BreakerRenewal    = "frame.renewal"
	BreakerNavigation = "frame.navigation"
)

// Launcher is what a Guard protects; *Browser satisfies it.
type Launcher interface {
	Open(url string) error
	Navigate(url string) error
}

// Guard stops launching the browser after repeated failures, so a host
// without an opener fails renewals at once instead of on every attempt.
type Guard struct {
	next     Launcher
	breakers *circuitbreaker.Manager
}

// NewGuard wraps next with the breakers of m.
func NewGuard(next Launcher, m *circuitbreaker.Manager) *Guard {
	return &Guard{next: next, breakers: m}
}

// Open launches a renewal URL unless the renewal circuit is open.
func (g *Guard) Open(url string) error {
	return g.run(BreakerRenewal, func() error { return g.next.Open(url) })
}

// Navigate launches a login or logout URL unless the navigation circuit is open.
func (g *Guard) Navigate(url string) error {
	return g.run(BreakerNavigation, func() error { return g.next.Navigate(url) })
}

func (g *Guard) run(name string, fn func() error) error {
	err := g.breakers.Run(name, fn)
	if circuitbreaker.IsRejected(err) {
		return apperrors.New(apperrors.ErrProtocol, "browser launches suspended after repeated failures").WithCause(err)
	}
	return err
}
