package frame

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shoatman/electron-ng2seed/pkg/errors"
	"github.com/shoatman/electron-ng2seed/pkg/resilience/circuitbreaker"
)

func TestGuard_PassesThrough(t *testing.T) {
	var calls []startCall
	b := NewBrowser(WithGOOS("linux"), WithStartFunc(recordingStart(&calls, nil)))
	g := NewGuard(b, circuitbreaker.NewManager(circuitbreaker.DefaultSettings(), nil))

	require.NoError(t, g.Open("https://example.com/renew"))
	require.NoError(t, g.Navigate("https://example.com/login"))
	assert.Len(t, calls, 2)
}

func TestGuard_OpensAfterFailures(t *testing.T) {
	var calls []startCall
	b := NewBrowser(WithGOOS("linux"), WithStartFunc(recordingStart(&calls, errors.New("no xdg-open"))))
	m := circuitbreaker.NewManager(circuitbreaker.Settings{FailureThreshold: 2, MaxRequests: 1, Timeout: time.Minute}, nil)
	g := NewGuard(b, m)

	assert.Error(t, g.Open("https://example.com/1"))
	assert.Error(t, g.Open("https://example.com/2"))

	err := g.Open("https://example.com/3")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrProtocol)
	assert.Len(t, calls, 2, "open circuit must not launch")

	assert.Equal(t, circuitbreaker.StateOpen, m.State(BreakerRenewal))
	assert.Equal(t, circuitbreaker.StateClosed, m.State(BreakerNavigation))
}
