// Package authctx is the token broker engine: it signs the user in with the
// implicit flow, serves cached tokens and renews them silently through a
// frame broker, correlating every outstanding request by its state value.
package authctx

import (
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/config"
	"github.com/shoatman/electron-ng2seed/internal/model"
	"github.com/shoatman/electron-ng2seed/internal/service/correlation"
	"github.com/shoatman/electron-ng2seed/internal/service/request"
	"github.com/shoatman/electron-ng2seed/internal/service/storage"
	"github.com/shoatman/electron-ng2seed/internal/service/tokencache"
	apperrors "github.com/shoatman/electron-ng2seed/pkg/errors"
	"github.com/shoatman/electron-ng2seed/pkg/logger"
)

const (
	// DefaultRenewTimeout bounds how long a silent renewal may stay outstanding
	DefaultRenewTimeout = 6 * time.Second

	stateDelimiter = "|"

	// lateStateTTL bounds how long a timed-out renewal may still deliver its token
	lateStateTTL = 5 * time.Minute
)

// FrameBroker loads an authorization URL out of sight of the user. The final
// redirect must be handed back through Engine.HandleRedirect.
type FrameBroker interface {
	Open(url string) error
}

// Navigator sends the user's main window to a URL (login, logout)
type Navigator interface {
	Navigate(url string) error
}

// Recorder receives engine events for metrics
type Recorder interface {
	CacheLookup(hit bool)
	RenewalStarted(kind string)
	RenewalFinished(outcome string)
	LoginStarted()
	CallbackProcessed(requestType, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) CacheLookup(bool)                 {}
func (nopRecorder) RenewalStarted(string)            {}
func (nopRecorder) RenewalFinished(string)           {}
func (nopRecorder) LoginStarted()                    {}
func (nopRecorder) CallbackProcessed(string, string) {}

type logNavigator struct{ log *zap.Logger }

func (n logNavigator) Navigate(u string) error {
	n.log.Info("navigation requested but no navigator configured", logger.URL("url", u))
	return nil
}

type missingBroker struct{}

func (missingBroker) Open(string) error {
	return apperrors.New(apperrors.ErrConfigInvalid, "no frame broker configured")
}

// Engine is the authentication context. It is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	cfg      config.AuthConfig
	keys     tokencache.Keys
	cache    *tokencache.Cache
	registry *correlation.Registry
	builder  *request.Builder

	frames    FrameBroker
	navigator Navigator
	display   func(url string)
	onLogin   model.TokenHandler
	recorder  Recorder
	log       *zap.Logger
	now       func() time.Time
	afterFunc func(time.Duration, func())
	random    io.Reader

	user            *model.User
	loginInProgress bool
	// states of renewals started by this engine; only these classify as
	// RENEW_TOKEN responses
	renewStates map[string]struct{}
	// states of timed-out renewals, kept for lateStateTTL
	lateStates *gocache.Cache
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithFrameBroker sets the hidden-frame capability used for silent renewals
func WithFrameBroker(b FrameBroker) Option {
	return func(e *Engine) { e.frames = b }
}

// WithNavigator sets the top-level navigation capability
func WithNavigator(n Navigator) Option {
	return func(e *Engine) { e.navigator = n }
}

// WithDisplay makes Login hand its URL to fn instead of navigating
func WithDisplay(fn func(url string)) Option {
	return func(e *Engine) { e.display = fn }
}

// WithLoginHandler is called with the id token once an interactive login completes
func WithLoginHandler(h model.TokenHandler) Option {
	return func(e *Engine) { e.onLogin = h }
}

// WithRandom sets the randomness source for state, nonce and request ids
func WithRandom(r io.Reader) Option {
	return func(e *Engine) { e.random = r }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithAfterFunc overrides the timer used for renewal timeouts
func WithAfterFunc(fn func(time.Duration, func())) Option {
	return func(e *Engine) { e.afterFunc = fn }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithKeyPrefix namespaces the engine's store entries
func WithKeyPrefix(prefix string) Option {
	return func(e *Engine) { e.keys = tokencache.NewKeys(prefix) }
}

// New creates an engine over store. Configuration errors are reported here
// rather than on first use.
func New(cfg config.AuthConfig, store storage.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, apperrors.New(apperrors.ErrConfigInvalid, "store is required")
	}
	if err := validateAuthConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.RenewTimeout <= 0 {
		cfg.RenewTimeout = DefaultRenewTimeout
	}
	if cfg.ExpireOffset <= 0 {
		cfg.ExpireOffset = tokencache.DefaultExpiryOffset
	}

	e := &Engine{
		cfg:         cfg,
		keys:        tokencache.NewKeys(""),
		frames:      missingBroker{},
		recorder:    nopRecorder{},
		log:         zap.NewNop(),
		now:         time.Now,
		afterFunc:   func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		renewStates: make(map[string]struct{}),
		lateStates:  gocache.New(lateStateTTL, lateStateTTL),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.navigator == nil {
		e.navigator = logNavigator{log: e.log}
	}

	e.cache = tokencache.New(store,
		tokencache.WithKeys(e.keys),
		tokencache.WithExpiryOffset(cfg.ExpireOffset),
		tokencache.WithClock(e.now),
		tokencache.WithLogger(e.log.Named("cache")),
	)
	e.registry = correlation.NewRegistry(e.log.Named("correlation"))
	e.builder = request.NewBuilder(request.Config{
		Instance:            cfg.Instance,
		Tenant:              cfg.Tenant,
		ClientID:            cfg.ClientID,
		RedirectURI:         cfg.RedirectURI,
		ExtraQueryParameter: cfg.ExtraQueryParameter,
		CorrelationID:       cfg.CorrelationID,
		Slice:               cfg.Slice,
	}, request.NewGUIDGenerator(e.random))

	return e, nil
}

func validateAuthConfig(cfg config.AuthConfig) error {
	if cfg.ClientID == "" {
		return apperrors.New(apperrors.ErrConfigInvalid, "client id is required")
	}
	if cfg.RedirectURI == "" {
		return apperrors.New(apperrors.ErrConfigInvalid, "redirect uri is required")
	}
	if cfg.Instance != "" {
		u, err := url.Parse(cfg.Instance)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return apperrors.Newf(apperrors.ErrConfigInvalid, "instance %q is not an absolute URL", cfg.Instance)
		}
	}
	return nil
}

// resourceFromState returns the text after the first '|' of state, or ""
func resourceFromState(state string) string {
	_, resource, ok := strings.Cut(state, stateDelimiter)
	if !ok {
		return ""
	}
	return resource
}

func (e *Engine) loginResource() string {
	if e.cfg.LoginResource != "" {
		return e.cfg.LoginResource
	}
	return e.cfg.ClientID
}

// safeInvoke runs a caller-supplied handler, containing any panic
func (e *Engine) safeInvoke(what string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Warn("handler panicked", zap.String("handler", what), zap.Any("panic", rec))
		}
	}()
	fn()
}
