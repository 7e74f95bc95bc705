package authctx

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shoatman/electron-ng2seed/internal/config"
	"github.com/shoatman/electron-ng2seed/internal/model"
	"github.com/shoatman/electron-ng2seed/internal/service/storage"
	"github.com/shoatman/electron-ng2seed/internal/service/tokencache"
)

const (
	testClientID = "client-1"
	testResource = "https://graph.windows.net"
)

var testNow = time.Unix(1_700_000_000, 0)

type recordingBroker struct {
	mu     sync.Mutex
	urls   []string
	err    error
	onOpen func(string)
}

func (b *recordingBroker) Open(u string) error {
	b.mu.Lock()
	b.urls = append(b.urls, u)
	fn, err := b.onOpen, b.err
	b.mu.Unlock()

	if fn != nil {
		fn(u)
	}
	return err
}

func (b *recordingBroker) opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.urls...)
}

type recordingNavigator struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (n *recordingNavigator) Navigate(u string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, u)
	return n.err
}

func (n *recordingNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.urls) == 0 {
		return ""
	}
	return n.urls[len(n.urls)-1]
}

type manualTimers struct {
	mu     sync.Mutex
	fns    []func()
	delays []time.Duration
}

func (m *manualTimers) afterFunc(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, fn)
	m.delays = append(m.delays, d)
}

func (m *manualTimers) fireAll() {
	m.mu.Lock()
	fns := m.fns
	m.fns = nil
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

type recordingRecorder struct {
	mu        sync.Mutex
	hits      int
	misses    int
	renewals  []string
	outcomes  []string
	logins    int
	callbacks []string
}

func (r *recordingRecorder) CacheLookup(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *recordingRecorder) RenewalStarted(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renewals = append(r.renewals, kind)
}

func (r *recordingRecorder) RenewalFinished(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingRecorder) LoginStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins++
}

func (r *recordingRecorder) CallbackProcessed(requestType, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, requestType+":"+outcome)
}

// tokenCollector gathers results delivered to token handlers
type tokenCollector struct {
	mu      sync.Mutex
	results []model.TokenResult
}

func (c *tokenCollector) handler() model.TokenHandler {
	return func(r model.TokenResult) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.results = append(c.results, r)
	}
}

func (c *tokenCollector) all() []model.TokenResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.TokenResult(nil), c.results...)
}

type harness struct {
	engine   *Engine
	store    *storage.MemoryStore
	keys     tokencache.Keys
	broker   *recordingBroker
	nav      *recordingNavigator
	timers   *manualTimers
	recorder *recordingRecorder
	logins   *tokenCollector
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Instance:              "https://login.microsoftonline.com/",
		Tenant:                "common",
		ClientID:              testClientID,
		RedirectURI:           "http://localhost:8080/callback",
		PostLogoutRedirectURI: "http://localhost:8080/",
	}
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	return newHarnessWithConfig(t, testAuthConfig(), opts...)
}

func newHarnessWithConfig(t *testing.T, cfg config.AuthConfig, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		store:    storage.NewMemoryStore(),
		keys:     tokencache.NewKeys(""),
		broker:   &recordingBroker{},
		nav:      &recordingNavigator{},
		timers:   &manualTimers{},
		recorder: &recordingRecorder{},
		logins:   &tokenCollector{},
	}
	t.Cleanup(func() { _ = h.store.Close() })

	base := []Option{
		WithFrameBroker(h.broker),
		WithNavigator(h.nav),
		WithClock(func() time.Time { return testNow }),
		WithAfterFunc(h.timers.afterFunc),
		WithRecorder(h.recorder),
		WithLoginHandler(h.logins.handler()),
	}
	e, err := New(cfg, h.store, append(base, opts...)...)
	require.NoError(t, err)
	h.engine = e
	return h
}

func (h *harness) item(t *testing.T, key string) string {
	t.Helper()
	v, err := h.store.Get(key)
	require.NoError(t, err)
	return v
}

// signIn seeds the store with an accepted id token
func (h *harness) signIn(t *testing.T) string {
	t.Helper()
	tok := makeIDToken(t, map[string]any{
		"aud": testClientID,
		"upn": "jane@contoso.com",
		"exp": testNow.Add(time.Hour).Unix(),
	})
	require.NoError(t, h.store.Set(h.keys.IDToken(), tok))
	return tok
}

func makeIDToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return "eyJhbGciOiJub25lIn0." + base64.RawURLEncoding.EncodeToString(payload) + "."
}

func queryOf(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

func fragment(pairs ...string) string {
	v := ""
	for i := 0; i+1 < len(pairs); i += 2 {
		if v != "" {
			v += "&"
		}
		v += url.QueryEscape(pairs[i]) + "=" + url.QueryEscape(pairs[i+1])
	}
	return "http://localhost:8080/callback#" + v
}
