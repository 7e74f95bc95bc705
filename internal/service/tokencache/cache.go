// Package tokencache persists tokens, expiries and protocol bookkeeping for
// the broker on top of a storage.Store.
package tokencache

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/model"
	"github.com/shoatman/electron-ng2seed/internal/service/storage"
)

const (
	// DefaultExpiryOffset is how long before expiry a token stops being served
	DefaultExpiryOffset = 120 * time.Second

	resourceDelimiter = "|"
)

var (
	indexEscaper   = strings.NewReplacer("%", "%25", resourceDelimiter, "%7C")
	indexUnescaper = strings.NewReplacer("%7C", resourceDelimiter, "%25", "%")
)

// Cache is the token cache.
// It is not safe for concurrent use on its own; the engine serialises access.
type Cache struct {
	store  storage.Store
	keys   Keys
	offset time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// Option configures a Cache
type Option func(*Cache)

// WithKeys overrides the key builder
func WithKeys(keys Keys) Option {
	return func(c *Cache) { c.keys = keys }
}

// WithExpiryOffset sets the early-expiry margin
func WithExpiryOffset(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.offset = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// New creates a token cache over store
func New(store storage.Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		keys:   NewKeys(""),
		offset: DefaultExpiryOffset,
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Keys returns the key builder in use
func (c *Cache) Keys() Keys {
	return c.keys
}

// Item reads a raw entry. Store failures read as "".
func (c *Cache) Item(key string) string {
	v, err := c.store.Get(key)
	if err != nil {
		c.log.Warn("token store read failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return v
}

// SetItem writes a raw entry. Store failures are logged and dropped.
func (c *Cache) SetItem(key, value string) {
	if err := c.store.Set(key, value); err != nil {
		c.log.Warn("token store write failed", zap.String("key", key), zap.Error(err))
	}
}

// Resources returns the indexed resources in insertion order
func (c *Cache) Resources() []string {
	raw := c.Item(c.keys.ResourceIndex())
	if raw == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(raw, resourceDelimiter) {
		if entry == "" {
			continue
		}
		out = append(out, indexUnescaper.Replace(entry))
	}
	return out
}

// HasResource reports whether resource is in the index (exact match)
func (c *Cache) HasResource(resource string) bool {
	for _, r := range c.Resources() {
		if r == resource {
			return true
		}
	}
	return false
}

func (c *Cache) addResource(resource string) {
	if c.HasResource(resource) {
		return
	}
	key := c.keys.ResourceIndex()
	c.SetItem(key, c.Item(key)+indexEscaper.Replace(resource)+resourceDelimiter)
}

// Get returns the cached token for resource when it is still valid beyond
// the expiry offset. An expired entry is cleared and reported as a miss.
func (c *Cache) Get(resource string) (string, bool) {
	if resource == "" || !c.HasResource(resource) {
		return "", false
	}

	token := c.Item(c.keys.AccessToken(resource))
	expiresAt := c.expirySeconds(resource)
	if token != "" && expiresAt > c.now().Add(c.offset).Unix() {
		return token, true
	}

	if token != "" || expiresAt != 0 {
		c.log.Debug("evicting expired token", zap.String("resource", resource))
		c.zero(resource)
	}
	return "", false
}

// Save stores token for resource and indexes the resource
func (c *Cache) Save(resource, token string, expiresAt time.Time) {
	c.addResource(resource)
	c.SetItem(c.keys.AccessToken(resource), token)
	c.SetItem(c.keys.Expiry(resource), strconv.FormatInt(expiresAt.Unix(), 10))
}

// Expiry returns the stored expiry for resource, or the zero time
func (c *Cache) Expiry(resource string) time.Time {
	s := c.expirySeconds(resource)
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(s, 0)
}

func (c *Cache) expirySeconds(resource string) int64 {
	raw := c.Item(c.keys.Expiry(resource))
	if raw == "" {
		return 0
	}
	s, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.log.Warn("unparseable token expiry", zap.String("resource", resource))
		return 0
	}
	return s
}

func (c *Cache) zero(resource string) {
	c.SetItem(c.keys.AccessToken(resource), "")
	c.SetItem(c.keys.Expiry(resource), "0")
}

// ClearResource drops the token for resource and the last recorded error
func (c *Cache) ClearResource(resource string) {
	c.SetItem(c.keys.StateRenew(), "")
	c.SetItem(c.keys.Error(), "")
	c.SetItem(c.keys.ErrorDescription(), "")

	if c.HasResource(resource) {
		c.zero(resource)
	}
}

// ClearAll drops every cached token and the session, login and error entries
func (c *Cache) ClearAll() {
	for _, key := range []string{
		c.keys.SessionState(),
		c.keys.StateLogin(),
		c.keys.Username(),
		c.keys.IDToken(),
		c.keys.Error(),
		c.keys.ErrorDescription(),
	} {
		c.SetItem(key, "")
	}

	for _, resource := range c.Resources() {
		c.zero(resource)
	}
	c.SetItem(c.keys.ResourceIndex(), "")
}

// RenewStatus returns the renewal status recorded for resource
func (c *Cache) RenewStatus(resource string) model.RenewStatus {
	return model.RenewStatus(c.Item(c.keys.RenewStatus(resource)))
}

// SetRenewStatus records the renewal status for resource
func (c *Cache) SetRenewStatus(resource string, status model.RenewStatus) {
	c.SetItem(c.keys.RenewStatus(resource), string(status))
}
