package tokencache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoatman/electron-ng2seed/internal/model"
	"github.com/shoatman/electron-ng2seed/internal/service/storage"
)

var testNow = time.Unix(1_700_000_000, 0)

func newTestCache(t *testing.T) (*Cache, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return New(store, WithClock(func() time.Time { return testNow })), store
}

type brokenStore struct{}

func (brokenStore) Get(string) (string, error) { return "", errors.New("down") }
func (brokenStore) Set(string, string) error   { return errors.New("down") }
func (brokenStore) Close() error               { return nil }
func (brokenStore) Name() string               { return "broken" }

// ===== Keys Tests =====

func TestKeys(t *testing.T) {
	k := NewKeys("")

	assert.Equal(t, "adal.", k.Prefix())
	assert.Equal(t, "adal.token.keys", k.ResourceIndex())
	assert.Equal(t, "adal.state.login", k.StateLogin())
	assert.Equal(t, "adal.nonce.idtoken", k.NonceIDToken())
	assert.Equal(t, "adal.token@https://graph.windows.net", k.AccessToken("https://graph.windows.net"))
	assert.Equal(t, "adal.expiry@r", k.Expiry("r"))
	assert.Equal(t, "adal.renew.status@r", k.RenewStatus("r"))
	assert.NotEqual(t, k.AccessToken("keys"), k.ResourceIndex())

	assert.Equal(t, "app.idtoken", NewKeys("app.").IDToken())
}

// ===== Lookup Tests =====

func TestCache_Get(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn time.Duration
		wantHit   bool
	}{
		{"well within lifetime", time.Hour, true},
		{"just beyond offset", DefaultExpiryOffset + time.Second, true},
		{"exactly at offset", DefaultExpiryOffset, false},
		{"inside offset", time.Minute, false},
		{"already expired", -time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCache(t)
			c.Save("https://graph", "tok", testNow.Add(tt.expiresIn))

			got, ok := c.Get("https://graph")
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, "tok", got)
				return
			}
			assert.Empty(t, got)
			assert.Empty(t, c.Item(c.Keys().AccessToken("https://graph")), "expired token is evicted")
			assert.Equal(t, "0", c.Item(c.Keys().Expiry("https://graph")))
			assert.True(t, c.HasResource("https://graph"), "resource stays indexed")
		})
	}
}

func TestCache_Get_CustomOffset(t *testing.T) {
	store := storage.NewMemoryStore()
	c := New(store, WithClock(func() time.Time { return testNow }), WithExpiryOffset(10*time.Second))

	c.Save("r", "tok", testNow.Add(time.Minute))
	got, ok := c.Get("r")
	assert.True(t, ok)
	assert.Equal(t, "tok", got)
}

func TestCache_Get_NotIndexed(t *testing.T) {
	c, store := newTestCache(t)

	// Token entry written without going through the index is invisible.
	require.NoError(t, store.Set(c.Keys().AccessToken("r"), "tok"))
	require.NoError(t, store.Set(c.Keys().Expiry("r"), "9999999999"))

	_, ok := c.Get("r")
	assert.False(t, ok)
	_, ok = c.Get("")
	assert.False(t, ok)
}

func TestCache_Get_EmptyToken(t *testing.T) {
	c, _ := newTestCache(t)
	c.Save("r", "", testNow.Add(time.Hour))

	_, ok := c.Get("r")
	assert.False(t, ok)
}

// ===== Index Tests =====

func TestCache_ResourceIndex(t *testing.T) {
	c, _ := newTestCache(t)

	c.Save("https://graph.windows.net", "a", testNow.Add(time.Hour))
	c.Save("https://graph", "b", testNow.Add(time.Hour))
	c.Save("https://graph.windows.net", "c", testNow.Add(time.Hour))

	assert.Equal(t, []string{"https://graph.windows.net", "https://graph"}, c.Resources())
	assert.Equal(t, "https://graph.windows.net|https://graph|", c.Item(c.Keys().ResourceIndex()))

	// exact membership, never substring
	assert.False(t, c.HasResource("https://graph.windows"))
	assert.False(t, c.HasResource("graph"))
}

func TestCache_ResourceIndex_Delimiter(t *testing.T) {
	c, _ := newTestCache(t)

	c.Save("a|b", "t1", testNow.Add(time.Hour))
	c.Save("100%", "t2", testNow.Add(time.Hour))

	assert.Equal(t, []string{"a|b", "100%"}, c.Resources())
	assert.True(t, c.HasResource("a|b"))
	assert.False(t, c.HasResource("a"))

	got, ok := c.Get("a|b")
	assert.True(t, ok)
	assert.Equal(t, "t1", got)
}

// ===== Clear Tests =====

func TestCache_ClearResource(t *testing.T) {
	c, _ := newTestCache(t)
	k := c.Keys()

	c.Save("r1", "t1", testNow.Add(time.Hour))
	c.Save("r2", "t2", testNow.Add(time.Hour))
	c.SetItem(k.Error(), "Invalid_state")
	c.SetItem(k.ErrorDescription(), "desc")
	c.SetItem(k.StateRenew(), "s")

	c.ClearResource("r1")

	_, ok := c.Get("r1")
	assert.False(t, ok)
	got, ok := c.Get("r2")
	assert.True(t, ok)
	assert.Equal(t, "t2", got)
	assert.Empty(t, c.Item(k.Error()))
	assert.Empty(t, c.Item(k.ErrorDescription()))
	assert.Empty(t, c.Item(k.StateRenew()))

	// unknown resource only resets the error entries
	c.ClearResource("nope")
	assert.False(t, c.HasResource("nope"))
}

func TestCache_ClearAll(t *testing.T) {
	c, _ := newTestCache(t)
	k := c.Keys()

	c.Save("r1", "t1", testNow.Add(time.Hour))
	c.Save("r2", "t2", testNow.Add(time.Hour))
	for _, key := range []string{k.SessionState(), k.StateLogin(), k.Username(), k.IDToken(), k.Error(), k.ErrorDescription()} {
		c.SetItem(key, "x")
	}

	c.ClearAll()

	assert.Empty(t, c.Resources())
	for _, r := range []string{"r1", "r2"} {
		assert.Empty(t, c.Item(k.AccessToken(r)))
		assert.Equal(t, "0", c.Item(k.Expiry(r)))
	}
	for _, key := range []string{k.SessionState(), k.StateLogin(), k.Username(), k.IDToken(), k.Error(), k.ErrorDescription()} {
		assert.Empty(t, c.Item(key), key)
	}
}

// ===== Misc Tests =====

func TestCache_Expiry(t *testing.T) {
	c, _ := newTestCache(t)

	assert.True(t, c.Expiry("r").IsZero())
	c.Save("r", "t", testNow.Add(time.Hour))
	assert.Equal(t, testNow.Add(time.Hour).Unix(), c.Expiry("r").Unix())

	c.SetItem(c.Keys().Expiry("r"), "garbage")
	assert.True(t, c.Expiry("r").IsZero())
}

func TestCache_RenewStatus(t *testing.T) {
	c, _ := newTestCache(t)

	assert.Equal(t, model.RenewStatus(""), c.RenewStatus("r"))
	c.SetRenewStatus("r", model.RenewInProgress)
	assert.Equal(t, model.RenewInProgress, c.RenewStatus("r"))
}

func TestCache_BrokenStore(t *testing.T) {
	c := New(brokenStore{})

	assert.NotPanics(t, func() {
		c.Save("r", "t", testNow.Add(time.Hour))
		c.ClearAll()
		c.ClearResource("r")
	})
	_, ok := c.Get("r")
	assert.False(t, ok)
	assert.Empty(t, c.Resources())
}
