// Package request builds authorize and logout URLs for the implicit flow.
package request

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/shoatman/electron-ng2seed/internal/model"
)

const (
	DefaultInstance = "https://login.microsoftonline.com/"
	DefaultTenant   = "common"

	// LibrarySKU and LibraryVersion are reported to the authorization server
	LibrarySKU     = "Go"
	LibraryVersion = "1.0.0"
)

var domainHintPattern = regexp.MustCompile(`[?&]domain_hint=`)

// Intent selects the kind of authorization request
type Intent int

const (
	IntentLogin Intent = iota
	IntentRenewToken
	IntentRenewIDToken
)

func (i Intent) String() string {
	switch i {
	case IntentLogin:
		return "login"
	case IntentRenewToken:
		return "renew_token"
	case IntentRenewIDToken:
		return "renew_id_token"
	default:
		return "unknown"
	}
}

func (i Intent) responseType() string {
	if i == IntentRenewToken {
		return "token"
	}
	return "id_token"
}

// Config holds the client settings that appear on every request
type Config struct {
	Instance            string
	Tenant              string
	ClientID            string
	RedirectURI         string
	ExtraQueryParameter string
	CorrelationID       string
	Slice               string
}

// Params describes a single authorization request
type Params struct {
	Intent   Intent
	Resource string
	State    string
	Nonce    string
	// User supplies login_hint and domain_hint on silent renewals
	User *model.User
}

// Builder constructs authorization URLs
type Builder struct {
	cfg  Config
	guid *GUIDGenerator
}

// NewBuilder creates a Builder. A nil guid generator selects the fallback source.
func NewBuilder(cfg Config, guid *GUIDGenerator) *Builder {
	if cfg.Instance == "" {
		cfg.Instance = DefaultInstance
	}
	if !strings.HasSuffix(cfg.Instance, "/") {
		cfg.Instance += "/"
	}
	if cfg.Tenant == "" {
		cfg.Tenant = DefaultTenant
	}
	cfg.ExtraQueryParameter = strings.TrimLeft(cfg.ExtraQueryParameter, "&?")
	if guid == nil {
		guid = NewGUIDGenerator(nil)
	}
	return &Builder{cfg: cfg, guid: guid}
}

// GUID returns a fresh identifier from the builder's generator
func (b *Builder) GUID() string {
	return b.guid.New()
}

// Authority returns <instance><tenant>
func (b *Builder) Authority() string {
	return b.cfg.Instance + b.cfg.Tenant
}

// AuthorizeURL builds the authorize URL for p
func (b *Builder) AuthorizeURL(p Params) string {
	q := &query{}
	q.add("response_type", p.Intent.responseType())
	q.add("client_id", b.cfg.ClientID)
	if p.Intent == IntentRenewToken && p.Resource != "" {
		q.add("resource", p.Resource)
	}
	q.add("redirect_uri", b.cfg.RedirectURI)
	q.add("state", p.State)
	if b.cfg.Slice != "" {
		q.add("slice", b.cfg.Slice)
	}
	q.raw(b.cfg.ExtraQueryParameter)

	correlationID := b.cfg.CorrelationID
	if correlationID == "" {
		correlationID = b.guid.New()
	}
	q.add("client-request-id", correlationID)
	q.add("x-client-SKU", LibrarySKU)
	q.add("x-client-Ver", LibraryVersion)

	if p.Intent != IntentLogin {
		q.add("prompt", "none")
		b.addHints(q, p.User)
	}
	if p.Intent != IntentRenewToken {
		q.add("nonce", p.Nonce)
	}

	return b.Authority() + "/oauth2/authorize?" + q.String()
}

// addHints appends login_hint and domain_hint derived from the user's UPN.
// An explicit domain_hint already on the URL wins.
func (b *Builder) addHints(q *query, user *model.User) {
	upn := user.UPN()
	if upn == "" {
		return
	}
	q.add("login_hint", upn)

	if domainHintPattern.MatchString("?" + q.String()) {
		return
	}
	if domain := user.Domain(); domain != "" {
		q.add("domain_hint", domain)
	}
}

// LogoutURL builds the end-session URL
func (b *Builder) LogoutURL(postLogoutRedirectURI string) string {
	u := b.Authority() + "/oauth2/logout?"
	if postLogoutRedirectURI != "" {
		u += "post_logout_redirect_uri=" + url.QueryEscape(postLogoutRedirectURI)
	}
	return u
}

// query keeps parameters in insertion order, unlike url.Values.
type query struct {
	parts []string
}

func (q *query) add(key, value string) {
	q.parts = append(q.parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
}

func (q *query) raw(s string) {
	if s != "" {
		q.parts = append(q.parts, s)
	}
}

func (q *query) String() string {
	return strings.Join(q.parts, "&")
}
