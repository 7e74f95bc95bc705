package authctx

import (
	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/service/request"
	"github.com/shoatman/electron-ng2seed/pkg/logger"
)

// Login starts an interactive sign-in. The authorize URL goes to the
// display override when one is configured, otherwise to the navigator.
// A login already in progress makes this a no-op.
func (e *Engine) Login() {
	e.mu.Lock()
	if e.loginInProgress {
		e.mu.Unlock()
		e.log.Info("login already in progress")
		return
	}

	state := e.builder.GUID()
	nonce := e.builder.GUID()

	e.cache.SetItem(e.keys.LoginRequest(), e.cfg.RedirectURI)
	e.cache.SetItem(e.keys.LoginError(), "")
	e.cache.SetItem(e.keys.StateLogin(), state)
	e.cache.SetItem(e.keys.NonceIDToken(), nonce)
	e.cache.SetItem(e.keys.Error(), "")
	e.cache.SetItem(e.keys.ErrorDescription(), "")

	u := e.builder.AuthorizeURL(request.Params{
		Intent: request.IntentLogin,
		State:  state,
		Nonce:  nonce,
	})
	e.loginInProgress = true
	display, navigator := e.display, e.navigator
	e.mu.Unlock()

	e.recorder.LoginStarted()
	e.log.Info("login started", logger.URL("url", u))

	if display != nil {
		e.safeInvoke("display", func() { display(u) })
		return
	}
	if err := navigator.Navigate(u); err != nil {
		e.log.Error("failed to navigate to login", zap.Error(err))

		e.mu.Lock()
		e.loginInProgress = false
		e.cache.SetItem(e.keys.LoginError(), err.Error())
		e.mu.Unlock()
	}
}

// LoginInProgress reports whether an interactive login is outstanding
func (e *Engine) LoginInProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loginInProgress
}

// LoginError returns the last recorded login failure, or ""
func (e *Engine) LoginError() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cache.Item(e.keys.LoginError())
}

// LogOut clears the cache, forgets the user and navigates to the
// end-session endpoint.
func (e *Engine) LogOut() {
	e.ClearCache()

	e.mu.Lock()
	e.user = nil
	u := e.builder.LogoutURL(e.cfg.PostLogoutRedirectURI)
	navigator := e.navigator
	e.mu.Unlock()

	e.log.Info("logging out")
	if err := navigator.Navigate(u); err != nil {
		e.log.Error("failed to navigate to logout", zap.Error(err))
	}
}

// ClearCache drops every cached token together with the session, login and
// error entries. Renewals already in flight stay tracked, so their handlers
// still resolve through the response or the timeout.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cache.ClearAll()
	for state := range e.renewStates {
		if !e.registry.IsPending(state) {
			delete(e.renewStates, state)
		}
	}
	e.lateStates.Flush()
}

// ClearCacheForResource drops the token for one resource
func (e *Engine) ClearCacheForResource(resource string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cache.ClearResource(resource)
}
