package authctx

import (
	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/model"
	"github.com/shoatman/electron-ng2seed/internal/service/request"
	apperrors "github.com/shoatman/electron-ng2seed/pkg/errors"
	"github.com/shoatman/electron-ng2seed/pkg/logger"
)

type renewal struct {
	intent   request.Intent
	resource string
	state    string
	url      string
}

// GetCachedToken returns a token for resource that is valid beyond the
// expiry offset, without any network activity.
func (e *Engine) GetCachedToken(resource string) (string, bool) {
	e.mu.Lock()
	token, ok := e.cache.Get(resource)
	e.mu.Unlock()

	e.recorder.CacheLookup(ok)
	return token, ok
}

// AcquireToken delivers a token for resource to handler: synchronously from
// the cache, or after a silent renewal through the frame broker. Concurrent
// requests for the same resource share one renewal. handler is called
// exactly once. A nil handler is a programming error and panics.
func (e *Engine) AcquireToken(resource string, handler model.TokenHandler) {
	if handler == nil {
		panic("authctx: AcquireToken called with a nil handler")
	}
	if resource == "" {
		handler(model.TokenResult{Err: apperrors.New(apperrors.ErrInvalidArgument, "resource is required")})
		return
	}

	e.mu.Lock()

	if token, ok := e.cache.Get(resource); ok {
		e.mu.Unlock()
		e.recorder.CacheLookup(true)
		e.log.Debug("token served from cache", zap.String("resource", resource))
		handler(model.TokenResult{Token: token})
		return
	}
	e.recorder.CacheLookup(false)

	user := e.cachedUserLocked()
	if user == nil {
		e.mu.Unlock()
		e.log.Warn("user login is required", zap.String("resource", resource))
		handler(model.TokenResult{Err: apperrors.New(apperrors.ErrLoginRequired, "User login is required")})
		return
	}

	if _, ok := e.registry.Join(resource, handler); ok {
		e.mu.Unlock()
		e.log.Debug("joined in-flight renewal", zap.String("resource", resource))
		return
	}

	var r renewal
	if resource == e.cfg.ClientID {
		r = e.prepareIDTokenRenewalLocked(user, handler)
	} else {
		r = e.prepareTokenRenewalLocked(resource, user, handler)
	}
	e.mu.Unlock()

	e.startRenewal(r)
}

func (e *Engine) prepareTokenRenewalLocked(resource string, user *model.User, handler model.TokenHandler) renewal {
	state := e.builder.GUID() + stateDelimiter + resource
	e.trackRenewalLocked(state, resource, handler)

	return renewal{
		intent:   request.IntentRenewToken,
		resource: resource,
		state:    state,
		url: e.builder.AuthorizeURL(request.Params{
			Intent:   request.IntentRenewToken,
			Resource: resource,
			State:    state,
			User:     user,
		}),
	}
}

func (e *Engine) prepareIDTokenRenewalLocked(user *model.User, handler model.TokenHandler) renewal {
	resource := e.cfg.ClientID
	state := e.builder.GUID() + stateDelimiter + resource
	nonce := e.builder.GUID()
	e.cache.SetItem(e.keys.NonceIDToken(), nonce)
	e.trackRenewalLocked(state, resource, handler)

	return renewal{
		intent:   request.IntentRenewIDToken,
		resource: resource,
		state:    state,
		url: e.builder.AuthorizeURL(request.Params{
			Intent: request.IntentRenewIDToken,
			State:  state,
			Nonce:  nonce,
			User:   user,
		}),
	}
}

func (e *Engine) trackRenewalLocked(state, resource string, handler model.TokenHandler) {
	e.cache.SetItem(e.keys.StateRenew(), state)
	e.renewStates[state] = struct{}{}
	e.registry.Register(state, resource, handler)
	e.cache.SetRenewStatus(resource, model.RenewInProgress)
}

// startRenewal arms the timeout and hands the URL to the frame broker.
// The timer is armed first so that a broker completing synchronously
// leaves nothing for it to do.
func (e *Engine) startRenewal(r renewal) {
	e.recorder.RenewalStarted(r.intent.String())
	e.log.Info("starting silent renewal",
		zap.String("kind", r.intent.String()),
		zap.String("resource", r.resource),
		logger.URL("url", r.url),
	)

	e.afterFunc(e.cfg.RenewTimeout, func() { e.expireRenewal(r.resource, r.state) })

	if err := e.frames.Open(r.url); err != nil {
		e.failRenewal(r.resource, r.state, err)
	}
}

func (e *Engine) expireRenewal(resource, state string) {
	e.mu.Lock()
	if !e.registry.IsPending(state) {
		e.mu.Unlock()
		return
	}
	if e.cache.RenewStatus(resource) == model.RenewInProgress {
		e.cache.SetRenewStatus(resource, model.RenewCanceled)
	}
	// a response arriving shortly after the timeout still fills the cache
	delete(e.renewStates, state)
	e.lateStates.SetDefault(state, struct{}{})
	e.mu.Unlock()

	e.log.Warn("token renewal timed out",
		zap.String("resource", resource),
		zap.Duration("timeout", e.cfg.RenewTimeout),
	)
	if e.registry.Dispatch(state, model.TokenResult{
		Err: apperrors.New(apperrors.ErrTimeout, "Token renewal operation failed due to timeout"),
	}) {
		e.recorder.RenewalFinished("timeout")
	}
}

func (e *Engine) failRenewal(resource, state string, cause error) {
	e.mu.Lock()
	e.cache.SetRenewStatus(resource, model.RenewCanceled)
	delete(e.renewStates, state)
	e.mu.Unlock()

	e.log.Error("frame broker failed to open renewal", zap.String("resource", resource), zap.Error(cause))

	err := cause
	if apperrors.KindOf(cause) == nil {
		err = apperrors.New(apperrors.ErrProtocol, "failed to start token renewal").WithCause(cause)
	}
	if e.registry.Dispatch(state, model.TokenResult{Err: err}) {
		e.recorder.RenewalFinished("error")
	}
}
