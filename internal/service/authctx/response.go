package authctx

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/model"
	"github.com/shoatman/electron-ng2seed/internal/service/codec"
	apperrors "github.com/shoatman/electron-ng2seed/pkg/errors"
	"github.com/shoatman/electron-ng2seed/pkg/security"
)

// IsCallback reports whether text is an authorization response
func (e *Engine) IsCallback(text string) bool {
	return codec.IsProtocolResponse(codec.ParseParameters(codec.ExtractResponse(text)))
}

// GetRequestInfo parses and classifies an authorization response.
// The login state is checked first; any other state matches only when it
// belongs to a renewal this engine started.
func (e *Engine) GetRequestInfo(text string) model.RequestInfo {
	params := codec.ParseParameters(codec.ExtractResponse(text))
	info := model.RequestInfo{
		Parameters:  params,
		RequestType: model.RequestUnknown,
	}
	if !codec.IsProtocolResponse(params) {
		return info
	}
	state, ok := params[model.ParamState]
	if !ok {
		e.log.Warn("no state returned in authorization response")
		return info
	}
	info.Valid = true
	info.StateResponse = state

	e.mu.Lock()
	defer e.mu.Unlock()

	if security.SecureCompareNonEmpty(state, e.cache.Item(e.keys.StateLogin())) {
		info.RequestType = model.RequestLogin
		info.StateMatch = true
		return info
	}
	if e.isRenewStateLocked(state) {
		info.RequestType = model.RequestRenewToken
		info.StateMatch = true
		return info
	}

	e.log.Warn("authorization response carries an unknown state")
	return info
}

func (e *Engine) isRenewStateLocked(state string) bool {
	if _, ok := e.renewStates[state]; ok {
		return true
	}
	_, ok := e.lateStates.Get(state)
	return ok
}

// SaveTokenFromHash records the outcome of a classified response in the
// cache. It never panics; the returned error describes the recorded
// failure, if any. An invalid response leaves the cache untouched.
func (e *Engine) SaveTokenFromHash(info model.RequestInfo) error {
	if !info.Valid {
		return apperrors.New(apperrors.ErrStateMismatch, "not a valid authorization response")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	k := e.keys
	e.cache.SetItem(k.Error(), "")
	e.cache.SetItem(k.ErrorDescription(), "")

	resource := resourceFromState(info.StateResponse)
	if info.RequestType == model.RequestLogin {
		resource = e.loginResource()
	}
	var result error

	switch {
	case info.Has(model.ParamErrorDescription):
		desc := info.Param(model.ParamErrorDescription)
		e.log.Info("authorization server returned an error",
			zap.String("error", info.Param(model.ParamError)),
			zap.String("error_description", desc),
		)
		e.cache.SetItem(k.Error(), info.Param(model.ParamError))
		e.cache.SetItem(k.ErrorDescription(), desc)
		if info.RequestType == model.RequestLogin {
			e.loginInProgress = false
			e.cache.SetItem(k.LoginError(), desc)
		}
		result = apperrors.New(apperrors.ErrProtocol, desc)

	case info.StateMatch:
		if info.Has(model.ParamSessionState) {
			e.cache.SetItem(k.SessionState(), info.Param(model.ParamSessionState))
		}
		if info.Has(model.ParamAccessToken) {
			e.cache.Save(resource, info.Param(model.ParamAccessToken), e.expiresAt(info.Param(model.ParamExpiresIn)))
		}
		if info.Has(model.ParamIDToken) {
			result = e.acceptIDTokenLocked(info.Param(model.ParamIDToken))
		}

	default:
		e.cache.SetItem(k.Error(), "Invalid_state")
		e.cache.SetItem(k.ErrorDescription(), "Invalid_state. state: "+info.StateResponse)
		result = apperrors.Newf(apperrors.ErrStateMismatch, "Invalid_state. state: %s", info.StateResponse)
	}

	// only a response to a request this engine issued may settle a status
	if info.StateMatch && resource != "" {
		e.cache.SetRenewStatus(resource, model.RenewCompleted)
	}
	return result
}

// acceptIDTokenLocked validates the nonce of an id token and, on success,
// makes its subject the current user.
func (e *Engine) acceptIDTokenLocked(raw string) error {
	k := e.keys
	e.loginInProgress = false

	user := e.createUser(raw)
	if user == nil || user.Profile == nil {
		e.user = nil
		e.cache.SetItem(k.Error(), "invalid id_token")
		e.cache.SetItem(k.ErrorDescription(), "Invalid id_token. id_token: "+raw)
		return apperrors.New(apperrors.ErrDecodeFailure, "invalid id_token")
	}

	expected := e.cache.Item(k.NonceIDToken())
	if nonce, _ := user.Profile["nonce"].(string); !security.SecureCompareNonEmpty(nonce, expected) {
		e.user = nil
		e.cache.SetItem(k.LoginError(), "Nonce is not same as "+expected)
		e.log.Warn("id token nonce mismatch")
		return apperrors.New(apperrors.ErrNonceMismatch, "Nonce is not same as "+expected)
	}

	e.user = user
	e.cache.SetItem(k.IDToken(), raw)
	e.cache.SetItem(k.Username(), user.UserName)

	var expiresAt time.Time
	if exp, err := user.Profile.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}
	e.cache.Save(e.loginResource(), raw, expiresAt)
	return nil
}

// expiresAt turns an expires_in value into an absolute time. A value that is
// not an integer yields an already-expired entry.
func (e *Engine) expiresAt(expiresIn string) time.Time {
	secs, err := strconv.ParseInt(expiresIn, 10, 64)
	if err != nil {
		e.log.Warn("unparseable expires_in", zap.String("expires_in", expiresIn))
		secs = 0
	}
	return e.now().Add(time.Duration(secs) * time.Second)
}

// HandleRedirect consumes the final URL (or hash) a frame or window was
// redirected to. It records the response and then completes whoever was
// waiting: renewal handlers for the response's state, or the login handler.
// Returns false when url does not carry an authorization response. A
// response without a state is consumed without touching the cache.
func (e *Engine) HandleRedirect(url string) bool {
	if !e.IsCallback(url) {
		return false
	}

	info := e.GetRequestInfo(url)
	if !info.Valid {
		e.recorder.CallbackProcessed(string(info.RequestType), "invalid")
		e.log.Warn("authorization response ignored: no state")
		return true
	}
	saveErr := e.SaveTokenFromHash(info)

	result := model.TokenResult{Err: saveErr}
	if saveErr == nil {
		result.Token = info.Param(model.ParamAccessToken)
		if result.Token == "" {
			result.Token = info.Param(model.ParamIDToken)
		}
	}
	outcome := "success"
	if result.Err != nil {
		outcome = strings.ToLower(apperrors.CodeOf(result.Err))
	}
	e.recorder.CallbackProcessed(string(info.RequestType), outcome)

	switch info.RequestType {
	case model.RequestRenewToken:
		e.mu.Lock()
		delete(e.renewStates, info.StateResponse)
		e.lateStates.Delete(info.StateResponse)
		e.mu.Unlock()

		if e.registry.Dispatch(info.StateResponse, result) {
			e.recorder.RenewalFinished(outcome)
		}

	case model.RequestLogin:
		if e.onLogin != nil {
			e.safeInvoke("login", func() { e.onLogin(result) })
		}

	default:
		e.log.Warn("authorization response not matched to any request",
			zap.Error(result.Err),
		)
	}
	return true
}
