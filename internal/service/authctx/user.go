package authctx

import (
	"strings"

	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/model"
	"github.com/shoatman/electron-ng2seed/internal/service/codec"
	apperrors "github.com/shoatman/electron-ng2seed/pkg/errors"
)

// GetCachedUser returns the signed-in user, rebuilding it from the stored
// id token when necessary. Returns nil when nobody is signed in.
func (e *Engine) GetCachedUser() *model.User {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cachedUserLocked()
}

// GetUser delivers the signed-in user to handler, or ErrUserUnavailable.
// A nil handler is a programming error and panics.
func (e *Engine) GetUser(handler model.UserHandler) {
	if handler == nil {
		panic("authctx: GetUser called with a nil handler")
	}

	user := e.GetCachedUser()
	if user == nil {
		e.log.Warn("user information is not available")
		handler(model.UserResult{Err: apperrors.New(apperrors.ErrUserUnavailable, "User information is not available")})
		return
	}
	handler(model.UserResult{User: user})
}

func (e *Engine) cachedUserLocked() *model.User {
	if e.user != nil {
		return e.user
	}
	raw := e.cache.Item(e.keys.IDToken())
	if raw == "" {
		return nil
	}
	e.user = e.createUser(raw)
	return e.user
}

// createUser builds a user from an id token addressed to this client.
// Tokens for another audience or that fail to decode yield nil.
func (e *Engine) createUser(raw string) *model.User {
	claims, err := codec.DecodeIDToken(raw)
	if err != nil {
		e.log.Warn("id token could not be decoded", zap.Error(err))
		return nil
	}

	aud, err := claims.GetAudience()
	if err != nil || !audienceMatches(aud, e.cfg.ClientID) {
		e.log.Warn("id token has invalid aud field")
		return nil
	}

	user := &model.User{Profile: claims}
	if upn, ok := claims["upn"].(string); ok {
		user.UserName = upn
	} else if email, ok := claims["email"].(string); ok {
		user.UserName = email
	}
	return user
}

func audienceMatches(aud []string, clientID string) bool {
	for _, a := range aud {
		if strings.EqualFold(a, clientID) {
			return true
		}
	}
	return false
}
