// Package handler exposes the token broker engine over HTTP.
package handler

import (
	_ "embed"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/model"
	apperrors "github.com/shoatman/electron-ng2seed/pkg/errors"
	"github.com/shoatman/electron-ng2seed/pkg/logger"
)

// maxCallbackBody bounds a posted authorization response.
const maxCallbackBody = 64 << 10

//go:embed callback.html
var callbackPage []byte

// Broker is the part of the engine the HTTP API drives.
type Broker interface {
	Login()
	LogOut()
	LoginInProgress() bool
	LoginError() string
	AcquireToken(resource string, handler model.TokenHandler)
	GetUser(handler model.UserHandler)
	ClearCache()
	ClearCacheForResource(resource string)
	HandleRedirect(url string) bool
}

// BrokerHandler handles the login, callback and token routes
type BrokerHandler struct {
	broker Broker
}

// NewBrokerHandler creates a new broker handler
func NewBrokerHandler(broker Broker) *BrokerHandler {
	return &BrokerHandler{broker: broker}
}

// TokenResponse is returned by GET /api/token
type TokenResponse struct {
	Resource    string `json:"resource"`
	AccessToken string `json:"access_token"`
}

// LoginStatusResponse is returned by the login routes
type LoginStatusResponse struct {
	LoginInProgress bool   `json:"login_in_progress"`
	LoginError      string `json:"login_error,omitempty"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Status           int    `json:"status"`
}

// HandleCallbackPage serves the redirect target. Responses carried in the
// query are processed directly; fragments never reach the server, so the
// page posts them back.
func (h *BrokerHandler) HandleCallbackPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.RawQuery != "" {
		if h.broker.HandleRedirect("?" + r.URL.RawQuery) {
			logger.FromContext(r.Context()).Info("authorization response received in query")
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(callbackPage)
}

// HandleCallback accepts an authorization response posted by the callback page
func (h *BrokerHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCallbackBody)
	if err := r.ParseForm(); err != nil {
		renderError(w, apperrors.New(apperrors.ErrInvalidArgument, "malformed callback body"))
		return
	}

	response := r.PostForm.Get("response")
	if !h.broker.HandleRedirect(response) {
		renderError(w, apperrors.New(apperrors.ErrInvalidArgument, "not an authorization response"))
		return
	}

	logger.FromContext(r.Context()).Info("authorization response processed")
	renderJSON(w, http.StatusOK, h.loginStatus())
}

// HandleLogin starts an interactive login
func (h *BrokerHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.broker.Login()
	renderJSON(w, http.StatusAccepted, h.loginStatus())
}

// HandleLogout clears the cache and navigates to the logout endpoint
func (h *BrokerHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.broker.LogOut()
	w.WriteHeader(http.StatusNoContent)
}

// HandleLoginStatus reports whether a login is running and its last error
func (h *BrokerHandler) HandleLoginStatus(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, h.loginStatus())
}

// HandleToken returns a token for the resource query parameter, waiting for
// a silent renewal when the cache cannot serve it.
func (h *BrokerHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")
	log := logger.FromContext(r.Context()).With(zap.String("resource", resource))

	results := make(chan model.TokenResult, 1)
	h.broker.AcquireToken(resource, func(res model.TokenResult) { results <- res })

	select {
	case res := <-results:
		if res.Err != nil {
			log.Warn("token request failed", zap.Error(res.Err))
			renderError(w, res.Err)
			return
		}
		log.Debug("token issued", logger.Token("access_token", res.Token))
		renderJSON(w, http.StatusOK, TokenResponse{Resource: resource, AccessToken: res.Token})

	case <-r.Context().Done():
		log.Info("token request abandoned by client")
		renderError(w, apperrors.New(apperrors.ErrTimeout, "request canceled before the token was available"))
	}
}

// HandleUser returns the signed-in user
func (h *BrokerHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	results := make(chan model.UserResult, 1)
	h.broker.GetUser(func(res model.UserResult) { results <- res })

	select {
	case res := <-results:
		if res.Err != nil {
			renderError(w, res.Err)
			return
		}
		renderJSON(w, http.StatusOK, res.User)

	case <-r.Context().Done():
		renderError(w, apperrors.New(apperrors.ErrTimeout, "request canceled"))
	}
}

// HandleClearCache drops every cached token and the user
func (h *BrokerHandler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	h.broker.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearResource drops the cached token for one resource
func (h *BrokerHandler) HandleClearResource(w http.ResponseWriter, r *http.Request) {
	resource, err := url.PathUnescape(chi.URLParam(r, "resource"))
	if err != nil || resource == "" {
		renderError(w, apperrors.New(apperrors.ErrInvalidArgument, "resource is required"))
		return
	}

	h.broker.ClearCacheForResource(resource)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BrokerHandler) loginStatus() LoginStatusResponse {
	return LoginStatusResponse{
		LoginInProgress: h.broker.LoginInProgress(),
		LoginError:      h.broker.LoginError(),
	}
}

func renderError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	resp := ErrorResponse{
		Error:  apperrors.CodeOf(err),
		Status: status,
	}
	var te *apperrors.TokenError
	if apperrors.As(err, &te) {
		resp.ErrorDescription = te.Message
	}
	renderJSON(w, status, resp)
}
