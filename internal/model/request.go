package model

// RequestType classifies a parsed authorization response
type RequestType string

const (
	RequestLogin      RequestType = "LOGIN"
	RequestRenewToken RequestType = "RENEW_TOKEN"
	RequestUnknown    RequestType = "UNKNOWN"
)

// Response parameter names used by the authorization endpoint
const (
	ParamAccessToken      = "access_token"
	ParamIDToken          = "id_token"
	ParamExpiresIn        = "expires_in"
	ParamState            = "state"
	ParamSessionState     = "session_state"
	ParamError            = "error"
	ParamErrorDescription = "error_description"
)

// RequestInfo is the classification of a redirect response
type RequestInfo struct {
	Valid         bool              `json:"valid"`
	Parameters    map[string]string `json:"parameters"`
	StateMatch    bool              `json:"state_match"`
	StateResponse string            `json:"state_response"`
	RequestType   RequestType       `json:"request_type"`
}

// Param returns a response parameter, or "" when absent
func (ri RequestInfo) Param(name string) string {
	return ri.Parameters[name]
}

// Has reports whether a response parameter is present
func (ri RequestInfo) Has(name string) bool {
	_, ok := ri.Parameters[name]
	return ok
}

// RenewStatus tracks the renewal lifecycle of a resource
type RenewStatus string

const (
	RenewInProgress RenewStatus = "In Progress"
	RenewCompleted  RenewStatus = "Completed"
	RenewCanceled   RenewStatus = "Canceled"
)

// TokenResult is delivered to token handlers: Token is set when Err is nil
type TokenResult struct {
	Token string
	Err   error
}

// OK reports whether the result carries a token
func (r TokenResult) OK() bool {
	return r.Err == nil
}

// TokenHandler receives the outcome of a token request
type TokenHandler func(TokenResult)
