package tokencache

// DefaultKeyPrefix namespaces every entry the broker writes
const DefaultKeyPrefix = "adal."

// Keys builds the store keys used by the broker.
// Resource-scoped entries use a kind@resource composite so that no resource
// value can collide with a fixed key.
type Keys struct {
	prefix string
}

// NewKeys returns a key builder; an empty prefix selects DefaultKeyPrefix
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return Keys{prefix: prefix}
}

func (k Keys) fixed(name string) string {
	return k.prefix + name
}

func (k Keys) scoped(kind, resource string) string {
	return k.prefix + kind + "@" + resource
}

// Prefix returns the namespace prefix
func (k Keys) Prefix() string { return k.prefix }

// ResourceIndex holds the delimited list of resources with cached tokens
func (k Keys) ResourceIndex() string { return k.fixed("token.keys") }

// StateLogin holds the state of the outstanding interactive login
func (k Keys) StateLogin() string { return k.fixed("state.login") }

// StateRenew holds the state of the most recent renewal
func (k Keys) StateRenew() string { return k.fixed("state.renew") }

// NonceIDToken holds the nonce expected in the next id token
func (k Keys) NonceIDToken() string { return k.fixed("nonce.idtoken") }

// SessionState holds the session_state returned with the last response
func (k Keys) SessionState() string { return k.fixed("session.state") }

// Username holds the signed-in user's name
func (k Keys) Username() string { return k.fixed("username") }

// IDToken holds the raw id token of the signed-in user
func (k Keys) IDToken() string { return k.fixed("idtoken") }

// Error holds the error code of the last failed response
func (k Keys) Error() string { return k.fixed("error") }

// ErrorDescription holds the description of the last failed response
func (k Keys) ErrorDescription() string { return k.fixed("error.description") }

// LoginRequest holds the page that started the interactive login
func (k Keys) LoginRequest() string { return k.fixed("login.request") }

// LoginError holds the failure of the last interactive login
func (k Keys) LoginError() string { return k.fixed("login.error") }

// AccessToken holds the cached token for resource
func (k Keys) AccessToken(resource string) string { return k.scoped("token", resource) }

// Expiry holds the absolute expiry (unix seconds) of the token for resource
func (k Keys) Expiry(resource string) string { return k.scoped("expiry", resource) }

// RenewStatus holds the renewal lifecycle status for resource
func (k Keys) RenewStatus(resource string) string { return k.scoped("renew.status", resource) }
