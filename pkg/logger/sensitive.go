package logger

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// MaskValue replaces sensitive values in log output.
const MaskValue = "***"

// sensitiveParams are OAuth parameters whose values never reach the logs.
var sensitiveParams = map[string]struct{}{
	"access_token":  {},
	"id_token":      {},
	"refresh_token": {},
	"code":          {},
	"state":         {},
	"nonce":         {},
	"session_state": {},
	"login_hint":    {},
	"client_info":   {},
}

// Token returns a field describing a bearer token without its value.
func Token(key, token string) zap.Field {
	if token == "" {
		return zap.String(key, "<empty>")
	}
	return zap.Int(key+"_len", len(token))
}

// URL returns a field holding raw with sensitive parameters masked.
func URL(key, raw string) zap.Field {
	return zap.String(key, MaskURL(raw))
}

// MaskURL masks sensitive parameters in the query and the fragment of raw.
func MaskURL(raw string) string {
	rest, fragment, hasFragment := strings.Cut(raw, "#")
	base, query, hasQuery := strings.Cut(rest, "?")

	var b strings.Builder
	b.WriteString(base)
	if hasQuery {
		b.WriteByte('?')
		b.WriteString(MaskQuery(query))
	}
	if hasFragment {
		b.WriteByte('#')
		b.WriteString(MaskQuery(fragment))
	}
	return b.String()
}

// MaskQuery masks the values of sensitive parameters in an encoded query
// or fragment, keeping parameter order and every other value.
func MaskQuery(raw string) string {
	if raw == "" {
		return raw
	}
	parts := strings.Split(raw, "&")
	for i, p := range parts {
		name, _, found := strings.Cut(p, "=")
		if found && isSensitiveParam(name) {
			parts[i] = name + "=" + MaskValue
		}
	}
	return strings.Join(parts, "&")
}

func isSensitiveParam(name string) bool {
	if n, err := url.QueryUnescape(name); err == nil {
		name = n
	}
	_, ok := sensitiveParams[strings.ToLower(name)]
	return ok
}
