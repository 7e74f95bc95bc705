// Package codec decodes authorization responses and identity tokens.
package codec

import (
	"net/url"
	"strings"

	"github.com/shoatman/electron-ng2seed/internal/model"
)

// ExtractResponse returns the response portion of a redirect URL or hash:
// the text after "#/" or "#", or the query when there is no fragment.
// Input without either marker is returned unchanged.
func ExtractResponse(s string) string {
	if i := strings.Index(s, "#/"); i >= 0 {
		return s[i+2:]
	}
	if i := strings.Index(s, "#"); i >= 0 {
		return s[i+1:]
	}
	if i := strings.Index(s, "?"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ParseParameters splits an '&'-joined list of key=value pairs.
// Keys and values are percent-decoded with '+' meaning space. Pairs with an
// empty key, no '=' or an undecodable escape are skipped; later duplicates win.
func ParseParameters(s string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(s, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		params[key] = value
	}
	return params
}

// IsProtocolResponse reports whether params carry any of the keys that mark
// an authorization response.
func IsProtocolResponse(params map[string]string) bool {
	for _, key := range []string{model.ParamErrorDescription, model.ParamAccessToken, model.ParamIDToken} {
		if _, ok := params[key]; ok {
			return true
		}
	}
	return false
}
