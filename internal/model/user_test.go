package model

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestUser_Claims(t *testing.T) {
	tests := []struct {
		name       string
		user       *User
		wantUPN    string
		wantDomain string
	}{
		{
			name:       "upn with domain",
			user:       &User{UserName: "jane@contoso.com", Profile: jwt.MapClaims{"upn": "jane@contoso.com"}},
			wantUPN:    "jane@contoso.com",
			wantDomain: "contoso.com",
		},
		{
			name:       "upn uses last at sign",
			user:       &User{Profile: jwt.MapClaims{"upn": "a@b@fabrikam.com"}},
			wantUPN:    "a@b@fabrikam.com",
			wantDomain: "fabrikam.com",
		},
		{
			name:    "upn without domain",
			user:    &User{Profile: jwt.MapClaims{"upn": "jane"}},
			wantUPN: "jane",
		},
		{
			name: "non-string upn",
			user: &User{Profile: jwt.MapClaims{"upn": 42}},
		},
		{
			name: "nil user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantUPN, tt.user.UPN())
			assert.Equal(t, tt.wantDomain, tt.user.Domain())
		})
	}
}

func TestRequestInfo_Params(t *testing.T) {
	ri := RequestInfo{Parameters: map[string]string{ParamState: "s", ParamSessionState: ""}}

	assert.True(t, ri.Has(ParamState))
	assert.True(t, ri.Has(ParamSessionState))
	assert.False(t, ri.Has(ParamAccessToken))
	assert.Equal(t, "s", ri.Param(ParamState))
}

func TestTokenResult_OK(t *testing.T) {
	assert.True(t, TokenResult{Token: "t"}.OK())
	assert.False(t, TokenResult{Err: assert.AnError}.OK())
}
