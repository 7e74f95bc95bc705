package codec

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shoatman/electron-ng2seed/pkg/errors"
)

func encodeToken(payload string) string {
	return "eyJhbGciOiJub25lIn0." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".sig"
}

func TestExtractResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"hash route", "http://localhost/#/id_token=abc&state=s", "id_token=abc&state=s"},
		{"plain hash", "#access_token=t&state=s", "access_token=t&state=s"},
		{"full url with hash", "http://localhost:8080/callback#state=x", "state=x"},
		{"query only", "http://localhost/callback?error=e&error_description=d", "error=e&error_description=d"},
		{"bare", "access_token=t", "access_token=t"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractResponse(tt.input))
		})
	}
}

func TestParseParameters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "simple pairs",
			input: "access_token=abc&expires_in=3599&state=s%7Cres",
			want:  map[string]string{"access_token": "abc", "expires_in": "3599", "state": "s|res"},
		},
		{
			name:  "plus is space",
			input: "error_description=AADSTS50058%3A+A+silent+sign-in",
			want:  map[string]string{"error_description": "AADSTS50058: A silent sign-in"},
		},
		{
			name:  "value may contain equals",
			input: "a=b=c",
			want:  map[string]string{"a": "b=c"},
		},
		{
			name:  "empty value kept",
			input: "session_state=&state=s",
			want:  map[string]string{"session_state": "", "state": "s"},
		},
		{
			name:  "malformed pairs skipped",
			input: "novalue&=orphan&bad=%zz&ok=1",
			want:  map[string]string{"ok": "1"},
		},
		{
			name:  "later duplicate wins",
			input: "state=a&state=b",
			want:  map[string]string{"state": "b"},
		},
		{
			name:  "empty",
			input: "",
			want:  map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseParameters(tt.input))
		})
	}
}

func TestIsProtocolResponse(t *testing.T) {
	assert.True(t, IsProtocolResponse(map[string]string{"id_token": "x"}))
	assert.True(t, IsProtocolResponse(map[string]string{"access_token": "x"}))
	assert.True(t, IsProtocolResponse(map[string]string{"error_description": ""}))
	assert.False(t, IsProtocolResponse(map[string]string{"error": "x", "state": "s"}))
	assert.False(t, IsProtocolResponse(nil))
}

func TestCrackIDToken(t *testing.T) {
	segs, err := CrackIDToken("h.p.s")
	require.NoError(t, err)
	assert.Equal(t, Segments{Header: "h", Payload: "p", Signature: "s"}, segs)

	segs, err = CrackIDToken(".payload.")
	require.NoError(t, err)
	assert.Equal(t, "payload", segs.Payload)

	for _, bad := range []string{"", "a.b", "a..c", "a.b.c.d", "a.b c.d"} {
		_, err := CrackIDToken(bad)
		assert.True(t, errors.Is(err, apperrors.ErrDecodeFailure), bad)
	}
}

func TestDecodeIDToken(t *testing.T) {
	claims, err := DecodeIDToken(encodeToken(`{"aud":"client-1","upn":"jane@contoso.com","nonce":"n1","exp":1700000000}`))
	require.NoError(t, err)

	assert.Equal(t, "client-1", claims["aud"])
	assert.Equal(t, "n1", claims["nonce"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), exp.Unix())
}

func TestDecodeIDToken_PaddedAndStandardAlphabet(t *testing.T) {
	payload := `{"name":"Zoë ~~>>??"}`
	padded := "h." + base64.URLEncoding.EncodeToString([]byte(payload)) + ".s"
	standard := "h." + base64.StdEncoding.EncodeToString([]byte(payload)) + ".s"

	for _, token := range []string{padded, standard} {
		claims, err := DecodeIDToken(token)
		require.NoError(t, err)
		assert.Equal(t, "Zoë ~~>>??", claims["name"])
	}
}

func TestDecodeIDToken_Failures(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not a jwt", "garbage"},
		{"bad base64", "h.!!!!.s"},
		{"not json", encodeToken("not json")},
		{"json array", encodeToken(`["a"]`)},
		{"json null", encodeToken(`null`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeIDToken(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrDecodeFailure))
		})
	}
}
