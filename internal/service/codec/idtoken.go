package codec

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/shoatman/electron-ng2seed/pkg/errors"
)

// Header and signature may be empty (unsigned tokens); the payload may not.
var idTokenPattern = regexp.MustCompile(`^([^\.\s]*)\.([^\.\s]+)\.([^\.\s]*)$`)

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Segments holds the three dot-separated parts of a compact JWT.
type Segments struct {
	Header    string
	Payload   string
	Signature string
}

// CrackIDToken splits a compact token into its segments without decoding them.
func CrackIDToken(raw string) (Segments, error) {
	m := idTokenPattern.FindStringSubmatch(raw)
	if m == nil {
		return Segments{}, apperrors.New(apperrors.ErrDecodeFailure, "the returned id_token is not parseable")
	}
	return Segments{Header: m[1], Payload: m[2], Signature: m[3]}, nil
}

// DecodeSegment decodes URL-safe base64, padded or not. The standard
// alphabet is tolerated as well.
func DecodeSegment(seg string) ([]byte, error) {
	seg = strings.NewReplacer("+", "-", "/", "_").Replace(seg)
	b, err := segmentParser.DecodeSegment(seg)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrDecodeFailure, "invalid base64 segment").WithCause(err)
	}
	return b, nil
}

// DecodeIDToken returns the claim set of an identity token. The signature is
// not verified.
func DecodeIDToken(raw string) (jwt.MapClaims, error) {
	segs, err := CrackIDToken(raw)
	if err != nil {
		return nil, err
	}

	payload, err := DecodeSegment(segs.Payload)
	if err != nil {
		return nil, err
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, apperrors.New(apperrors.ErrDecodeFailure, "id_token payload is not a JSON object").WithCause(err)
	}
	if claims == nil {
		return nil, apperrors.New(apperrors.ErrDecodeFailure, "id_token payload is empty")
	}
	return claims, nil
}
