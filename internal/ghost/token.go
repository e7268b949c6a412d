package ghost

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the validity window of an admin token. Tokens are minted
// fresh per outbound call and never cached; publish calls are minutes
// apart and tokens are cheap to mint.
const TokenTTL = 5 * time.Minute

// adminAudience is the audience claim the Ghost admin API requires.
const adminAudience = "/admin/"

// ErrInvalidAdminKey is returned when the admin key is not in
// "<id>:<hex secret>" form.
var ErrInvalidAdminKey = errors.New("admin key must be in id:secret form")

// ParseAdminKey splits an admin key into its key id and decoded secret.
func ParseAdminKey(adminKey string) (id string, secret []byte, err error) {
	id, hexSecret, ok := strings.Cut(adminKey, ":")
	if !ok || id == "" || hexSecret == "" {
		return "", nil, ErrInvalidAdminKey
	}

	secret, err = hex.DecodeString(hexSecret)
	if err != nil {
		return "", nil, fmt.Errorf("decode admin key secret: %w", err)
	}
	return id, secret, nil
}

// MintToken builds a short-lived admin JWT: HS256 signed with the decoded
// secret, the key id in the "kid" header, and iat/exp spanning TokenTTL
// from now. This is the trust boundary toward the CMS, so the signature is
// a genuine HMAC-SHA256 over the encoded header and payload.
func MintToken(keyID string, secret []byte, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(TokenTTL).Unix(),
		"aud": adminAudience,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = keyID

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}
