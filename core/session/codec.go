package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

var (
	salt = []byte("tutoring.core.session.cookie")

	// errors
	errInvalidCookie = errors.New("invalid session cookie")
)

// Codec signs session keys so that clients cannot forge them.
type Codec struct {
	key [sha256.Size]byte
}

func NewCodec(secretKey string) Codec {
	return Codec{key: sha256.Sum256(append(salt, secretKey...))}
}

// Encode returns the cookie value for the given session key: "<key>.<signature>".
func (c Codec) Encode(key string) string {
	return key + "." + c.sign(key)
}

// Decode checks a cookie value & returns the session key it carries.
func (c Codec) Decode(value string) (string, error) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 || idx == len(value)-1 {
		return "", errInvalidCookie
	}
	key, sig := value[:idx], value[idx+1:]

	// check that cookie has not been tampered with
	if subtle.ConstantTimeCompare([]byte(c.sign(key)), []byte(sig)) == 0 {
		return "", errInvalidCookie
	}
	return key, nil
}

func (c Codec) sign(val string) string {
	h := hmac.New(sha256.New, c.key[:])
	_, _ = h.Write([]byte(val))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
