package qr

import (
	"errors"
	"fmt"
	"strings"
)

// Token body limits: a UUID is 36 characters, the fallback format is
// shorter.  Stores accept up to 128 bytes including the prefix.
const (
	minTokenBody = 16
	maxTokenBody = 64
)

// ErrMalformedToken is returned by ValidateToken.
var ErrMalformedToken = errors.New("malformed pass token")

// ValidateToken checks that token looks like something the issuer mints:
// prefix, then 16 to 64 characters of [0-9a-z-].  Scanning clients call it
// before submitting a decoded token.
func ValidateToken(prefix, token string) error {
	if !strings.HasPrefix(token, prefix) {
		return fmt.Errorf("%w: missing prefix %q", ErrMalformedToken, prefix)
	}
	body := token[len(prefix):]
	if len(body) < minTokenBody || len(body) > maxTokenBody {
		return fmt.Errorf("%w: body length %d", ErrMalformedToken, len(body))
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c == '-') {
			return fmt.Errorf("%w: unexpected character %q", ErrMalformedToken, c)
		}
	}
	return nil
}
