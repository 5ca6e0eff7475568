package alias

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

// ThumbprintLength is the hex length of a SHA-1 thumbprint.
const ThumbprintLength = 2 * sha1.Size

// Thumbprint returns the uppercase hex SHA-1 of the certificate's DER encoding.
func Thumbprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// NormalizeThumbprint strips separators and the invisible marks certificate
// viewers add when a thumbprint is copied, and uppercases the result.
func NormalizeThumbprint(s string) (string, error) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ' ' || r == ':' || r == '-' || r == '\t':
		case r == '\u200e' || r == '\u200f' || r == '\ufeff':
		case (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F'):
			b.WriteRune(r)
		default:
			return "", fmt.Errorf("%w: thumbprint contains %q", cerrors.ErrInvalidThumbprint, r)
		}
	}
	out := strings.ToUpper(b.String())
	if len(out) != ThumbprintLength {
		return "", fmt.Errorf("%w: thumbprint must be %d hex characters, got %d",
			cerrors.ErrInvalidThumbprint, ThumbprintLength, len(out))
	}
	return out, nil
}
