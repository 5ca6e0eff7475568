// Package alias describes what an encryption identity can do.
//
// An alias is a certificate picked by thumbprint from a store location. It can
// encrypt when it carries a public key and decrypt when a private key is
// available. Callers check these capabilities before touching any key.
package alias

import (
	"context"
	"crypto"
	"crypto/x509"
	"fmt"
	"time"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

// Capability is the view of an alias the encryption engine needs.
type Capability interface {
	// Name identifies the alias in messages, usually its thumbprint.
	Name() string
	CanEncrypt() bool
	CanDecrypt() bool
	// PublicKey returns nil when CanEncrypt is false.
	PublicKey() crypto.PublicKey
	// PrivateKey returns nil when CanDecrypt is false.
	PrivateKey() crypto.Decrypter
}

// Provider resolves thumbprints to aliases.
type Provider interface {
	Lookup(ctx context.Context, thumbprint string, loc Location) (Capability, error)
}

// Certificate is a Capability backed by an X.509 certificate and, optionally,
// its private key.
type Certificate struct {
	cert       *x509.Certificate
	key        crypto.Decrypter
	thumbprint string
}

// New builds a Certificate. key may be nil for an encrypt-only alias; when
// present it must match the certificate's public key.
func New(cert *x509.Certificate, key crypto.Decrypter) (*Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("%w: nil certificate", cerrors.ErrInvalidCertificate)
	}
	if key != nil {
		pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
		if !ok || !pub.Equal(cert.PublicKey) {
			return nil, fmt.Errorf("%w: private key does not match certificate", cerrors.ErrInvalidCertificate)
		}
	}
	return &Certificate{cert: cert, key: key, thumbprint: Thumbprint(cert)}, nil
}

func (c *Certificate) Name() string {
	return c.thumbprint
}

// Thumbprint returns the certificate's SHA-1 thumbprint.
func (c *Certificate) Thumbprint() string {
	return c.thumbprint
}

// X509 returns the underlying certificate.
func (c *Certificate) X509() *x509.Certificate {
	return c.cert
}

// Subject returns the certificate subject in RFC 2253 form.
func (c *Certificate) Subject() string {
	return c.cert.Subject.String()
}

func (c *Certificate) CanEncrypt() bool {
	return c.cert.PublicKey != nil
}

func (c *Certificate) CanDecrypt() bool {
	return c.key != nil
}

func (c *Certificate) PublicKey() crypto.PublicKey {
	if c.cert.PublicKey == nil {
		return nil
	}
	return c.cert.PublicKey
}

func (c *Certificate) PrivateKey() crypto.Decrypter {
	if c.key == nil {
		return nil
	}
	return c.key
}

// Expired reports whether now is outside the certificate's validity window.
func (c *Certificate) Expired(now time.Time) bool {
	return now.Before(c.cert.NotBefore) || now.After(c.cert.NotAfter)
}

// PublicOnly returns a copy of c without its private key.
func (c *Certificate) PublicOnly() *Certificate {
	return &Certificate{cert: c.cert, thumbprint: c.thumbprint}
}

// RequireEncrypt returns a *CapabilityError unless a can encrypt.
func RequireEncrypt(a Capability) error {
	if a == nil || !a.CanEncrypt() || a.PublicKey() == nil {
		return cerrors.NewCapabilityError("encrypt", nameOf(a))
	}
	return nil
}

// RequireDecrypt returns a *CapabilityError unless a can decrypt.
func RequireDecrypt(a Capability) error {
	if a == nil || !a.CanDecrypt() || a.PrivateKey() == nil {
		return cerrors.NewCapabilityError("decrypt", nameOf(a))
	}
	return nil
}

func nameOf(a Capability) string {
	if a == nil {
		return ""
	}
	return a.Name()
}
