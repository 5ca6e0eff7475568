// Package aliastest builds throwaway certificate aliases for tests.
package aliastest

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/PolarWolf314/x509crypt/internal/alias"
)

// KeySize is the RSA size used for test certificates.
const KeySize = 2048

// New returns a fresh alias holding both keys.
func New(t testing.TB, commonName string) *alias.Certificate {
	t.Helper()
	c, _, err := alias.GenerateSelfSigned(rand.Reader, commonName, KeySize, time.Hour)
	if err != nil {
		t.Fatalf("generating test certificate %q: %v", commonName, err)
	}
	return c
}

// EncryptOnly returns a fresh alias without a private key.
func EncryptOnly(t testing.TB, commonName string) *alias.Certificate {
	t.Helper()
	return New(t, commonName).PublicOnly()
}
