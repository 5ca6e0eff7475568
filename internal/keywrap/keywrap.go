// Package keywrap protects a symmetric key with a certificate's RSA key pair
// using RSA-OAEP with SHA-256.
package keywrap

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

// Wrap encrypts key to pub.
//
// Returns a *CapabilityError when pub is nil, and ErrUnsupportedKey when pub
// is not an RSA key.
func Wrap(random io.Reader, pub crypto.PublicKey, key []byte) ([]byte, error) {
	if pub == nil {
		return nil, cerrors.NewCapabilityError("encrypt", "")
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T", cerrors.ErrUnsupportedKey, pub)
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), random, rsaPub, key, nil)
	if err != nil {
		return nil, fmt.Errorf("wrapping symmetric key: %w", err)
	}
	return wrapped, nil
}

// Unwrap recovers a key produced by Wrap. The private key is only used through
// crypto.Decrypter, so keys that never leave their provider still work.
//
// Returns a *CapabilityError when priv is nil, ErrUnsupportedKey for non-RSA
// keys, and ErrUnwrapFailed for any decryption failure.
func Unwrap(random io.Reader, priv crypto.Decrypter, wrapped []byte) ([]byte, error) {
	if priv == nil {
		return nil, cerrors.NewCapabilityError("decrypt", "")
	}
	if _, ok := priv.Public().(*rsa.PublicKey); !ok {
		return nil, fmt.Errorf("%w: %T", cerrors.ErrUnsupportedKey, priv.Public())
	}
	key, err := priv.Decrypt(random, wrapped, &rsa.OAEPOptions{Hash: crypto.SHA256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cerrors.ErrUnwrapFailed, err)
	}
	return key, nil
}
