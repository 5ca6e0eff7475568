package store

import (
	"crypto"
	"errors"
	"fmt"
	"os"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"golang.org/x/crypto/pkcs12"
)

// ImportPFX stores the certificate and private key from a PKCS#12 bundle.
// Bundles with more than one certificate are rejected by the decoder.
//
// Returns ErrPassphraseRequired if the bundle is protected and password is
// empty.
func (s *Store) ImportPFX(loc alias.Location, data []byte, password string) (*alias.Certificate, error) {
	rawKey, cert, err := pkcs12.Decode(data, password)
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		if password == "" {
			return nil, cerrors.ErrPassphraseRequired
		}
		return nil, fmt.Errorf("%w: incorrect PFX password", cerrors.ErrInvalidCertificate)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cerrors.ErrInvalidCertificate, err)
	}
	key, ok := rawKey.(crypto.Decrypter)
	if !ok {
		return nil, fmt.Errorf("%w: %T", cerrors.ErrUnsupportedKey, rawKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.add(loc, cert, key); err != nil {
		return nil, err
	}
	return alias.New(cert, key)
}

// ImportPEM stores a PEM certificate and, when keyPEM is non-empty, its
// private key. certPEM and keyPEM may be the same bundle.
func (s *Store) ImportPEM(loc alias.Location, certPEM, keyPEM, passphrase []byte) (*alias.Certificate, error) {
	cert, err := ParseCertificatePEM(certPEM)
	if err != nil {
		return nil, err
	}

	var key crypto.Decrypter
	if len(keyPEM) > 0 {
		key, err = ParsePrivateKeyPEM(keyPEM, passphrase)
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.add(loc, cert, key); err != nil {
		return nil, err
	}
	return alias.New(cert, key)
}

// Export writes the certificate, and its private key when withKey is set, to
// path as a PEM bundle that ImportPEM accepts.
func (s *Store) Export(thumbprint string, loc alias.Location, path string, withKey bool) error {
	s.mu.Lock()
	c, err := s.get(thumbprint, loc)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	data := EncodeCertificatePEM(c.X509())
	perm := os.FileMode(0644)
	if withKey {
		if err := alias.RequireDecrypt(c); err != nil {
			return err
		}
		keyPEM, err := EncodePrivateKeyPEM(c.PrivateKey())
		if err != nil {
			return err
		}
		data = append(data, keyPEM...)
		perm = 0600
	}

	if err := os.WriteFile(path, data, perm); err != nil {
		return cerrors.NewIOError(cerrors.PhaseWriteOutput, path, err)
	}
	return nil
}
