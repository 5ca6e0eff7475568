package store

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/configs"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

const (
	certExt = ".crt"
	keyExt  = ".key"
)

// Store is a directory-backed certificate store with one directory per location.
type Store struct {
	mu   sync.Mutex
	dirs map[alias.Location]string
	rand io.Reader
}

var _ alias.Provider = (*Store)(nil)

// New returns a store over dirs.
func New(dirs map[alias.Location]string) *Store {
	return &Store{dirs: dirs, rand: rand.Reader}
}

// FromConfig returns a store over the configured location directories.
func FromConfig(cfg *configs.Config) *Store {
	return New(map[alias.Location]string{
		alias.CurrentUser:  cfg.StorePath(alias.CurrentUser),
		alias.LocalMachine: cfg.StorePath(alias.LocalMachine),
	})
}

// Entry summarizes a stored certificate.
type Entry struct {
	Thumbprint    string
	Subject       string
	NotBefore     time.Time
	NotAfter      time.Time
	HasPrivateKey bool
	Location      alias.Location
}

// Expired reports whether now falls outside the entry's validity window.
func (e Entry) Expired(now time.Time) bool {
	return now.Before(e.NotBefore) || now.After(e.NotAfter)
}

// Dir returns the directory backing loc.
func (s *Store) Dir(loc alias.Location) (string, error) {
	dir, ok := s.dirs[loc]
	if !ok || dir == "" {
		return "", fmt.Errorf("%w: %q has no directory", cerrors.ErrInvalidLocation, loc)
	}
	return dir, nil
}

func (s *Store) paths(thumbprint string, loc alias.Location) (certPath, keyPath string, err error) {
	dir, err := s.Dir(loc)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(dir, thumbprint+certExt), filepath.Join(dir, thumbprint+keyExt), nil
}

// Lookup implements alias.Provider.
func (s *Store) Lookup(ctx context.Context, thumbprint string, loc alias.Location) (alias.Capability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := s.Get(thumbprint, loc)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get loads the certificate with thumbprint from loc, with its private key
// when one is stored.
//
// Returns ErrCertificateNotFound if no such certificate exists.
func (s *Store) Get(thumbprint string, loc alias.Location) (*alias.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(thumbprint, loc)
}

func (s *Store) get(thumbprint string, loc alias.Location) (*alias.Certificate, error) {
	thumb, err := alias.NormalizeThumbprint(thumbprint)
	if err != nil {
		return nil, err
	}
	certPath, keyPath, err := s.paths(thumb, loc)
	if err != nil {
		return nil, err
	}

	certPEM, err := os.ReadFile(certPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", cerrors.ErrCertificateNotFound, thumb, loc)
	}
	if err != nil {
		return nil, fmt.Errorf("reading certificate %s: %w", thumb, err)
	}
	cert, err := ParseCertificatePEM(certPEM)
	if err != nil {
		return nil, err
	}

	var key crypto.Decrypter
	keyPEM, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
		key, err = ParsePrivateKeyPEM(keyPEM, nil)
		if err != nil {
			return nil, fmt.Errorf("private key for %s: %w", thumb, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading private key %s: %w", thumb, err)
	}

	return alias.New(cert, key)
}

// List returns the certificates in loc sorted by subject. Expired
// certificates are left out unless includeExpired is set. Files that fail to
// parse are skipped.
func (s *Store) List(loc alias.Location, includeExpired bool) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.Dir(loc)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store %s: %w", dir, err)
	}

	now := time.Now()
	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, certExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		cert, err := ParseCertificatePEM(data)
		if err != nil {
			continue
		}
		thumb := alias.Thumbprint(cert)
		_, keyErr := os.Stat(filepath.Join(dir, thumb+keyExt))
		e := Entry{
			Thumbprint:    thumb,
			Subject:       cert.Subject.String(),
			NotBefore:     cert.NotBefore,
			NotAfter:      cert.NotAfter,
			HasPrivateKey: keyErr == nil,
			Location:      loc,
		}
		if !includeExpired && e.Expired(now) {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Subject != entries[j].Subject {
			return entries[i].Subject < entries[j].Subject
		}
		return entries[i].Thumbprint < entries[j].Thumbprint
	})
	return entries, nil
}

// Create generates a self-signed certificate with a new RSA key and stores both.
func (s *Store) Create(loc alias.Location, commonName string, keySize int, validity time.Duration) (*alias.Certificate, error) {
	c, key, err := alias.GenerateSelfSigned(s.rand, commonName, keySize, validity)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.add(loc, c.X509(), key); err != nil {
		return nil, err
	}
	return c, nil
}

// Remove deletes the certificate and any private key stored for thumbprint.
func (s *Store) Remove(thumbprint string, loc alias.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thumb, err := alias.NormalizeThumbprint(thumbprint)
	if err != nil {
		return err
	}
	certPath, keyPath, err := s.paths(thumb, loc)
	if err != nil {
		return err
	}

	if err := os.Remove(certPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s in %s", cerrors.ErrCertificateNotFound, thumb, loc)
		}
		return fmt.Errorf("removing certificate %s: %w", thumb, err)
	}
	if err := os.Remove(keyPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing private key %s: %w", thumb, err)
	}
	return nil
}

// add writes cert and key into loc. The caller holds s.mu.
func (s *Store) add(loc alias.Location, cert *x509.Certificate, key crypto.Decrypter) error {
	c, err := alias.New(cert, key)
	if err != nil {
		return err
	}
	if _, ok := cert.PublicKey.(*rsa.PublicKey); !ok {
		return fmt.Errorf("%w: %T", cerrors.ErrUnsupportedKey, cert.PublicKey)
	}

	certPath, keyPath, err := s.paths(c.Thumbprint(), loc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(certPath), 0700); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	if _, err := os.Stat(certPath); err == nil {
		return fmt.Errorf("%w: %s in %s", cerrors.ErrCertificateExists, c.Thumbprint(), loc)
	}

	if key != nil {
		keyPEM, err := EncodePrivateKeyPEM(key)
		if err != nil {
			return err
		}
		if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
			return fmt.Errorf("writing private key: %w", err)
		}
	}
	if err := os.WriteFile(certPath, EncodeCertificatePEM(cert), 0644); err != nil {
		os.Remove(keyPath)
		return fmt.Errorf("writing certificate: %w", err)
	}
	return nil
}
