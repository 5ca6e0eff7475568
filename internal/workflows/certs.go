package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/audit"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/PolarWolf314/x509crypt/internal/store"
	"github.com/PolarWolf314/x509crypt/internal/utils"
)

// CertResult describes a certificate that was created or imported.
type CertResult struct {
	Thumbprint    string
	Subject       string
	NotAfter      time.Time
	HasPrivateKey bool
	Location      alias.Location
}

func certResult(c *alias.Certificate, loc alias.Location) *CertResult {
	return &CertResult{
		Thumbprint:    c.Thumbprint(),
		Subject:       c.Subject(),
		NotAfter:      c.X509().NotAfter,
		HasPrivateKey: c.CanDecrypt(),
		Location:      loc,
	}
}

// CreateCertOptions configures the cert create workflow.
type CreateCertOptions struct {
	// CommonName defaults to the hostname.
	CommonName string
	Location   alias.Location

	// KeySize and ValidityDays default to the configured values when zero.
	KeySize      int
	ValidityDays int
}

// CreateCert generates a self-signed encryption certificate in the store.
func CreateCert(ctx context.Context, opts CreateCertOptions) (*CertResult, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	loc, err := env.location(opts.Location)
	if err != nil {
		return nil, err
	}

	cn := opts.CommonName
	if cn == "" {
		if cn, err = utils.GetHostname(); err != nil || cn == "" {
			cn = "x509crypt"
		}
	}
	keySize := opts.KeySize
	if keySize == 0 {
		keySize = env.cfg.Certificate.KeySize
	}
	days := opts.ValidityDays
	if days == 0 {
		days = env.cfg.Certificate.ValidityDays
	}
	if days < 0 {
		return nil, fmt.Errorf("%w: validity must be positive", cerrors.ErrInvalidCertificate)
	}

	c, err := env.store.Create(loc, cn, keySize, time.Duration(days)*24*time.Hour)
	if err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("cert-create")
	entry.Thumbprint = c.Thumbprint()
	entry.Subject = c.Subject()
	entry.Location = string(loc)
	audit.Log(entry)

	return certResult(c, loc), nil
}

// ImportCertOptions configures the cert import workflow.
type ImportCertOptions struct {
	Location alias.Location

	// Path is a .pfx/.p12 bundle or a PEM certificate, optionally with its key.
	Path string

	// KeyPath is a separate PEM or OpenSSH private key for a PEM certificate.
	KeyPath string

	// Password unlocks a PFX bundle or an encrypted private key.
	Password []byte

	// PromptPassword is called when a password is needed and none was given.
	PromptPassword func() ([]byte, error)
}

// ImportCert adds a certificate, and its private key when present, to the store.
//
// Returns ErrPassphraseRequired if the input is protected and no password is
// available.
func ImportCert(ctx context.Context, opts ImportCertOptions) (*CertResult, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	loc, err := env.location(opts.Location)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cerrors.ErrFileNotFound, opts.Path)
	}

	var importFn func(password []byte) (*alias.Certificate, error)
	if isPFX(opts.Path) {
		importFn = func(password []byte) (*alias.Certificate, error) {
			return env.store.ImportPFX(loc, data, string(password))
		}
	} else {
		keyPEM := data
		if opts.KeyPath != "" {
			if keyPEM, err = os.ReadFile(opts.KeyPath); err != nil {
				return nil, fmt.Errorf("%w: %s", cerrors.ErrFileNotFound, opts.KeyPath)
			}
		} else if !strings.Contains(string(data), "PRIVATE KEY") {
			keyPEM = nil
		}
		importFn = func(password []byte) (*alias.Certificate, error) {
			return env.store.ImportPEM(loc, data, keyPEM, password)
		}
	}

	c, err := importFn(opts.Password)
	if errors.Is(err, cerrors.ErrPassphraseRequired) && len(opts.Password) == 0 && opts.PromptPassword != nil {
		password, perr := opts.PromptPassword()
		if perr != nil {
			return nil, perr
		}
		c, err = importFn(password)
	}
	if err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("cert-import")
	entry.Thumbprint = c.Thumbprint()
	entry.Subject = c.Subject()
	entry.Location = string(loc)
	entry.Files = []string{opts.Path}
	audit.Log(entry)

	return certResult(c, loc), nil
}

// ExportCertOptions configures the cert export workflow.
type ExportCertOptions struct {
	Thumbprint string
	Location   alias.Location
	Path       string

	// WithKey includes the private key in the bundle.
	WithKey   bool
	Overwrite bool
}

// ExportCert writes a certificate to a PEM bundle.
//
// Returns an error matching ErrCapability if WithKey is set and the alias has
// no private key.
func ExportCert(ctx context.Context, opts ExportCertOptions) (string, error) {
	env, err := loadEnvironment()
	if err != nil {
		return "", err
	}
	loc, err := env.location(opts.Location)
	if err != nil {
		return "", err
	}
	if opts.Path == "" {
		return "", fmt.Errorf("%w: no output path given", cerrors.ErrFileNotFound)
	}
	if err := checkOutput(opts.Path, opts.Overwrite); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := env.store.Export(opts.Thumbprint, loc, opts.Path, opts.WithKey); err != nil {
		return "", err
	}

	thumb, _ := alias.NormalizeThumbprint(opts.Thumbprint)
	entry := audit.LogWithUser("cert-export")
	entry.Thumbprint = thumb
	entry.Location = string(loc)
	entry.OutputPath = opts.Path
	audit.Log(entry)

	return opts.Path, nil
}

// ListCertsOptions configures the cert list workflow.
type ListCertsOptions struct {
	// Location restricts the listing. Empty lists every location.
	Location       alias.Location
	IncludeExpired bool
}

// ListCerts returns the certificates in one or all locations.
func ListCerts(ctx context.Context, opts ListCertsOptions) ([]store.Entry, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}

	locations := alias.Locations
	if opts.Location != "" {
		loc, err := alias.ParseLocation(string(opts.Location))
		if err != nil {
			return nil, err
		}
		locations = []alias.Location{loc}
	}

	var all []store.Entry
	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := env.store.List(loc, opts.IncludeExpired)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}

// RemoveCertOptions configures the cert remove workflow.
type RemoveCertOptions struct {
	Thumbprint string
	Location   alias.Location
}

// RemoveCert deletes a certificate and its private key from the store.
//
// Returns ErrCertificateNotFound if the thumbprint is not in the store.
func RemoveCert(ctx context.Context, opts RemoveCertOptions) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	loc, err := env.location(opts.Location)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := env.store.Remove(opts.Thumbprint, loc); err != nil {
		return err
	}

	thumb, _ := alias.NormalizeThumbprint(opts.Thumbprint)
	entry := audit.LogWithUser("cert-remove")
	entry.Thumbprint = thumb
	entry.Location = string(loc)
	audit.Log(entry)
	return nil
}

func isPFX(path string) bool {
	return utils.HasSuffixFold(path, ".pfx") || utils.HasSuffixFold(path, ".p12")
}
