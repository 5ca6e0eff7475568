package workflows

import (
	"context"
	"strings"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/audit"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

// TextOptions configures the encrypt text and decrypt text workflows.
type TextOptions struct {
	// Thumbprint selects the alias. Spaces, colons and dashes are ignored.
	Thumbprint string

	// Location is the store to look in. Empty means the configured default.
	Location alias.Location

	// Text is the plaintext to encrypt, or the base64 envelope to decrypt.
	Text string

	// Target records where the caller sends the result ("console",
	// "clipboard" or a path). It only appears in the audit log.
	Target string
}

// TextResult contains the outcome of a text operation.
type TextResult struct {
	// Text is the base64 envelope after encryption, or the plaintext after
	// decryption.
	Text string

	// Thumbprint is the alias that was used.
	Thumbprint string

	// Location is the store the alias came from.
	Location alias.Location
}

// EncryptText seals opts.Text for the selected alias and returns the base64
// envelope. Empty text is allowed.
//
// Returns ErrCertificateNotFound if the thumbprint is not in the store.
// Returns an error matching ErrCapability if the alias has no public key.
func EncryptText(ctx context.Context, opts TextOptions) (*TextResult, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	a, loc, err := env.lookup(ctx, opts.Thumbprint, opts.Location)
	if err != nil {
		return nil, err
	}

	sealed, err := env.engine.EncryptText(ctx, a, opts.Text)
	if err != nil {
		return nil, err
	}
	encoded, err := sealed.Encode()
	if err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("encrypt-text")
	entry.Thumbprint = a.Name()
	entry.Location = string(loc)
	entry.Target = opts.Target
	audit.Log(entry)

	return &TextResult{Text: encoded, Thumbprint: a.Name(), Location: loc}, nil
}

// DecryptText opens the base64 envelope in opts.Text with the selected alias.
// The capability is checked before the text is parsed.
//
// Returns an error matching ErrCapability if the alias has no private key.
// Returns ErrEmptyInput if the text is blank.
// Returns an error matching ErrDecryptionFailed for foreign or corrupt input.
func DecryptText(ctx context.Context, opts TextOptions) (*TextResult, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	a, loc, err := env.lookup(ctx, opts.Thumbprint, opts.Location)
	if err != nil {
		return nil, err
	}
	if err := alias.RequireDecrypt(a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Text) == "" {
		return nil, cerrors.ErrEmptyInput
	}

	plain, err := env.engine.DecryptEncodedText(ctx, a, opts.Text)
	if err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("decrypt-text")
	entry.Thumbprint = a.Name()
	entry.Location = string(loc)
	entry.Target = opts.Target
	audit.Log(entry)

	return &TextResult{Text: plain, Thumbprint: a.Name(), Location: loc}, nil
}

// ReEncryptTextOptions configures the reencrypt text workflow.
type ReEncryptTextOptions struct {
	OldThumbprint string
	OldLocation   alias.Location
	NewThumbprint string
	NewLocation   alias.Location

	// Text is the base64 envelope sealed for the old alias.
	Text string

	// Target is recorded in the audit log, as in TextOptions.
	Target string
}

// ReEncryptText opens an envelope with the old alias and seals its plaintext
// for the new one. Both capabilities are checked before anything is parsed.
func ReEncryptText(ctx context.Context, opts ReEncryptTextOptions) (*TextResult, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	oldAlias, oldLoc, err := env.lookup(ctx, opts.OldThumbprint, opts.OldLocation)
	if err != nil {
		return nil, err
	}
	newAlias, newLoc, err := env.lookup(ctx, opts.NewThumbprint, opts.NewLocation)
	if err != nil {
		return nil, err
	}
	if err := alias.RequireDecrypt(oldAlias); err != nil {
		return nil, err
	}
	if err := alias.RequireEncrypt(newAlias); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Text) == "" {
		return nil, cerrors.ErrEmptyInput
	}

	old, err := decodeEnvelope(opts.Text, oldAlias.Name())
	if err != nil {
		return nil, err
	}
	sealed, err := env.engine.ReEncrypt(ctx, oldAlias, newAlias, old)
	if err != nil {
		return nil, err
	}
	encoded, err := sealed.Encode()
	if err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("reencrypt-text")
	entry.Thumbprint = oldAlias.Name()
	entry.NewThumbprint = newAlias.Name()
	entry.Location = string(oldLoc)
	entry.Target = opts.Target
	audit.Log(entry)

	return &TextResult{Text: encoded, Thumbprint: newAlias.Name(), Location: newLoc}, nil
}
