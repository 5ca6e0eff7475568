// Package engine encrypts and decrypts text and files for certificate aliases.
//
// Every encryption draws a fresh AES-256 key and IV, wraps the key to the
// alias's RSA public key and stores both next to the ciphertext in an
// envelope. Decryption reverses the steps with the alias's private key.
//
// The engine holds no state between calls. Key material is zeroed on every
// return path, file output is written to a temporary file and renamed into
// place only after it is complete, and a ciphertext is wiped only after its
// plaintext has been written successfully.
package engine

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/envelope"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/PolarWolf314/x509crypt/internal/keywrap"
	logger "github.com/PolarWolf314/x509crypt/internal/logging"
	"github.com/PolarWolf314/x509crypt/internal/symmetric"
	"github.com/PolarWolf314/x509crypt/internal/wipe"
	"github.com/awnumar/memguard"
)

// Wiper destroys a file after a successful decryption.
type Wiper interface {
	File(path string, passes int) error
}

type Engine struct {
	rand      io.Reader
	chunkSize int
	log       logger.Logger
	wiper     Wiper
}

type Option func(*Engine)

// WithRand sets the source for key material, IVs and OAEP padding.
func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// WithChunkSize sets the read size for file streaming.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithWiper replaces the wiper used by DecryptFile.
func WithWiper(w Wiper) Option {
	return func(e *Engine) { e.wiper = w }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		rand:      rand.Reader,
		chunkSize: symmetric.DefaultChunkSize,
		wiper:     wipe.Wiper{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EncryptText seals text for a.
//
// Returns a *CapabilityError if a has no public key and ErrEntropySource if
// key material cannot be generated.
func (e *Engine) EncryptText(ctx context.Context, a alias.Capability, text string) (*envelope.Envelope, error) {
	if err := alias.RequireEncrypt(a); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plain := []byte(text)
	defer memguard.WipeBytes(plain)

	env, err := e.seal(a, plain)
	if err != nil {
		return nil, fmt.Errorf("encrypting text with alias %s: %w", a.Name(), err)
	}
	e.log.Debugf("Encrypted %d bytes of text for alias %s", len(plain), a.Name())
	return env, nil
}

// DecryptText opens env with a's private key.
//
// Returns a *CapabilityError if a has no private key, and an error matching
// ErrDecryptionFailed if the envelope was sealed for another alias or is corrupt.
func (e *Engine) DecryptText(ctx context.Context, a alias.Capability, env *envelope.Envelope) (string, error) {
	if err := alias.RequireDecrypt(a); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if env == nil {
		return "", fmt.Errorf("decrypting text with alias %s: %w", a.Name(), cerrors.ErrInvalidEnvelope)
	}

	plain, err := e.open(a, env)
	if err != nil {
		return "", fmt.Errorf("decrypting text with alias %s: %w", a.Name(), err)
	}
	defer memguard.WipeBytes(plain)
	return string(plain), nil
}

// DecryptEncodedText checks a's capability before parsing the text form of
// an envelope, then decrypts it.
func (e *Engine) DecryptEncodedText(ctx context.Context, a alias.Capability, encoded string) (string, error) {
	if err := alias.RequireDecrypt(a); err != nil {
		return "", err
	}
	env, err := envelope.Decode(encoded)
	if err != nil {
		return "", fmt.Errorf("decrypting text with alias %s: %w", a.Name(), err)
	}
	return e.DecryptText(ctx, a, env)
}

// ReEncrypt opens env with oldAlias and seals the plaintext for newAlias.
// The plaintext buffer is zeroed before returning.
func (e *Engine) ReEncrypt(ctx context.Context, oldAlias, newAlias alias.Capability, env *envelope.Envelope) (*envelope.Envelope, error) {
	if err := alias.RequireDecrypt(oldAlias); err != nil {
		return nil, err
	}
	if err := alias.RequireEncrypt(newAlias); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("re-encrypting text from alias %s: %w", oldAlias.Name(), cerrors.ErrInvalidEnvelope)
	}

	plain, err := e.open(oldAlias, env)
	if err != nil {
		return nil, fmt.Errorf("re-encrypting text from alias %s: %w", oldAlias.Name(), err)
	}
	defer memguard.WipeBytes(plain)

	out, err := e.seal(newAlias, plain)
	if err != nil {
		return nil, fmt.Errorf("re-encrypting text for alias %s: %w", newAlias.Name(), err)
	}
	return out, nil
}

func (e *Engine) seal(a alias.Capability, plain []byte) (*envelope.Envelope, error) {
	m, err := symmetric.GenerateFrom(e.rand)
	if err != nil {
		return nil, err
	}
	defer m.Zero()

	wrapped, err := keywrap.Wrap(e.rand, a.PublicKey(), m.Key())
	if err != nil {
		return nil, err
	}
	payload, err := symmetric.Encrypt(m, plain)
	if err != nil {
		return nil, err
	}
	return &envelope.Envelope{WrappedKey: wrapped, IV: m.IV(), Payload: payload}, nil
}

// open returns the plaintext of env. The caller wipes it.
func (e *Engine) open(a alias.Capability, env *envelope.Envelope) ([]byte, error) {
	m, err := e.unwrap(a, env.WrappedKey, env.IV)
	if err != nil {
		return nil, err
	}
	defer m.Zero()
	return symmetric.Decrypt(m, env.Payload)
}

// unwrap recovers the key material stored in an envelope header.
func (e *Engine) unwrap(a alias.Capability, wrappedKey, iv []byte) (*symmetric.KeyMaterial, error) {
	key, err := keywrap.Unwrap(e.rand, a.PrivateKey(), wrappedKey)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(key)

	m, err := symmetric.FromParts(key, iv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cerrors.ErrInvalidEnvelope, err)
	}
	return m, nil
}
