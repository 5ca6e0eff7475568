package engine

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/alias/aliastest"
	"github.com/PolarWolf314/x509crypt/internal/envelope"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// opaqueKey exposes only crypto.Decrypter, like a key held by a hardware
// token or an OS key store.
type opaqueKey struct {
	inner *rsa.PrivateKey
}

func (k opaqueKey) Public() crypto.PublicKey { return k.inner.Public() }

func (k opaqueKey) Decrypt(rand io.Reader, msg []byte, opts crypto.DecrypterOpts) ([]byte, error) {
	return k.inner.Decrypt(rand, msg, opts)
}

// staticAlias is a hand-built Capability.
type staticAlias struct {
	name string
	pub  crypto.PublicKey
	priv crypto.Decrypter
}

func (s staticAlias) Name() string                 { return s.name }
func (s staticAlias) CanEncrypt() bool             { return s.pub != nil }
func (s staticAlias) CanDecrypt() bool             { return s.priv != nil }
func (s staticAlias) PublicKey() crypto.PublicKey  { return s.pub }
func (s staticAlias) PrivateKey() crypto.Decrypter { return s.priv }

type brokenRand struct{}

func (brokenRand) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestTextRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := aliastest.New(t, "text")
	e := New()

	for _, text := range []string{"Hello world", "", strings.Repeat("ünïcødé ", 500)} {
		env, err := e.EncryptText(ctx, a, text)
		require.NoError(t, err)
		assert.Len(t, env.IV, envelope.IVSize)

		got, err := e.DecryptText(ctx, a, env)
		require.NoError(t, err)
		assert.Equal(t, text, got)

		encoded, err := env.Encode()
		require.NoError(t, err)
		got, err = e.DecryptEncodedText(ctx, a, encoded)
		require.NoError(t, err)
		assert.Equal(t, text, got)
	}
}

func TestHelloWorldPayloadIsOneBlock(t *testing.T) {
	a := aliastest.New(t, "hello")
	env, err := New().EncryptText(context.Background(), a, "Hello world")
	require.NoError(t, err)
	assert.Len(t, env.Payload, 16)
	assert.Len(t, env.WrappedKey, aliastest.KeySize/8)
}

func TestEncryptionsAreFresh(t *testing.T) {
	ctx := context.Background()
	a := aliastest.New(t, "fresh")
	e := New()

	first, err := e.EncryptText(ctx, a, "same text")
	require.NoError(t, err)
	second, err := e.EncryptText(ctx, a, "same text")
	require.NoError(t, err)

	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.WrappedKey, second.WrappedKey)
	assert.NotEqual(t, first.Payload, second.Payload)
}

func TestDecryptWithWrongAlias(t *testing.T) {
	ctx := context.Background()
	right := aliastest.New(t, "right")
	wrong := aliastest.New(t, "wrong")
	e := New()

	env, err := e.EncryptText(ctx, right, "for right only")
	require.NoError(t, err)

	_, err = e.DecryptText(ctx, wrong, env)
	assert.ErrorIs(t, err, cerrors.ErrDecryptionFailed)
	assert.ErrorIs(t, err, cerrors.ErrUnwrapFailed)
	assert.Contains(t, err.Error(), wrong.Name())
}

func TestCapabilityGating(t *testing.T) {
	ctx := context.Background()
	full := aliastest.New(t, "full")
	encryptOnly := full.PublicOnly()
	e := New()

	t.Run("decrypt without private key fails before parsing", func(t *testing.T) {
		_, err := e.DecryptEncodedText(ctx, encryptOnly, "definitely not an envelope")
		var capErr *cerrors.CapabilityError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, "decrypt", capErr.Capability)
		assert.NotErrorIs(t, err, cerrors.ErrInvalidEnvelope)
	})

	t.Run("decrypt file without private key never opens the file", func(t *testing.T) {
		_, err := e.DecryptFile(ctx, encryptOnly, "/does/not/exist.ctx", "", 3)
		assert.ErrorIs(t, err, cerrors.ErrCapability)
	})

	t.Run("encrypt without public key", func(t *testing.T) {
		_, err := e.EncryptText(ctx, staticAlias{name: "empty"}, "text")
		var capErr *cerrors.CapabilityError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, "encrypt", capErr.Capability)
		assert.Equal(t, "empty", capErr.Alias)
	})

	t.Run("encrypt-only alias can still encrypt", func(t *testing.T) {
		env, err := e.EncryptText(ctx, encryptOnly, "sealed")
		require.NoError(t, err)
		got, err := e.DecryptText(ctx, full, env)
		require.NoError(t, err)
		assert.Equal(t, "sealed", got)
	})
}

func TestNonExportableKeyDecrypts(t *testing.T) {
	ctx := context.Background()
	c, key, err := alias.GenerateSelfSigned(nil, "opaque", aliastest.KeySize, time.Hour)
	require.NoError(t, err)

	held := staticAlias{name: c.Name(), pub: c.PublicKey(), priv: opaqueKey{key}}
	e := New()

	env, err := e.EncryptText(ctx, c.PublicOnly(), "kept in hardware")
	require.NoError(t, err)
	got, err := e.DecryptText(ctx, held, env)
	require.NoError(t, err)
	assert.Equal(t, "kept in hardware", got)
}

func TestEntropyFailure(t *testing.T) {
	a := aliastest.New(t, "entropy")
	_, err := New(WithRand(brokenRand{})).EncryptText(context.Background(), a, "text")
	assert.ErrorIs(t, err, cerrors.ErrEntropySource)
}

func TestReEncrypt(t *testing.T) {
	ctx := context.Background()
	oldAlias := aliastest.New(t, "old")
	newAlias := aliastest.New(t, "new")
	e := New()

	env, err := e.EncryptText(ctx, oldAlias, "rotate me")
	require.NoError(t, err)

	moved, err := e.ReEncrypt(ctx, oldAlias, newAlias, env)
	require.NoError(t, err)

	got, err := e.DecryptText(ctx, newAlias, moved)
	require.NoError(t, err)
	assert.Equal(t, "rotate me", got)

	_, err = e.DecryptText(ctx, oldAlias, moved)
	assert.ErrorIs(t, err, cerrors.ErrDecryptionFailed)

	_, err = e.ReEncrypt(ctx, oldAlias.PublicOnly(), newAlias, env)
	assert.ErrorIs(t, err, cerrors.ErrCapability)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := aliastest.New(t, "cancel")

	_, err := New().EncryptText(ctx, a, "text")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCorruptPayloadDetected(t *testing.T) {
	ctx := context.Background()
	a := aliastest.New(t, "corrupt")
	e := New()

	env, err := e.EncryptText(ctx, a, "Hello world")
	require.NoError(t, err)

	// 11 bytes pad with 5; the IV feeds the only block.
	env.IV = bytes.Clone(env.IV)
	env.IV[len(env.IV)-1] ^= 5
	_, err = e.DecryptText(ctx, a, env)
	assert.ErrorIs(t, err, cerrors.ErrPaddingOrKeyMismatch)

	_, err = e.DecryptText(ctx, a, nil)
	assert.ErrorIs(t, err, cerrors.ErrInvalidEnvelope)
}
