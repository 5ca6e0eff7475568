package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/x509crypt/internal/alias/aliastest"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWiper struct {
	calls []string
	err   error
	// seenOutput records whether the decrypted output existed when the wipe ran.
	output     string
	seenOutput bool
}

func (w *recordingWiper) File(path string, passes int) error {
	w.calls = append(w.calls, path)
	if _, err := os.Stat(w.output); err == nil {
		w.seenOutput = true
	}
	if w.err != nil {
		return w.err
	}
	return os.Remove(path)
}

func writePlain(t *testing.T, dir, name string, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path, data
}

// leftovers lists temporary files writeAtomic might have left behind.
func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	return matches
}

func TestDefaultPaths(t *testing.T) {
	assert.Equal(t, "report.pdf.ctx", DefaultEncryptedPath("report.pdf"))
	assert.Equal(t, "report.pdf", DefaultDecryptedPath("report.pdf.ctx"))
	assert.Equal(t, "REPORT.PDF", DefaultDecryptedPath("REPORT.PDF.CTX"))
	assert.Equal(t, "report.bin.ptx", DefaultDecryptedPath("report.bin"))
	assert.Equal(t, filepath.Join("dir", ".ctx.ptx"), DefaultDecryptedPath(filepath.Join("dir", ".ctx")))
}

func TestFileRoundTripLarge(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := aliastest.New(t, "files")
	e := New(WithChunkSize(64 * 1024))

	in, data := writePlain(t, dir, "big.bin", 10*1024*1024+3)

	encrypted, err := e.EncryptFile(ctx, a, in, "")
	require.NoError(t, err)
	assert.Equal(t, in+CiphertextExt, encrypted)

	original, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, original), "source must be untouched")

	require.NoError(t, os.Remove(in))
	decrypted, err := e.DecryptFile(ctx, a, encrypted, "", 0)
	require.NoError(t, err)
	assert.Equal(t, in, decrypted)

	got, err := os.ReadFile(decrypted)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
	assert.FileExists(t, encrypted, "zero passes must not wipe")
	assert.Empty(t, leftovers(t, dir))
}

func TestFileRoundTripEmptyAndExplicitOutput(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := aliastest.New(t, "empty")
	e := New()

	in, _ := writePlain(t, dir, "empty.txt", 0)
	out := filepath.Join(dir, "sealed.bin")

	encrypted, err := e.EncryptFile(ctx, a, in, out)
	require.NoError(t, err)
	assert.Equal(t, out, encrypted)

	decrypted, err := e.DecryptFile(ctx, a, encrypted, "", 0)
	require.NoError(t, err)
	assert.Equal(t, out+PlaintextExt, decrypted)

	got, err := os.ReadFile(decrypted)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecryptFileWipesAfterOutput(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := aliastest.New(t, "wipe")

	in, data := writePlain(t, dir, "notes.txt", 5000)
	encrypted, err := New().EncryptFile(ctx, a, in, "")
	require.NoError(t, err)
	require.NoError(t, os.Remove(in))

	wiper := &recordingWiper{output: in}
	decrypted, err := New(WithWiper(wiper)).DecryptFile(ctx, a, encrypted, "", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{encrypted}, wiper.calls)
	assert.True(t, wiper.seenOutput, "output must exist before the wipe starts")
	assert.NoFileExists(t, encrypted)

	got, err := os.ReadFile(decrypted)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDecryptFileRealWipe(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := aliastest.New(t, "realwipe")
	e := New()

	in, _ := writePlain(t, dir, "data.bin", 3000)
	encrypted, err := e.EncryptFile(ctx, a, in, "")
	require.NoError(t, err)

	out := filepath.Join(dir, "restored.bin")
	_, err = e.DecryptFile(ctx, a, encrypted, out, 2)
	require.NoError(t, err)
	assert.NoFileExists(t, encrypted)
	assert.FileExists(t, out)
}

func TestDecryptFileWipeFailureKeepsOutput(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := aliastest.New(t, "wipefail")

	in, _ := writePlain(t, dir, "data.bin", 100)
	encrypted, err := New().EncryptFile(ctx, a, in, "")
	require.NoError(t, err)

	out := filepath.Join(dir, "out.bin")
	wipeErr := &cerrors.WipeError{Path: encrypted, Pass: 2, Err: errors.New("device busy")}
	decrypted, err := New(WithWiper(&recordingWiper{output: out, err: wipeErr})).DecryptFile(ctx, a, encrypted, out, 3)

	assert.Equal(t, out, decrypted)
	var got *cerrors.WipeError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 2, got.Pass)
	assert.FileExists(t, out)
	assert.FileExists(t, encrypted)
}

func TestDecryptFileTamperedLeavesNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := aliastest.New(t, "tamper")

	// 100 bytes pad with 12.
	in, _ := writePlain(t, dir, "data.bin", 100)
	encrypted, err := New().EncryptFile(ctx, a, in, "")
	require.NoError(t, err)

	sealed, err := os.ReadFile(encrypted)
	require.NoError(t, err)
	sealed[len(sealed)-17] ^= 12
	require.NoError(t, os.WriteFile(encrypted, sealed, 0600))

	out := filepath.Join(dir, "out.bin")
	wiper := &recordingWiper{output: out}
	_, err = New(WithWiper(wiper)).DecryptFile(ctx, a, encrypted, out, 3)

	assert.ErrorIs(t, err, cerrors.ErrPaddingOrKeyMismatch)
	assert.NoFileExists(t, out)
	assert.FileExists(t, encrypted, "failed decryption must not wipe")
	assert.Empty(t, wiper.calls)
	assert.Empty(t, leftovers(t, dir))
}

func TestDecryptFileWrongAliasAndForeignInput(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	right := aliastest.New(t, "right")
	wrong := aliastest.New(t, "wrong")
	e := New()

	in, _ := writePlain(t, dir, "data.bin", 40)
	encrypted, err := e.EncryptFile(ctx, right, in, "")
	require.NoError(t, err)

	_, err = e.DecryptFile(ctx, wrong, encrypted, filepath.Join(dir, "x"), 0)
	assert.ErrorIs(t, err, cerrors.ErrUnwrapFailed)
	assert.NoFileExists(t, filepath.Join(dir, "x"))

	_, err = e.DecryptFile(ctx, right, in, filepath.Join(dir, "y"), 0)
	assert.ErrorIs(t, err, cerrors.ErrInvalidEnvelope)
	assert.NoFileExists(t, filepath.Join(dir, "y"))
}

func TestDecryptFileArgumentChecks(t *testing.T) {
	ctx := context.Background()
	a := aliastest.New(t, "args")
	e := New()

	_, err := e.DecryptFile(ctx, a, "in.ctx", "", -1)
	assert.ErrorIs(t, err, cerrors.ErrInvalidPassCount)

	_, err = e.DecryptFile(ctx, a, "in.ctx", "in.ctx", 1)
	assert.ErrorIs(t, err, cerrors.ErrOutputExists)

	_, err = e.DecryptFile(ctx, a, filepath.Join(t.TempDir(), "missing.ctx"), "", 0)
	var ioErr *cerrors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, cerrors.PhaseReadSource, ioErr.Phase)
}

func TestEncryptFileUnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	a := aliastest.New(t, "unwritable")
	in, _ := writePlain(t, dir, "data.bin", 10)

	_, err := New().EncryptFile(context.Background(), a, in, filepath.Join(dir, "no", "such", "dir", "out.ctx"))
	var ioErr *cerrors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, cerrors.PhaseWriteOutput, ioErr.Phase)
}

func TestEncryptFileCancelled(t *testing.T) {
	dir := t.TempDir()
	a := aliastest.New(t, "cancel")
	in, _ := writePlain(t, dir, "data.bin", 1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().EncryptFile(ctx, a, in, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, in+CiphertextExt)
	assert.Empty(t, leftovers(t, dir))
}

func TestReEncryptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	oldAlias := aliastest.New(t, "old")
	newAlias := aliastest.New(t, "new")
	e := New(WithChunkSize(1000))

	in, data := writePlain(t, dir, "data.bin", 123_457)
	encrypted, err := e.EncryptFile(ctx, oldAlias, in, "")
	require.NoError(t, err)

	replaced, err := e.ReEncryptFile(ctx, oldAlias, newAlias, encrypted, "")
	require.NoError(t, err)
	assert.Equal(t, encrypted, replaced)

	_, err = e.DecryptFile(ctx, oldAlias, encrypted, filepath.Join(dir, "old.out"), 0)
	assert.ErrorIs(t, err, cerrors.ErrDecryptionFailed)

	out, err := e.DecryptFile(ctx, newAlias, encrypted, filepath.Join(dir, "new.out"), 0)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
	assert.Empty(t, leftovers(t, dir))
}

func TestReEncryptFileFailureKeepsInput(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	owner := aliastest.New(t, "owner")
	stranger := aliastest.New(t, "stranger")
	e := New()

	in, _ := writePlain(t, dir, "data.bin", 64)
	encrypted, err := e.EncryptFile(ctx, owner, in, "")
	require.NoError(t, err)
	before, err := os.ReadFile(encrypted)
	require.NoError(t, err)

	_, err = e.ReEncryptFile(ctx, stranger, owner, encrypted, "")
	assert.ErrorIs(t, err, cerrors.ErrDecryptionFailed)
	assert.True(t, strings.Contains(err.Error(), stranger.Name()))

	after, err := os.ReadFile(encrypted)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
