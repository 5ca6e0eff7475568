package wipe

import (
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader serves random bytes and records how many were requested.
type countingReader struct {
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.n += int64(len(p))
	return rand.Read(p)
}

// limitedReader fails once its budget is spent.
type limitedReader struct {
	left int
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.left <= 0 {
		return 0, errors.New("random source exhausted")
	}
	n := min(len(p), l.left)
	l.left -= n
	return rand.Read(p[:n])
}

func writeFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret.ctx")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestFileRemovesAfterPasses(t *testing.T) {
	path := writeFile(t, 10_000)
	counter := &countingReader{}

	err := Wiper{Rand: counter, BufferSize: 4096}.File(path, 3)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, int64(3*10_000), counter.n)
}

func TestFileZeroPassesIsNoOp(t *testing.T) {
	path := writeFile(t, 64)
	require.NoError(t, File(path, 0))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 64)
	assert.Equal(t, byte(63), data[63])
}

func TestFileNegativePasses(t *testing.T) {
	path := writeFile(t, 64)
	err := File(path, -1)
	assert.ErrorIs(t, err, cerrors.ErrInvalidPassCount)
	assert.FileExists(t, path)
}

func TestFileEmpty(t *testing.T) {
	path := writeFile(t, 0)
	require.NoError(t, File(path, 2))
	assert.NoFileExists(t, path)
}

func TestFileMissing(t *testing.T) {
	err := File(filepath.Join(t.TempDir(), "absent"), 1)

	var wipeErr *cerrors.WipeError
	require.ErrorAs(t, err, &wipeErr)
	assert.Equal(t, 1, wipeErr.Pass)
	assert.ErrorIs(t, err, cerrors.ErrWipeFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileDirectoryRefused(t *testing.T) {
	err := File(t.TempDir(), 1)
	assert.ErrorIs(t, err, cerrors.ErrWipeFailed)
}

func TestFileFailingPassLeavesFile(t *testing.T) {
	path := writeFile(t, 1000)

	err := Wiper{Rand: &limitedReader{left: 1500}, BufferSize: 256}.File(path, 3)

	var wipeErr *cerrors.WipeError
	require.ErrorAs(t, err, &wipeErr)
	assert.Equal(t, 2, wipeErr.Pass)
	assert.ErrorIs(t, err, cerrors.ErrEntropySource)
	assert.FileExists(t, path)

	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.Equal(t, int64(1000), info.Size())
}
