// Package wipe destroys files by overwriting them with random data before
// removing them.
//
// Overwriting is best-effort at the file system level. Journaling, copy on
// write and SSD wear leveling can keep older copies of the data that no
// software wipe reaches.
package wipe

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

// DefaultBufferSize is the write size used when Wiper.BufferSize is zero.
const DefaultBufferSize = 64 * 1024

// Wiper overwrites files with bytes from Rand. The zero value uses crypto/rand.
type Wiper struct {
	Rand       io.Reader
	BufferSize int
}

// File wipes path with the default Wiper.
func File(path string, passes int) error {
	return Wiper{}.File(path, passes)
}

// File overwrites the full extent of path passes times, syncing after each
// pass, then truncates and removes it. passes == 0 does nothing.
//
// Returns ErrInvalidPassCount for a negative count. Any other failure returns
// a *WipeError and the file is left in place.
func (w Wiper) File(path string, passes int) error {
	if passes < 0 {
		return fmt.Errorf("%w: %d", cerrors.ErrInvalidPassCount, passes)
	}
	if passes == 0 {
		return nil
	}

	random := w.Rand
	if random == nil {
		random = rand.Reader
	}
	bufSize := w.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return &cerrors.WipeError{Path: path, Pass: 1, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return &cerrors.WipeError{Path: path, Pass: 1, Err: err}
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return &cerrors.WipeError{Path: path, Pass: 1, Err: fmt.Errorf("not a regular file")}
	}

	buf := make([]byte, bufSize)
	for pass := 1; pass <= passes; pass++ {
		if err := overwrite(f, info.Size(), random, buf); err != nil {
			f.Close()
			return &cerrors.WipeError{Path: path, Pass: pass, Err: err}
		}
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return &cerrors.WipeError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &cerrors.WipeError{Path: path, Err: err}
	}
	if err := os.Remove(path); err != nil {
		return &cerrors.WipeError{Path: path, Err: err}
	}
	return nil
}

func overwrite(f *os.File, size int64, random io.Reader, buf []byte) error {
	var off int64
	for off < size {
		n := min(int64(len(buf)), size-off)
		if _, err := io.ReadFull(random, buf[:n]); err != nil {
			return fmt.Errorf("%w: %v", cerrors.ErrEntropySource, err)
		}
		if _, err := f.WriteAt(buf[:n], off); err != nil {
			return err
		}
		off += n
	}
	return f.Sync()
}
