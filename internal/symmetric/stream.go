package symmetric

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"io"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/awnumar/memguard"
)

// DefaultChunkSize is the read size used by Copy when none is given.
const DefaultChunkSize = 1 << 20

var errClosed = errors.New("stream already closed")

// NewEncrypter returns a writer that encrypts everything written to it into w.
// Close writes the final padded block; output is identical to Encrypt.
// The material is claimed immediately, so it cannot encrypt anything else.
func NewEncrypter(m *KeyMaterial, w io.Writer) (io.WriteCloser, error) {
	mode, err := m.claim()
	if err != nil {
		return nil, err
	}
	return &encrypter{mode: mode, w: w, pending: make([]byte, 0, aes.BlockSize)}, nil
}

type encrypter struct {
	mode    cipher.BlockMode
	w       io.Writer
	pending []byte
	scratch []byte
	err     error
	closed  bool
}

func (e *encrypter) Write(p []byte) (int, error) {
	if e.closed {
		return 0, errClosed
	}
	if e.err != nil {
		return 0, e.err
	}
	n := len(p)

	if len(e.pending) > 0 {
		k := min(aes.BlockSize-len(e.pending), len(p))
		e.pending = append(e.pending, p[:k]...)
		p = p[k:]
		if len(e.pending) < aes.BlockSize {
			return n, nil
		}
		if err := e.flush(e.pending); err != nil {
			return 0, err
		}
		memguard.WipeBytes(e.pending)
		e.pending = e.pending[:0]
	}

	full := len(p) - len(p)%aes.BlockSize
	if full > 0 {
		if err := e.flush(p[:full]); err != nil {
			return 0, err
		}
	}
	e.pending = append(e.pending, p[full:]...)
	return n, nil
}

func (e *encrypter) flush(blocks []byte) error {
	if cap(e.scratch) < len(blocks) {
		memguard.WipeBytes(e.scratch)
		e.scratch = make([]byte, len(blocks))
	}
	out := e.scratch[:len(blocks)]
	e.mode.CryptBlocks(out, blocks)
	if _, err := e.w.Write(out); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *encrypter) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	defer func() {
		memguard.WipeBytes(e.pending)
		memguard.WipeBytes(e.scratch)
	}()
	if e.err != nil {
		return e.err
	}
	final := pad(e.pending)
	defer memguard.WipeBytes(final)
	return e.flush(final)
}

// NewDecrypter returns a writer that decrypts ciphertext written to it into w.
// The last block is held back until Close, which validates and strips the
// padding. Plaintext is written progressively, so callers must discard the
// output when Close fails.
func NewDecrypter(m *KeyMaterial, w io.Writer) (io.WriteCloser, error) {
	mode, err := m.decrypter()
	if err != nil {
		return nil, err
	}
	return &decrypter{mode: mode, w: w}, nil
}

type decrypter struct {
	mode    cipher.BlockMode
	w       io.Writer
	pending []byte
	scratch []byte
	err     error
	closed  bool
}

func (d *decrypter) Write(p []byte) (int, error) {
	if d.closed {
		return 0, errClosed
	}
	if d.err != nil {
		return 0, d.err
	}
	d.pending = append(d.pending, p...)

	keep := len(d.pending) % aes.BlockSize
	if keep == 0 {
		keep = aes.BlockSize
	}
	ready := len(d.pending) - keep
	if ready <= 0 {
		return len(p), nil
	}
	if err := d.flush(d.pending[:ready]); err != nil {
		return 0, err
	}
	d.pending = append(d.pending[:0], d.pending[ready:]...)
	return len(p), nil
}

func (d *decrypter) flush(blocks []byte) error {
	if cap(d.scratch) < len(blocks) {
		memguard.WipeBytes(d.scratch)
		d.scratch = make([]byte, len(blocks))
	}
	out := d.scratch[:len(blocks)]
	d.mode.CryptBlocks(out, blocks)
	_, err := d.w.Write(out)
	memguard.WipeBytes(out)
	if err != nil {
		d.err = err
	}
	return err
}

func (d *decrypter) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	defer memguard.WipeBytes(d.scratch)
	if d.err != nil {
		return d.err
	}
	if len(d.pending) != aes.BlockSize {
		return cerrors.ErrPaddingOrKeyMismatch
	}

	last := make([]byte, aes.BlockSize)
	defer memguard.WipeBytes(last)
	d.mode.CryptBlocks(last, d.pending)
	n, err := unpad(last)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if _, err := d.w.Write(last[:n]); err != nil {
		d.err = err
		return err
	}
	return nil
}

// Copy pumps src into dst in chunkSize reads, checking ctx between chunks.
// The chunk buffer is wiped before returning.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	defer memguard.WipeBytes(buf)

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
