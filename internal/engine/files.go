package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/envelope"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/PolarWolf314/x509crypt/internal/keywrap"
	"github.com/PolarWolf314/x509crypt/internal/symmetric"
)

const (
	// CiphertextExt is appended to encrypted files.
	CiphertextExt = ".ctx"

	// PlaintextExt is appended to decrypted files whose input lacks CiphertextExt.
	PlaintextExt = ".ptx"
)

// DefaultEncryptedPath returns the output path EncryptFile uses for in.
func DefaultEncryptedPath(in string) string {
	return in + CiphertextExt
}

// DefaultDecryptedPath strips CiphertextExt from in, or appends PlaintextExt
// when in does not carry it.
func DefaultDecryptedPath(in string) string {
	base := filepath.Base(in)
	if strings.HasSuffix(strings.ToLower(base), CiphertextExt) && len(base) > len(CiphertextExt) {
		return in[:len(in)-len(CiphertextExt)]
	}
	return in + PlaintextExt
}

// EncryptFile streams inputPath into an envelope at outputPath, which
// defaults to DefaultEncryptedPath. The source file is never modified.
// Returns the output path.
func (e *Engine) EncryptFile(ctx context.Context, a alias.Capability, inputPath, outputPath string) (string, error) {
	if err := alias.RequireEncrypt(a); err != nil {
		return "", err
	}
	if outputPath == "" {
		outputPath = DefaultEncryptedPath(inputPath)
	}
	if err := e.encryptFile(ctx, a, inputPath, outputPath); err != nil {
		return "", fmt.Errorf("encrypting file %s with alias %s: %w", inputPath, a.Name(), err)
	}
	e.log.Infof("Encrypted %s to %s", inputPath, outputPath)
	return outputPath, nil
}

func (e *Engine) encryptFile(ctx context.Context, a alias.Capability, inputPath, outputPath string) error {
	src, err := os.Open(inputPath)
	if err != nil {
		return cerrors.NewIOError(cerrors.PhaseReadSource, inputPath, err)
	}
	defer src.Close()

	m, err := symmetric.GenerateFrom(e.rand)
	if err != nil {
		return err
	}
	defer m.Zero()

	wrapped, err := keywrap.Wrap(e.rand, a.PublicKey(), m.Key())
	if err != nil {
		return err
	}

	return writeAtomic(outputPath, func(w io.Writer) error {
		if err := envelope.WriteHeader(w, wrapped, m.IV()); err != nil {
			return err
		}
		enc, err := symmetric.NewEncrypter(m, w)
		if err != nil {
			return err
		}
		if _, err := symmetric.Copy(ctx, enc, sourceReader{src, inputPath}, e.chunkSize); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	})
}

// DecryptFile decrypts the envelope at inputPath into outputPath, which
// defaults to DefaultDecryptedPath. When wipePasses > 0 the input is wiped,
// but only after the output is complete and renamed into place. A wipe
// failure returns the output path together with a *WipeError.
func (e *Engine) DecryptFile(ctx context.Context, a alias.Capability, inputPath, outputPath string, wipePasses int) (string, error) {
	if err := alias.RequireDecrypt(a); err != nil {
		return "", err
	}
	if wipePasses < 0 {
		return "", fmt.Errorf("%w: %d", cerrors.ErrInvalidPassCount, wipePasses)
	}
	if outputPath == "" {
		outputPath = DefaultDecryptedPath(inputPath)
	}
	if wipePasses > 0 && samePath(inputPath, outputPath) {
		return "", fmt.Errorf("%w: output %s is the file being wiped", cerrors.ErrOutputExists, outputPath)
	}

	if err := e.decryptFile(ctx, a, inputPath, outputPath); err != nil {
		return "", fmt.Errorf("decrypting file %s with alias %s: %w", inputPath, a.Name(), err)
	}
	e.log.Infof("Decrypted %s to %s", inputPath, outputPath)

	if wipePasses > 0 {
		if err := e.wiper.File(inputPath, wipePasses); err != nil {
			return outputPath, fmt.Errorf("decrypted %s but could not wipe the ciphertext: %w", outputPath, err)
		}
		e.log.Infof("Wiped %s with %d passes", inputPath, wipePasses)
	}
	return outputPath, nil
}

func (e *Engine) decryptFile(ctx context.Context, a alias.Capability, inputPath, outputPath string) error {
	src, err := os.Open(inputPath)
	if err != nil {
		return cerrors.NewIOError(cerrors.PhaseReadSource, inputPath, err)
	}
	defer src.Close()
	r := sourceReader{src, inputPath}

	wrapped, iv, err := envelope.ReadHeader(r)
	if err != nil {
		return err
	}
	m, err := e.unwrap(a, wrapped, iv)
	if err != nil {
		return err
	}
	defer m.Zero()

	return writeAtomic(outputPath, func(w io.Writer) error {
		dec, err := symmetric.NewDecrypter(m, w)
		if err != nil {
			return err
		}
		if _, err := symmetric.Copy(ctx, dec, r, e.chunkSize); err != nil {
			dec.Close()
			return err
		}
		return dec.Close()
	})
}

// ReEncryptFile moves the file at inputPath from oldAlias to newAlias. The
// decrypter feeds the encrypter directly, so plaintext only exists in wiped
// chunk buffers. outputPath defaults to replacing inputPath.
func (e *Engine) ReEncryptFile(ctx context.Context, oldAlias, newAlias alias.Capability, inputPath, outputPath string) (string, error) {
	if err := alias.RequireDecrypt(oldAlias); err != nil {
		return "", err
	}
	if err := alias.RequireEncrypt(newAlias); err != nil {
		return "", err
	}
	if outputPath == "" {
		outputPath = inputPath
	}
	if err := e.reEncryptFile(ctx, oldAlias, newAlias, inputPath, outputPath); err != nil {
		return "", fmt.Errorf("re-encrypting file %s from alias %s to %s: %w",
			inputPath, oldAlias.Name(), newAlias.Name(), err)
	}
	e.log.Infof("Re-encrypted %s for alias %s", outputPath, newAlias.Name())
	return outputPath, nil
}

func (e *Engine) reEncryptFile(ctx context.Context, oldAlias, newAlias alias.Capability, inputPath, outputPath string) error {
	src, err := os.Open(inputPath)
	if err != nil {
		return cerrors.NewIOError(cerrors.PhaseReadSource, inputPath, err)
	}
	defer src.Close()
	r := sourceReader{src, inputPath}

	wrapped, iv, err := envelope.ReadHeader(r)
	if err != nil {
		return err
	}
	oldKey, err := e.unwrap(oldAlias, wrapped, iv)
	if err != nil {
		return err
	}
	defer oldKey.Zero()

	newKey, err := symmetric.GenerateFrom(e.rand)
	if err != nil {
		return err
	}
	defer newKey.Zero()
	newWrapped, err := keywrap.Wrap(e.rand, newAlias.PublicKey(), newKey.Key())
	if err != nil {
		return err
	}

	return writeAtomic(outputPath, func(w io.Writer) error {
		if err := envelope.WriteHeader(w, newWrapped, newKey.IV()); err != nil {
			return err
		}
		enc, err := symmetric.NewEncrypter(newKey, w)
		if err != nil {
			return err
		}
		dec, err := symmetric.NewDecrypter(oldKey, enc)
		if err != nil {
			enc.Close()
			return err
		}
		_, err = symmetric.Copy(ctx, dec, r, e.chunkSize)
		if err == nil {
			err = dec.Close()
		} else {
			dec.Close()
		}
		if err != nil {
			enc.Close()
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		return src.Close()
	})
}

// writeAtomic runs fill against a temporary file next to path and renames it
// into place once fill, sync and close succeed. On failure the temporary file
// is removed and path is untouched.
func writeAtomic(path string, fill func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return cerrors.NewIOError(cerrors.PhaseWriteOutput, path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fill(outputWriter{tmp, path}); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return cerrors.NewIOError(cerrors.PhaseWriteOutput, path, err)
	}
	if err = tmp.Close(); err != nil {
		return cerrors.NewIOError(cerrors.PhaseWriteOutput, path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return cerrors.NewIOError(cerrors.PhaseWriteOutput, path, err)
	}
	return nil
}

// sourceReader tags read errors with the input path.
type sourceReader struct {
	r    io.Reader
	path string
}

func (s sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		err = cerrors.NewIOError(cerrors.PhaseReadSource, s.path, err)
	}
	return n, err
}

// outputWriter tags write errors with the output path.
type outputWriter struct {
	w    io.Writer
	path string
}

func (o outputWriter) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	if err != nil {
		err = cerrors.NewIOError(cerrors.PhaseWriteOutput, o.path, err)
	}
	return n, err
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
