package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/audit"
	"github.com/PolarWolf314/x509crypt/internal/engine"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/PolarWolf314/x509crypt/internal/utils"
)

// FileResult pairs an input file with the file written for it.
type FileResult struct {
	Input  string
	Output string
}

// EncryptFilesOptions configures the encrypt file workflow.
type EncryptFilesOptions struct {
	Thumbprint string
	Location   alias.Location

	// Patterns are paths, directories or doublestar globs. Directories and
	// globs skip files that are already encrypted.
	Patterns []string

	// BaseDir resolves relative patterns. Empty means the working directory.
	BaseDir string

	// Output overrides the destination. Only valid for a single input.
	Output string

	// Overwrite allows replacing existing output files.
	Overwrite bool
}

// EncryptFilesResult contains the outcome of an encrypt file operation.
type EncryptFilesResult struct {
	Files      []FileResult
	Thumbprint string
	Location   alias.Location
}

// EncryptFiles encrypts every file the patterns resolve to. All outputs are
// checked before the first file is written, so an existing output stops the
// whole batch.
//
// Returns ErrNoFilesFound if nothing matched.
// Returns ErrOutputExists if an output exists and Overwrite is not set.
// Returns an error matching ErrCapability if the alias has no public key.
func EncryptFiles(ctx context.Context, opts EncryptFilesOptions) (*EncryptFilesResult, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	a, loc, err := env.lookup(ctx, opts.Thumbprint, opts.Location)
	if err != nil {
		return nil, err
	}
	if err := alias.RequireEncrypt(a); err != nil {
		return nil, err
	}

	inputs, err := utils.ResolveFiles(opts.Patterns, baseDir(opts.BaseDir), isPlainFile)
	if err != nil {
		return nil, err
	}
	if opts.Output != "" && len(inputs) > 1 {
		return nil, fmt.Errorf("--out needs a single input file, got %d", len(inputs))
	}

	files := make([]FileResult, len(inputs))
	for i, in := range inputs {
		out := opts.Output
		if out == "" {
			out = engine.DefaultEncryptedPath(in)
		}
		if err := checkOutput(out, opts.Overwrite); err != nil {
			return nil, err
		}
		files[i] = FileResult{Input: in, Output: out}
	}

	result := &EncryptFilesResult{Thumbprint: a.Name(), Location: loc}
	for _, f := range files {
		if _, err := env.engine.EncryptFile(ctx, a, f.Input, f.Output); err != nil {
			logFiles("encrypt", a.Name(), loc, result.Files)
			return result, err
		}
		result.Files = append(result.Files, f)
	}

	logFiles("encrypt", a.Name(), loc, result.Files)
	return result, nil
}

// DecryptFileOptions configures the decrypt file workflow.
type DecryptFileOptions struct {
	Thumbprint string
	Location   alias.Location
	Input      string

	// Output defaults to the input without its .ctx extension, or with .ptx
	// appended.
	Output    string
	Overwrite bool

	// Wipe destroys the ciphertext after the plaintext is written.
	Wipe bool

	// WipePasses overrides the configured pass count when positive.
	WipePasses int

	// Confirm is asked before a wipe. Nil means no confirmation.
	Confirm func(path string) (bool, error)
}

// DecryptFileResult contains the outcome of a decrypt file operation.
type DecryptFileResult struct {
	FileResult
	Thumbprint string
	Location   alias.Location

	// WipePasses is the number of passes the input was wiped with, 0 when it
	// was kept.
	WipePasses int
}

// DecryptFile decrypts one envelope file. When a wipe is requested and the
// wipe fails after the output was written, the result is returned together
// with an error matching ErrWipeFailed.
//
// Returns an error matching ErrCapability if the alias has no private key.
// Returns ErrConfirmationDeclined if Confirm refuses the wipe.
// Returns ErrOutputExists if the output exists and Overwrite is not set.
func DecryptFile(ctx context.Context, opts DecryptFileOptions) (*DecryptFileResult, error) {
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

	in, err := existingFile(opts.Input)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == "" {
		out = engine.DefaultDecryptedPath(in)
	}
	if err := checkOutput(out, opts.Overwrite); err != nil {
		return nil, err
	}

	passes := 0
	if opts.Wipe {
		passes = env.cfg.Crypto.WipePasses
		if opts.WipePasses > 0 {
			passes = opts.WipePasses
		}
		if opts.Confirm != nil && passes > 0 {
			ok, err := opts.Confirm(in)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, cerrors.ErrConfirmationDeclined
			}
		}
	}

	written, err := env.engine.DecryptFile(ctx, a, in, out, passes)
	if written == "" {
		return nil, err
	}

	result := &DecryptFileResult{
		FileResult: FileResult{Input: in, Output: written},
		Thumbprint: a.Name(),
		Location:   loc,
	}
	if err == nil {
		result.WipePasses = passes
	}

	entry := audit.LogWithUser("decrypt")
	entry.Thumbprint = a.Name()
	entry.Location = string(loc)
	entry.Files = []string{in}
	entry.OutputPath = written
	entry.WipePasses = result.WipePasses
	audit.Log(entry)

	return result, err
}

// ReEncryptFileOptions configures the reencrypt file workflow.
type ReEncryptFileOptions struct {
	OldThumbprint string
	OldLocation   alias.Location
	NewThumbprint string
	NewLocation   alias.Location
	Input         string

	// Output defaults to replacing the input in place.
	Output    string
	Overwrite bool
}

// ReEncryptFile moves an envelope file from the old alias to the new one
// without writing plaintext to disk.
func ReEncryptFile(ctx context.Context, opts ReEncryptFileOptions) (*FileResult, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	oldAlias, oldLoc, err := env.lookup(ctx, opts.OldThumbprint, opts.OldLocation)
	if err != nil {
		return nil, err
	}
	newAlias, _, err := env.lookup(ctx, opts.NewThumbprint, opts.NewLocation)
	if err != nil {
		return nil, err
	}

	in, err := existingFile(opts.Input)
	if err != nil {
		return nil, err
	}
	if opts.Output != "" && opts.Output != in {
		if err := checkOutput(opts.Output, opts.Overwrite); err != nil {
			return nil, err
		}
	}

	out, err := env.engine.ReEncryptFile(ctx, oldAlias, newAlias, in, opts.Output)
	if err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("reencrypt")
	entry.Thumbprint = oldAlias.Name()
	entry.NewThumbprint = newAlias.Name()
	entry.Location = string(oldLoc)
	entry.Files = []string{in}
	entry.OutputPath = out
	audit.Log(entry)

	return &FileResult{Input: in, Output: out}, nil
}

func logFiles(op, thumbprint string, loc alias.Location, files []FileResult) {
	if len(files) == 0 {
		return
	}
	entry := audit.LogWithUser(op)
	entry.Thumbprint = thumbprint
	entry.Location = string(loc)
	for _, f := range files {
		entry.Files = append(entry.Files, f.Output)
	}
	audit.Log(entry)
}

func baseDir(dir string) string {
	if dir != "" {
		return dir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func existingFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no input file given", cerrors.ErrFileNotFound)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", cerrors.ErrFileNotFound, path)
	}
	return filepath.Clean(path), nil
}

func isPlainFile(path string) bool {
	return !utils.HasSuffixFold(path, engine.CiphertextExt)
}
