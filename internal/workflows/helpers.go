package workflows

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/x509crypt/internal/envelope"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

func decodeEnvelope(text, aliasName string) (*envelope.Envelope, error) {
	env, err := envelope.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("decrypting text with alias %s: %w", aliasName, err)
	}
	return env, nil
}

// checkOutput refuses to replace an existing path unless overwrite is set.
func checkOutput(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%w: %s (use --overwrite to replace it)", cerrors.ErrOutputExists, path)
	}
	return nil
}
