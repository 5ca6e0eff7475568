// Package errors provides typed error values for x509crypt.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. Every core
// failure kind is distinguishable at the CLI boundary.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Entropy errors: the secure random source failed (ErrEntropySource)
//   - Capability errors: the alias lacks a key half (*CapabilityError)
//   - Crypto errors: wrong certificate or corrupted envelope (ErrDecryptionFailed)
//   - Wipe errors: the ciphertext could not be destroyed (*WipeError)
//   - Store errors: certificate lookup and import issues (ErrCertificateNotFound)
//   - File errors: file system issues (ErrFileNotFound, *IOError)
//
// ErrUnwrapFailed, ErrPaddingOrKeyMismatch and ErrInvalidEnvelope all wrap
// ErrDecryptionFailed, so a caller that only cares whether decryption worked
// checks the umbrella:
//
//	if errors.Is(err, cerrors.ErrDecryptionFailed) {
//	    // wrong certificate or corrupted input
//	}
//
// Typed errors carry data:
//
//	var capErr *cerrors.CapabilityError
//	if errors.As(err, &capErr) && capErr.Capability == "decrypt" {
//	    // the certificate has no accessible private key
//	}
package errors
