package errors

import (
	"errors"
	"fmt"
)

// Entropy errors indicate the random source could not produce key material.
var (
	// ErrEntropySource indicates the cryptographically secure random source failed.
	// There is never a fallback to a weaker source.
	ErrEntropySource = errors.New("secure random source unavailable")
)

// Capability errors indicate an alias lacks the key half an operation needs.
var (
	// ErrCapability is matched by every *CapabilityError.
	ErrCapability = errors.New("alias lacks required key")

	// ErrUnsupportedKey indicates the certificate key is not an RSA key.
	ErrUnsupportedKey = errors.New("unsupported certificate key type")
)

// Cryptographic errors indicate failures during encryption or decryption operations.
var (
	// ErrDecryptionFailed is the umbrella for every failure caused by a wrong
	// certificate or a corrupted envelope.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrUnwrapFailed indicates the wrapped symmetric key could not be decrypted
	// with the supplied private key.
	ErrUnwrapFailed = fmt.Errorf("%w: symmetric key could not be unwrapped", ErrDecryptionFailed)

	// ErrPaddingOrKeyMismatch indicates the CBC padding was invalid after decryption.
	ErrPaddingOrKeyMismatch = fmt.Errorf("%w: invalid padding or key mismatch", ErrDecryptionFailed)

	// ErrInvalidEnvelope indicates the input is not a well-formed envelope.
	ErrInvalidEnvelope = fmt.Errorf("%w: malformed envelope", ErrDecryptionFailed)

	// ErrKeyMaterialReused indicates a key/IV pair was offered for a second plaintext.
	ErrKeyMaterialReused = errors.New("symmetric key material already used")

	// ErrInvalidKeyLength indicates the symmetric key or IV has an unexpected length.
	ErrInvalidKeyLength = errors.New("invalid symmetric key length")
)

// Wipe errors indicate a ciphertext file could not be destroyed.
var (
	// ErrWipeFailed is matched by every *WipeError.
	ErrWipeFailed = errors.New("secure wipe failed")

	// ErrInvalidPassCount indicates a negative wipe pass count.
	ErrInvalidPassCount = errors.New("wipe pass count must not be negative")
)

// Store errors indicate issues with the certificate store.
var (
	// ErrCertificateNotFound indicates no certificate matches the thumbprint.
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrCertificateExists indicates the certificate is already in the store.
	ErrCertificateExists = errors.New("certificate already exists in store")

	// ErrInvalidCertificate indicates the certificate or key data could not be parsed.
	ErrInvalidCertificate = errors.New("invalid certificate or key data")

	// ErrPassphraseRequired indicates a private key is encrypted and no passphrase was given.
	ErrPassphraseRequired = errors.New("private key is passphrase protected")

	// ErrInvalidThumbprint indicates a thumbprint is not 40 hex characters.
	ErrInvalidThumbprint = errors.New("invalid certificate thumbprint")

	// ErrInvalidLocation indicates an unknown store location name.
	ErrInvalidLocation = errors.New("invalid certificate store location")
)

// File errors indicate issues with file discovery or access.
var (
	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrFileNotFound indicates a specific file could not be located.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutputExists indicates the output path exists and overwriting was not allowed.
	ErrOutputExists = errors.New("output file already exists")
)

// Input errors indicate bad command input.
var (
	// ErrInvalidDateFormat indicates a date filter could not be parsed.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrConfirmationDeclined indicates the user declined a destructive action.
	ErrConfirmationDeclined = errors.New("confirmation declined")

	// ErrEmptyInput indicates no text was supplied.
	ErrEmptyInput = errors.New("no input supplied")
)

// CapabilityError reports that an alias cannot perform the requested operation.
// Capability is "encrypt" (no public key) or "decrypt" (no private key).
type CapabilityError struct {
	Capability string
	Alias      string
}

func (e *CapabilityError) Error() string {
	half := "public"
	if e.Capability == "decrypt" {
		half = "private"
	}
	if e.Alias == "" {
		return fmt.Sprintf("cannot %s: no %s key available", e.Capability, half)
	}
	return fmt.Sprintf("alias %s cannot %s: no %s key available", e.Alias, e.Capability, half)
}

// Is reports whether target is ErrCapability.
func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapability
}

// NewCapabilityError returns a *CapabilityError for the given capability.
func NewCapabilityError(capability, alias string) error {
	return &CapabilityError{Capability: capability, Alias: alias}
}

// WipeError reports that a file was NOT confirmed destroyed.
// Pass is the 1-based pass that failed, or 0 when the final removal failed.
type WipeError struct {
	Path string
	Pass int
	Err  error
}

func (e *WipeError) Error() string {
	if e.Pass == 0 {
		return fmt.Sprintf("wiping %s: removal failed, file was not destroyed: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("wiping %s: pass %d failed, file was not destroyed: %v", e.Path, e.Pass, e.Err)
}

func (e *WipeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrWipeFailed.
func (e *WipeError) Is(target error) bool {
	return target == ErrWipeFailed
}

// Phase names the stage of a file operation that failed.
type Phase string

const (
	PhaseReadSource  Phase = "read source"
	PhaseWriteOutput Phase = "write output"
	PhaseWipe        Phase = "wipe"
)

// IOError wraps a file system error with the path and phase that failed.
type IOError struct {
	Phase Phase
	Path  string
	Err   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError wraps err unless it is nil.
func NewIOError(phase Phase, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Phase: phase, Path: path, Err: err}
}
