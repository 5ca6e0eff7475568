// Package workflows provides high-level orchestration for x509crypt commands.
//
// Workflows coordinate the config, certificate store, encryption engine and
// audit log to implement complete user-facing features. Each workflow handles
// a single command's business logic, independent of CLI concerns like flag
// parsing, spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Loading configuration
//   - Resolving thumbprints to aliases in the store
//   - Refusing to overwrite existing outputs
//   - Performing the core operation
//   - Recording audit trail entries
//
// # Available Workflows
//
//   - EncryptText, DecryptText, ReEncryptText: base64 envelopes
//   - EncryptFiles, DecryptFile, ReEncryptFile: streamed file envelopes
//   - CreateCert, ImportCert, ExportCert, ListCerts, RemoveCert: the store
//   - Log: reads and filters the audit trail
//   - ShowConfig, InitConfig: the config file
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	result, err := workflows.DecryptFile(ctx, opts)
//	if errors.Is(err, cerrors.ErrWipeFailed) {
//	    // The plaintext is in result.Output but the ciphertext survived.
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Cancellation stops file operations between chunks.
package workflows
