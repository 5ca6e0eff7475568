// Package audit provides audit trail logging for x509crypt operations.
//
// Every encrypt, decrypt, re-encrypt and certificate store change is
// recorded in a per-user audit log, so it is possible to see which
// certificate touched which file and when.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at the
// path configured with Configure, by default:
//
//	<data dir>/x509crypt/audit.jsonl
//
// Each entry contains:
//   - Random UUID
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - OS user name
//   - Operation name
//   - Operation-specific details (thumbprint, files, wipe passes)
//
// # Usage
//
// Create an entry with user info pre-populated:
//
//	entry := audit.LogWithUser("encrypt")
//	entry.Thumbprint = thumb
//	entry.Files = encryptedFiles
//	audit.Log(entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error. Operations should never
// fail just because audit logging failed.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit
