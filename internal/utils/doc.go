// Package utils provides shared helpers for the x509crypt CLI.
//
// # Filesystem Utilities
//
//   - ResolveFiles: expands paths, directories and doublestar globs
//   - FileExists: reports whether a path exists
//
// # System Utilities
//
//   - GetUsername: returns the current system username
//   - GetHostname: returns the system hostname
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - HasSuffixFold: case-insensitive suffix test
//
// # I/O Utilities
//
//   - ReadStdin: reads all data from standard input
//   - ReadClipboard, WriteClipboard: system clipboard access
//
// # Terminal Utilities
//
//   - ReadPassphrase, ReadPassphraseFromTTY: hidden password prompts
//   - Confirm, ConfirmFrom: yes/no prompts
//   - IsTerminal, IsTTYAvailable: terminal detection
package utils
