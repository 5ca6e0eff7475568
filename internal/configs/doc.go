// Package configs manages x509crypt configuration.
//
// Configuration lives in a single TOML file at
// <UserConfigDir>/x509crypt/config.toml:
//
//	[store]
//	default_location = "CurrentUser"
//	user_path = "~/.local/share/x509crypt/store/user"
//	machine_path = "/etc/x509crypt/store"
//
//	[crypto]
//	chunk_size = 1048576
//	wipe_passes = 3
//
//	[certificate]
//	key_size = 3072
//	validity_days = 365
//
//	[audit]
//	enabled = true
//	path = "~/.local/share/x509crypt/audit.jsonl"
//
// A missing file yields the defaults, and keys missing from the file keep
// their default values.
//
// # Environment Overrides
//
// These variables take precedence over the file:
//
//	X509CRYPT_USER_STORE     store.user_path
//	X509CRYPT_MACHINE_STORE  store.machine_path
//	X509CRYPT_WIPE_PASSES    crypto.wipe_passes
//	X509CRYPT_CHUNK_SIZE     crypto.chunk_size
//	X509CRYPT_AUDIT          audit.enabled
//
// # Settings
//
// Settings holds the per-user config and data directories. It is resolved
// once at startup and may be redirected by tests.
package configs
