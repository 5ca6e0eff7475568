// Package store keeps certificates and their private keys on disk so they
// can be looked up as encryption aliases by thumbprint.
//
// Each location (CurrentUser, LocalMachine) maps to its own directory:
//
//	<dir>/<THUMBPRINT>.crt   PEM certificate
//	<dir>/<THUMBPRINT>.key   PKCS#8 PEM private key, mode 0600, optional
//
// A certificate without a .key file is an encrypt-only alias. The store
// implements alias.Provider.
//
// # Importing
//
// Certificates arrive through Create (self-signed, new RSA key), ImportPFX
// (PKCS#12 bundles) or ImportPEM (PKCS#1, PKCS#8 and OpenSSH private keys,
// optionally passphrase protected).
//
// # Exporting
//
// Export writes a PEM bundle, optionally including the private key, that
// ImportPEM reads back.
package store
