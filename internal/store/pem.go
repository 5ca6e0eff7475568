package store

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"golang.org/x/crypto/ssh"
)

const certificateBlock = "CERTIFICATE"

// ParseCertificatePEM returns the first certificate in data.
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	block := findBlock(data, func(t string) bool { return t == certificateBlock })
	if block == nil {
		return nil, fmt.Errorf("%w: no CERTIFICATE block", cerrors.ErrInvalidCertificate)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cerrors.ErrInvalidCertificate, err)
	}
	return cert, nil
}

// ParsePrivateKeyPEM returns the first private key in data. PKCS#1, PKCS#8,
// legacy encrypted PEM and OpenSSH keys are accepted; only RSA keys are usable.
//
// Returns ErrPassphraseRequired if the key is encrypted and passphrase is empty.
func ParsePrivateKeyPEM(data, passphrase []byte) (crypto.Decrypter, error) {
	block := findBlock(data, func(t string) bool { return t != certificateBlock })
	if block == nil {
		return nil, fmt.Errorf("%w: no private key block", cerrors.ErrInvalidCertificate)
	}
	keyPEM := pem.EncodeToMemory(block)

	raw, err := ssh.ParseRawPrivateKey(keyPEM)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		if len(passphrase) == 0 {
			return nil, cerrors.ErrPassphraseRequired
		}
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(keyPEM, passphrase)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cerrors.ErrInvalidCertificate, err)
	}

	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T", cerrors.ErrUnsupportedKey, raw)
	}
	return key, nil
}

// EncodeCertificatePEM returns cert as a CERTIFICATE block.
func EncodeCertificatePEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: certificateBlock, Bytes: cert.Raw})
}

// EncodePrivateKeyPEM returns key as a PKCS#8 PRIVATE KEY block. Keys that
// cannot be exported yield ErrUnsupportedKey.
func EncodePrivateKeyPEM(key crypto.Decrypter) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cerrors.ErrUnsupportedKey, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

func findBlock(data []byte, match func(string) bool) *pem.Block {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil
		}
		if match(block.Type) {
			return block
		}
	}
}
