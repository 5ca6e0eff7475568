package alias

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"time"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

// MinKeySize is the smallest RSA modulus accepted for new certificates.
const MinKeySize = 2048

// GenerateSelfSigned creates an RSA key pair and a self-signed certificate
// usable for key encipherment. random defaults to crypto/rand.
func GenerateSelfSigned(random io.Reader, commonName string, keySize int, validity time.Duration) (*Certificate, *rsa.PrivateKey, error) {
	if random == nil {
		random = rand.Reader
	}
	if keySize < MinKeySize {
		return nil, nil, fmt.Errorf("%w: RSA key size %d is below %d", cerrors.ErrUnsupportedKey, keySize, MinKeySize)
	}
	if validity <= 0 {
		return nil, nil, fmt.Errorf("%w: validity must be positive", cerrors.ErrInvalidCertificate)
	}

	key, err := rsa.GenerateKey(random, keySize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generating RSA key: %v", cerrors.ErrEntropySource, err)
	}
	serial, err := rand.Int(random, new(big.Int).Lsh(big.NewInt(1), 127))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generating serial: %v", cerrors.ErrEntropySource, err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(random, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", cerrors.ErrInvalidCertificate, err)
	}
	c, err := New(cert, key)
	if err != nil {
		return nil, nil, err
	}
	return c, key, nil
}
