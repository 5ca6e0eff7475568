package symmetric

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/awnumar/memguard"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// IVSize is the CBC initialization vector length in bytes.
	IVSize = aes.BlockSize
)

// KeyMaterial is a one-time symmetric key and IV pair.
// It encrypts at most one plaintext and must be zeroed by its owner.
type KeyMaterial struct {
	buf    []byte
	key    []byte
	iv     []byte
	used   bool
	zeroed bool
}

// Generate creates fresh key material from crypto/rand.
func Generate() (*KeyMaterial, error) {
	return GenerateFrom(rand.Reader)
}

// GenerateFrom creates fresh key material from r.
// Any read failure is reported as ErrEntropySource.
func GenerateFrom(r io.Reader) (*KeyMaterial, error) {
	buf := make([]byte, KeySize+IVSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		memguard.WipeBytes(buf)
		return nil, fmt.Errorf("%w: %v", cerrors.ErrEntropySource, err)
	}
	return newMaterial(buf), nil
}

// FromParts copies an unwrapped key and a stored IV into new key material.
func FromParts(key, iv []byte) (*KeyMaterial, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key is %d bytes, expected %d", cerrors.ErrInvalidKeyLength, len(key), KeySize)
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: IV is %d bytes, expected %d", cerrors.ErrInvalidKeyLength, len(iv), IVSize)
	}
	buf := make([]byte, KeySize+IVSize)
	copy(buf, key)
	copy(buf[KeySize:], iv)
	return newMaterial(buf), nil
}

func newMaterial(buf []byte) *KeyMaterial {
	return &KeyMaterial{
		buf: buf,
		key: buf[:KeySize:KeySize],
		iv:  buf[KeySize:],
	}
}

// Key returns the raw key bytes. The slice is wiped by Zero.
func (m *KeyMaterial) Key() []byte {
	return m.key
}

// IV returns a copy of the IV, which is not secret and outlives Zero.
func (m *KeyMaterial) IV() []byte {
	iv := make([]byte, len(m.iv))
	copy(iv, m.iv)
	return iv
}

// Zero wipes the key and IV. It is safe to call more than once.
func (m *KeyMaterial) Zero() {
	if m == nil || m.zeroed {
		return
	}
	memguard.WipeBytes(m.buf)
	m.zeroed = true
}

// Zeroed reports whether Zero has been called.
func (m *KeyMaterial) Zeroed() bool {
	return m.zeroed
}

func (m *KeyMaterial) block() (cipher.Block, error) {
	if m.zeroed {
		return nil, fmt.Errorf("%w: key material has been wiped", cerrors.ErrKeyMaterialReused)
	}
	return aes.NewCipher(m.key)
}

// claim marks the material as spent on a plaintext.
func (m *KeyMaterial) claim() (cipher.BlockMode, error) {
	if m.used {
		return nil, cerrors.ErrKeyMaterialReused
	}
	b, err := m.block()
	if err != nil {
		return nil, err
	}
	m.used = true
	return cipher.NewCBCEncrypter(b, m.iv), nil
}

func (m *KeyMaterial) decrypter() (cipher.BlockMode, error) {
	b, err := m.block()
	if err != nil {
		return nil, err
	}
	return cipher.NewCBCDecrypter(b, m.iv), nil
}

// Encrypt encrypts plaintext with AES-256-CBC and PKCS#7 padding.
// The output is len(plaintext) rounded down to a block boundary plus one block.
func Encrypt(m *KeyMaterial, plaintext []byte) ([]byte, error) {
	mode, err := m.claim()
	if err != nil {
		return nil, err
	}
	padded := pad(plaintext)
	defer memguard.WipeBytes(padded)

	out := make([]byte, len(padded))
	mode.CryptBlocks(out, padded)
	return out, nil
}

// Decrypt reverses Encrypt. A ciphertext that is not block aligned or whose
// padding is invalid after decryption yields ErrPaddingOrKeyMismatch. This is
// not an integrity check; some corruptions decrypt to garbage undetected.
func Decrypt(m *KeyMaterial, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d",
			cerrors.ErrPaddingOrKeyMismatch, len(ciphertext), aes.BlockSize)
	}
	mode, err := m.decrypter()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	mode.CryptBlocks(out, ciphertext)

	n, err := unpad(out)
	if err != nil {
		memguard.WipeBytes(out)
		return nil, err
	}
	return out[:n], nil
}

// pad returns a new slice holding p followed by PKCS#7 padding.
func pad(p []byte) []byte {
	n := aes.BlockSize - len(p)%aes.BlockSize
	out := make([]byte, len(p)+n)
	copy(out, p)
	for i := len(p); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// unpad validates PKCS#7 padding and returns the unpadded length.
func unpad(b []byte) (int, error) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return 0, cerrors.ErrPaddingOrKeyMismatch
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize {
		return 0, cerrors.ErrPaddingOrKeyMismatch
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return 0, cerrors.ErrPaddingOrKeyMismatch
		}
	}
	return len(b) - n, nil
}
