// Package envelope serializes the wrapped key, IV and ciphertext produced by
// one encryption into a single self-describing blob.
//
// Layout:
//
//	"X5CE" | version (1 byte) | key length (uint32 BE) | wrapped key | IV (16 bytes) | payload
//
// The payload runs to the end of the input, so files can be streamed after
// WriteHeader and read back after ReadHeader.
package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

const (
	// Magic identifies an envelope.
	Magic = "X5CE"

	// Version is the only layout this package reads and writes.
	Version byte = 0x01

	// IVSize is the length of the stored IV.
	IVSize = 16

	// MaxWrappedKeySize bounds the wrapped key length (a 65536-bit RSA modulus).
	MaxWrappedKeySize = 8192

	preambleSize = len(Magic) + 1 + 4
)

// Envelope is the in-memory form of an encrypted text.
type Envelope struct {
	WrappedKey []byte
	IV         []byte
	Payload    []byte
}

// HeaderSize returns the number of bytes WriteHeader emits for a wrapped key of n bytes.
func HeaderSize(n int) int {
	return preambleSize + n + IVSize
}

// WriteHeader writes everything but the payload.
func WriteHeader(w io.Writer, wrappedKey, iv []byte) error {
	if len(wrappedKey) == 0 || len(wrappedKey) > MaxWrappedKeySize {
		return fmt.Errorf("wrapped key length %d out of range", len(wrappedKey))
	}
	if len(iv) != IVSize {
		return fmt.Errorf("IV length %d, expected %d", len(iv), IVSize)
	}

	hdr := make([]byte, 0, HeaderSize(len(wrappedKey)))
	hdr = append(hdr, Magic...)
	hdr = append(hdr, Version)
	hdr = binary.BigEndian.AppendUint32(hdr, uint32(len(wrappedKey)))
	hdr = append(hdr, wrappedKey...)
	hdr = append(hdr, iv...)
	_, err := w.Write(hdr)
	return err
}

// ReadHeader reads the preamble, wrapped key and IV, leaving r at the payload.
// Malformed input yields ErrInvalidEnvelope; other read errors are returned as is.
func ReadHeader(r io.Reader) (wrappedKey, iv []byte, err error) {
	var pre [preambleSize]byte
	if err := readFull(r, pre[:], "preamble"); err != nil {
		return nil, nil, err
	}
	if string(pre[:len(Magic)]) != Magic {
		return nil, nil, fmt.Errorf("%w: missing %q preamble", cerrors.ErrInvalidEnvelope, Magic)
	}
	if v := pre[len(Magic)]; v != Version {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", cerrors.ErrInvalidEnvelope, v)
	}
	n := binary.BigEndian.Uint32(pre[len(Magic)+1:])
	if n == 0 || n > MaxWrappedKeySize {
		return nil, nil, fmt.Errorf("%w: wrapped key length %d out of range", cerrors.ErrInvalidEnvelope, n)
	}

	wrappedKey = make([]byte, n)
	if err := readFull(r, wrappedKey, "wrapped key"); err != nil {
		return nil, nil, err
	}
	iv = make([]byte, IVSize)
	if err := readFull(r, iv, "IV"); err != nil {
		return nil, nil, err
	}
	return wrappedKey, iv, nil
}

func readFull(r io.Reader, buf []byte, field string) error {
	_, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", cerrors.ErrInvalidEnvelope, field)
	}
	return err
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(HeaderSize(len(e.WrappedKey)) + len(e.Payload))
	if err := WriteHeader(&buf, e.WrappedKey, e.IV); err != nil {
		return nil, err
	}
	buf.Write(e.Payload)
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The payload is copied.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	wrappedKey, iv, err := ReadHeader(r)
	if err != nil {
		return err
	}
	rest := data[len(data)-r.Len():]
	e.WrappedKey = wrappedKey
	e.IV = iv
	e.Payload = append([]byte(nil), rest...)
	return nil
}

// Encode returns the base64 text form used for clipboard and console output.
func (e *Envelope) Encode() (string, error) {
	data, err := e.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode parses the text form produced by Encode. Surrounding whitespace is ignored.
func Decode(s string) (*Envelope, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: not base64: %v", cerrors.ErrInvalidEnvelope, err)
	}
	var e Envelope
	if err := e.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &e, nil
}
