package secret

import (
	"bytes"
	"context"
	"encoding/json"
)

// RedactedValue mirrors core.RedactedValue. Duplicated here (rather than
// imported) to keep this package free of a core dependency; the core
// package relies on this package, not the other way round.
const RedactedValue = "********"

// Decryptor is the subset of the cipher service a secret value needs to
// recover its plaintext. core.SecretProvider satisfies this structurally.
type Decryptor interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// Encryptor is the subset of the cipher service needed to seal plaintext
// into a String/Bytes value. core.SecretProvider satisfies this
// structurally.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
}

// String is an immutable wrapper over an encrypted UTF-8 string. Its zero
// value holds no ciphertext and decrypts to "".
type String struct {
	ciphertext []byte
	redact     bool
}

// NewString seals plaintext through enc and returns the resulting String.
func NewString(ctx context.Context, plaintext string, enc Encryptor) (String, error) {
	ciphertext, err := enc.Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return String{}, err
	}
	return String{ciphertext: ciphertext}, nil
}

// WrapString builds a String directly from an already-sealed ciphertext,
// as used when rehydrating a value read back from a store.
func WrapString(ciphertext []byte) String {
	return String{ciphertext: append([]byte(nil), ciphertext...)}
}

// PlainText decrypts the value in-process via dec. Callers outside the
// credential/cipher boundary should never need this.
func (s String) PlainText(ctx context.Context, dec Decryptor) (string, error) {
	if len(s.ciphertext) == 0 {
		return "", nil
	}
	plain, err := dec.Decrypt(ctx, s.ciphertext)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Ciphertext returns the sealed bytes, for persistence.
func (s String) Ciphertext() []byte {
	return append([]byte(nil), s.ciphertext...)
}

// Redacted returns a copy of s that always serialises to RedactedValue
// regardless of the ciphertext it carries.
func (s String) Redacted() String {
	s.redact = true
	return s
}

// Equal compares two String values by ciphertext identity, the only
// equality secret.String can offer without a cipher service in hand.
func (s String) Equal(other String) bool {
	return bytes.Equal(s.ciphertext, other.ciphertext)
}

func (s String) String() string {
	if s.redact || len(s.ciphertext) == 0 {
		return RedactedValue
	}
	return string(s.ciphertext)
}

func (s String) MarshalJSON() ([]byte, error) {
	if s.redact {
		return json.Marshal(RedactedValue)
	}
	return json.Marshal(s.ciphertext)
}

// Bytes is String's counterpart for binary secret payloads (key material,
// file contents).
type Bytes struct {
	ciphertext []byte
	redact     bool
}

func NewBytes(ctx context.Context, plaintext []byte, enc Encryptor) (Bytes, error) {
	ciphertext, err := enc.Encrypt(ctx, plaintext)
	if err != nil {
		return Bytes{}, err
	}
	return Bytes{ciphertext: ciphertext}, nil
}

func WrapBytes(ciphertext []byte) Bytes {
	return Bytes{ciphertext: append([]byte(nil), ciphertext...)}
}

func (b Bytes) PlainBytes(ctx context.Context, dec Decryptor) ([]byte, error) {
	if len(b.ciphertext) == 0 {
		return nil, nil
	}
	return dec.Decrypt(ctx, b.ciphertext)
}

func (b Bytes) Ciphertext() []byte {
	return append([]byte(nil), b.ciphertext...)
}

func (b Bytes) Redacted() Bytes {
	b.redact = true
	return b
}

func (b Bytes) Equal(other Bytes) bool {
	return bytes.Equal(b.ciphertext, other.ciphertext)
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	if b.redact {
		return json.Marshal(RedactedValue)
	}
	return json.Marshal(b.ciphertext)
}
