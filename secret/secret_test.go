package secret

import (
	"context"
	"encoding/json"
	"testing"
)

type xorCipher struct{ key byte }

func (c xorCipher) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	out := make([]byte, len(plaintext))
	for i, b := range plaintext {
		out[i] = b ^ c.key
	}
	return out, nil
}

func (c xorCipher) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	return c.Encrypt(context.Background(), ciphertext)
}

func TestString_RoundTripsThroughCipher(t *testing.T) {
	enc := xorCipher{key: 0x5a}
	s, err := NewString(context.Background(), "hunter2", enc)
	if err != nil {
		t.Fatalf("new string: %v", err)
	}
	plain, err := s.PlainText(context.Background(), enc)
	if err != nil {
		t.Fatalf("plain text: %v", err)
	}
	if plain != "hunter2" {
		t.Fatalf("expected hunter2, got %q", plain)
	}
}

func TestString_WrapPreservesCiphertext(t *testing.T) {
	ciphertext := []byte{1, 2, 3, 4}
	s := WrapString(ciphertext)
	if !bytesEqual(s.Ciphertext(), ciphertext) {
		t.Fatalf("expected ciphertext to round-trip through Wrap")
	}
	ciphertext[0] = 9
	if s.Ciphertext()[0] == 9 {
		t.Fatalf("expected WrapString to defensively copy its input")
	}
}

func TestString_EmptyCiphertextDecryptsToEmptyString(t *testing.T) {
	var s String
	plain, err := s.PlainText(context.Background(), xorCipher{key: 1})
	if err != nil {
		t.Fatalf("plain text on zero value: %v", err)
	}
	if plain != "" {
		t.Fatalf("expected empty plaintext, got %q", plain)
	}
}

func TestString_RedactedMarshalsToRedactedValue(t *testing.T) {
	s := WrapString([]byte("sealed")).Redacted()
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != RedactedValue {
		t.Fatalf("expected redacted marshal, got %q", out)
	}
}

func TestString_UnredactedMarshalsCiphertext(t *testing.T) {
	s := WrapString([]byte("sealed-bytes"))
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []byte
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytesEqual(out, []byte("sealed-bytes")) {
		t.Fatalf("expected ciphertext to survive marshal, got %q", out)
	}
}

func TestString_Equal(t *testing.T) {
	a := WrapString([]byte("same"))
	b := WrapString([]byte("same"))
	c := WrapString([]byte("different"))
	if !a.Equal(b) {
		t.Fatalf("expected equal ciphertexts to compare equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected different ciphertexts to compare unequal")
	}
}

func TestBytes_RoundTripsThroughCipher(t *testing.T) {
	enc := xorCipher{key: 0x11}
	b, err := NewBytes(context.Background(), []byte{10, 20, 30}, enc)
	if err != nil {
		t.Fatalf("new bytes: %v", err)
	}
	plain, err := b.PlainBytes(context.Background(), enc)
	if err != nil {
		t.Fatalf("plain bytes: %v", err)
	}
	if !bytesEqual(plain, []byte{10, 20, 30}) {
		t.Fatalf("expected round-tripped plaintext, got %v", plain)
	}
}

func TestBytes_RedactedMarshalsToRedactedValue(t *testing.T) {
	b := WrapBytes([]byte{1, 2, 3}).Redacted()
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != RedactedValue {
		t.Fatalf("expected redacted marshal, got %q", out)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
