package core

import "testing"

func TestRedactCiphertextTokens_ReplacesEnvelopeTokens(t *testing.T) {
	doc := []byte(`{"password":"services.secret.v1:abc123+/==_.:{}\"-end","other":"plain"}`)
	out := string(RedactCiphertextTokens(doc))
	if out == string(doc) {
		t.Fatalf("expected the ciphertext token to be replaced")
	}
	if !contains(out, RedactedValue) {
		t.Fatalf("expected output to contain the redacted marker")
	}
	if !contains(out, "plain") {
		t.Fatalf("expected non-secret fields to survive redaction")
	}
}

func TestRedactCiphertextTokens_IdempotentOnSecondPass(t *testing.T) {
	doc := []byte(`services.secret.v1:abc123`)
	first := RedactCiphertextTokens(doc)
	second := RedactCiphertextTokens(first)
	if string(first) != string(second) {
		t.Fatalf("expected redaction to be idempotent")
	}
}

func TestRedactSensitiveMap_RedactsSensitiveKeysOnly(t *testing.T) {
	input := map[string]any{
		"password":  "hunter2",
		"id":        "cred-1",
		"nested":    map[string]any{"api_key": "xyz", "domain": "prod"},
		"unrelated": "value",
	}
	out := RedactSensitiveMap(input)
	if out["password"] != RedactedValue {
		t.Fatalf("expected password to be redacted")
	}
	if out["id"] != "cred-1" {
		t.Fatalf("expected traceability key id to survive redaction")
	}
	nested := out["nested"].(map[string]any)
	if nested["api_key"] != RedactedValue {
		t.Fatalf("expected nested api_key to be redacted")
	}
	if nested["domain"] != "prod" {
		t.Fatalf("expected nested traceability key to survive redaction")
	}
	if out["unrelated"] != "value" {
		t.Fatalf("expected non-sensitive key to survive redaction")
	}
}

func TestRedactSensitiveMap_RecursesIntoSlices(t *testing.T) {
	input := map[string]any{
		"tokens": []any{
			map[string]any{"secret": "shh"},
		},
	}
	out := RedactSensitiveMap(input)
	list := out["tokens"].([]any)
	item := list[0].(map[string]any)
	if item["secret"] != RedactedValue {
		t.Fatalf("expected secret inside a nested slice to be redacted")
	}
}

func TestRedactSensitiveMap_EmptyInputReturnsEmptyMap(t *testing.T) {
	out := RedactSensitiveMap(nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected an empty, non-nil map for empty input")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
