package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-credentials-store/core"
)

type fakeSecretProvider struct {
	keyID     string
	version   int
	encryptFn func(context.Context, []byte) ([]byte, error)
	decryptFn func(context.Context, []byte) ([]byte, error)
	encrypted func([]byte) bool
}

func (p *fakeSecretProvider) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if p.encryptFn != nil {
		return p.encryptFn(ctx, plaintext)
	}
	return plaintext, nil
}

func (p *fakeSecretProvider) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if p.decryptFn != nil {
		return p.decryptFn(ctx, ciphertext)
	}
	return ciphertext, nil
}

func (p *fakeSecretProvider) IsEncrypted(value []byte) bool {
	if p.encrypted != nil {
		return p.encrypted(value)
	}
	return false
}

func (p *fakeSecretProvider) Metadata() (string, int) {
	return p.keyID, p.version
}

var _ core.SecretProvider = (*fakeSecretProvider)(nil)

func TestNewFailoverSecretProvider_RejectsNilPrimary(t *testing.T) {
	if _, err := NewFailoverSecretProvider(nil); err == nil {
		t.Fatalf("expected nil primary to be rejected")
	}
}

func TestNewFailoverSecretProvider_FallbackPolicyRequiresFallback(t *testing.T) {
	primary := &fakeSecretProvider{keyID: "k1", version: 1}
	if _, err := NewFailoverSecretProvider(primary, WithSecretProviderFailurePolicy(SecretProviderFailurePolicyFallback)); err == nil {
		t.Fatalf("expected fallback policy without a fallback provider to be rejected")
	}
}

func TestFailoverSecretProvider_StrictPolicyPropagatesPrimaryFailure(t *testing.T) {
	primary := &fakeSecretProvider{encryptFn: func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("primary down")
	}}
	fallback := &fakeSecretProvider{}
	p, err := NewFailoverSecretProvider(primary, WithFallbackSecretProvider(fallback))
	if err != nil {
		t.Fatalf("new failover provider: %v", err)
	}
	if _, err := p.Encrypt(context.Background(), []byte("secret")); err == nil {
		t.Fatalf("expected strict policy to propagate the primary failure")
	}
}

func TestFailoverSecretProvider_FallbackPolicyRecoversFromPrimaryFailure(t *testing.T) {
	primary := &fakeSecretProvider{keyID: "primary", version: 1, encryptFn: func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("primary down")
	}}
	fallback := &fakeSecretProvider{keyID: "fallback", version: 2}
	var diagnostics []SecretProviderDiagnostic
	p, err := NewFailoverSecretProvider(primary,
		WithFallbackSecretProvider(fallback),
		WithSecretProviderFailurePolicy(SecretProviderFailurePolicyFallback),
		WithSecretProviderDiagnostics(func(event SecretProviderDiagnostic) { diagnostics = append(diagnostics, event) }),
		WithFailoverClock(func() time.Time { return time.Unix(0, 0) }),
	)
	if err != nil {
		t.Fatalf("new failover provider: %v", err)
	}

	ciphertext, err := p.Encrypt(context.Background(), []byte("secret"))
	if err != nil {
		t.Fatalf("expected fallback encryption to succeed, got %v", err)
	}
	if string(ciphertext) != "secret" {
		t.Fatalf("unexpected ciphertext: %q", ciphertext)
	}

	keyID, version := p.Metadata()
	if keyID != "fallback" || version != 2 {
		t.Fatalf("expected metadata to reflect the fallback provider that actually encrypted, got %q/%d", keyID, version)
	}

	if len(diagnostics) != 2 {
		t.Fatalf("expected a primary_failed and fallback_succeeded diagnostic, got %+v", diagnostics)
	}
	if diagnostics[0].Outcome != "primary_failed" || diagnostics[1].Outcome != "fallback_succeeded" {
		t.Fatalf("unexpected diagnostic sequence: %+v", diagnostics)
	}
}

func TestFailoverSecretProvider_BothProvidersFailReturnsCombinedError(t *testing.T) {
	primary := &fakeSecretProvider{decryptFn: func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("primary broken")
	}}
	fallback := &fakeSecretProvider{decryptFn: func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("fallback broken")
	}}
	p, err := NewFailoverSecretProvider(primary,
		WithFallbackSecretProvider(fallback),
		WithSecretProviderFailurePolicy(SecretProviderFailurePolicyFallback),
	)
	if err != nil {
		t.Fatalf("new failover provider: %v", err)
	}
	if _, err := p.Decrypt(context.Background(), []byte("ct")); err == nil {
		t.Fatalf("expected an error when both providers fail")
	}
}

func TestFailoverSecretProvider_IsEncryptedChecksPrimaryThenFallback(t *testing.T) {
	primary := &fakeSecretProvider{encrypted: func([]byte) bool { return false }}
	fallback := &fakeSecretProvider{encrypted: func([]byte) bool { return true }}
	p, err := NewFailoverSecretProvider(primary, WithFallbackSecretProvider(fallback))
	if err != nil {
		t.Fatalf("new failover provider: %v", err)
	}
	if !p.IsEncrypted([]byte("x")) {
		t.Fatalf("expected fallback's answer to be consulted when primary says no")
	}
}

func TestNormalizeFailurePolicy_DefaultsToStrictForUnknownValues(t *testing.T) {
	if normalizeFailurePolicy("bogus") != SecretProviderFailurePolicyStrict {
		t.Fatalf("expected unknown policy values to default to strict")
	}
	if normalizeFailurePolicy(" Fallback_Allowed ") != SecretProviderFailurePolicyFallback {
		t.Fatalf("expected case/whitespace-insensitive matching for fallback policy")
	}
}
