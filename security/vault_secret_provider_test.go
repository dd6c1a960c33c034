package security

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubVaultClient struct {
	encryptFn func(context.Context, VaultEncryptRequest) (VaultEncryptResponse, error)
	decryptFn func(context.Context, VaultDecryptRequest) (VaultDecryptResponse, error)
}

func (c *stubVaultClient) Encrypt(ctx context.Context, req VaultEncryptRequest) (VaultEncryptResponse, error) {
	if c.encryptFn != nil {
		return c.encryptFn(ctx, req)
	}
	return VaultEncryptResponse{Ciphertext: append([]byte("vault:"), req.Plaintext...)}, nil
}

func (c *stubVaultClient) Decrypt(ctx context.Context, req VaultDecryptRequest) (VaultDecryptResponse, error) {
	if c.decryptFn != nil {
		return c.decryptFn(ctx, req)
	}
	return VaultDecryptResponse{Plaintext: req.Ciphertext[len("vault:"):]}, nil
}

var _ VaultClient = (*stubVaultClient)(nil)

func TestVaultSecretProvider_EncryptDecryptRoundTrips(t *testing.T) {
	client := &stubVaultClient{}
	p, err := NewVaultSecretProvider(client, "transit/creds", 1)
	if err != nil {
		t.Fatalf("new vault provider: %v", err)
	}
	ciphertext, err := p.Encrypt(context.Background(), []byte("top secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !p.IsEncrypted(ciphertext) {
		t.Fatalf("expected encrypted value to carry the envelope prefix")
	}
	plaintext, err := p.Decrypt(context.Background(), ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(plaintext) != "top secret" {
		t.Fatalf("expected round-tripped plaintext, got %q", plaintext)
	}
	keyID, version := p.Metadata()
	if keyID != "transit/creds" || version != 1 {
		t.Fatalf("unexpected metadata: %q/%d", keyID, version)
	}
}

func TestNewVaultSecretProvider_RejectsInvalidKeyRef(t *testing.T) {
	client := &stubVaultClient{}
	if _, err := NewVaultSecretProvider(client, "", 1); err == nil {
		t.Fatalf("expected empty key path to be rejected")
	}
	if _, err := NewVaultSecretProvider(client, "transit/creds", 0); err == nil {
		t.Fatalf("expected non-positive version to be rejected")
	}
	if _, err := NewVaultSecretProvider(nil, "transit/creds", 1); err == nil {
		t.Fatalf("expected nil client to be rejected")
	}
}

func TestVaultSecretProvider_DecryptRejectsUnconfiguredCompatibilityKey(t *testing.T) {
	client := &stubVaultClient{}
	p, err := NewVaultSecretProvider(client, "transit/creds", 2)
	if err != nil {
		t.Fatalf("new vault provider: %v", err)
	}
	otherClient := &stubVaultClient{}
	other, err := NewVaultSecretProvider(otherClient, "transit/creds", 1)
	if err != nil {
		t.Fatalf("new vault provider: %v", err)
	}
	ciphertext, err := other.Encrypt(context.Background(), []byte("data"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := p.Decrypt(context.Background(), ciphertext); err == nil {
		t.Fatalf("expected decrypt with an unconfigured key version to be rejected")
	}
}

func TestVaultSecretProvider_DecryptAllowsConfiguredCompatibilityKey(t *testing.T) {
	client := &stubVaultClient{}
	p, err := NewVaultSecretProvider(client, "transit/creds", 2, WithVaultDecryptCompatibilityKey("transit/creds", 1))
	if err != nil {
		t.Fatalf("new vault provider: %v", err)
	}
	oldClient := &stubVaultClient{}
	old, err := NewVaultSecretProvider(oldClient, "transit/creds", 1)
	if err != nil {
		t.Fatalf("new vault provider: %v", err)
	}
	ciphertext, err := old.Encrypt(context.Background(), []byte("legacy data"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	plaintext, err := p.Decrypt(context.Background(), ciphertext)
	if err != nil {
		t.Fatalf("expected decrypt with a configured compatibility key to succeed, got %v", err)
	}
	if string(plaintext) != "legacy data" {
		t.Fatalf("unexpected plaintext: %q", plaintext)
	}
}

func TestVaultSecretProvider_AllowAnyDecryptBypassesKeyAllowlist(t *testing.T) {
	client := &stubVaultClient{}
	p, err := NewVaultSecretProvider(client, "transit/creds", 2, WithVaultAllowAnyDecryptKey(true))
	if err != nil {
		t.Fatalf("new vault provider: %v", err)
	}
	otherClient := &stubVaultClient{}
	other, err := NewVaultSecretProvider(otherClient, "transit/other", 5)
	if err != nil {
		t.Fatalf("new vault provider: %v", err)
	}
	ciphertext, err := other.Encrypt(context.Background(), []byte("data"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := p.Decrypt(context.Background(), ciphertext); err != nil {
		t.Fatalf("expected allow-any-decrypt to bypass the key allowlist, got %v", err)
	}
}

func TestVaultSecretProvider_RotationWindowBlocksEncryptOutsideRange(t *testing.T) {
	client := &stubVaultClient{}
	past := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	window := KeyRotationWindow{NotAfter: past}
	p, err := NewVaultSecretProvider(client, "transit/creds", 1,
		WithVaultRotationWindow("transit/creds", 1, window),
		WithVaultClock(func() time.Time { return time.Now() }),
	)
	if err != nil {
		t.Fatalf("new vault provider: %v", err)
	}
	if _, err := p.Encrypt(context.Background(), []byte("data")); err == nil {
		t.Fatalf("expected encrypt to be blocked outside the rotation window")
	}
}

func TestVaultSecretProvider_PropagatesClientErrors(t *testing.T) {
	client := &stubVaultClient{encryptFn: func(context.Context, VaultEncryptRequest) (VaultEncryptResponse, error) {
		return VaultEncryptResponse{}, errors.New("vault unreachable")
	}}
	p, err := NewVaultSecretProvider(client, "transit/creds", 1)
	if err != nil {
		t.Fatalf("new vault provider: %v", err)
	}
	if _, err := p.Encrypt(context.Background(), []byte("data")); err == nil {
		t.Fatalf("expected client error to propagate")
	}
}
