package core

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-credentials-store/secret"
)

// CredentialType tags the known credential variants (§1). New variants are
// added by hosts through their own descriptor struct; the core only needs
// the tag for matching and storage, never the descriptor's shape.
type CredentialType string

const (
	CredentialTypeUsernamePassword CredentialType = "username_password"
	CredentialTypeSecretText       CredentialType = "secret_text"
	CredentialTypeSecretFile       CredentialType = "secret_file"
	CredentialTypeCertificate      CredentialType = "certificate"
	CredentialTypeSSHPrivateKey    CredentialType = "ssh_private_key"
)

// CredentialStatus tracks a credential's lifecycle independently of its
// secret payload. Transitions are validated by TransitionTo; active is the
// only status a freshly constructed credential may start in.
type CredentialStatus string

const (
	CredentialStatusActive  CredentialStatus = "active"
	CredentialStatusRevoked CredentialStatus = "revoked"
	CredentialStatusExpired CredentialStatus = "expired"
)

// credentialTransitionAllowed mirrors the store's broader status-machine
// shape: revoked is terminal, expired can still be reactivated or revoked.
func credentialTransitionAllowed(current, next CredentialStatus) bool {
	allowed := map[CredentialStatus]map[CredentialStatus]struct{}{
		CredentialStatusActive: {
			CredentialStatusRevoked: {},
			CredentialStatusExpired: {},
		},
		CredentialStatusExpired: {
			CredentialStatusActive:  {},
			CredentialStatusRevoked: {},
		},
		CredentialStatusRevoked: {},
	}
	_, ok := allowed[current][next]
	return ok
}

const fipsMinPasswordLength = 14

// UsernamePasswordFields is the descriptor for CredentialTypeUsernamePassword.
// UsernameIsSecret mirrors §3's optional per-type flag: some callers treat
// the username itself as sensitive (e.g. a service account email) and want
// it redacted alongside the password.
type UsernamePasswordFields struct {
	Username         secret.String
	Password         secret.String
	UsernameIsSecret bool
}

type SecretTextFields struct {
	Text secret.String
}

type SecretFileFields struct {
	FileName string
	Content  secret.Bytes
}

type CertificateFields struct {
	KeyStore secret.Bytes
	Password secret.String
}

type SSHPrivateKeyFields struct {
	Username   string
	PrivateKey secret.String
	Passphrase secret.String
}

// Credential is an immutable record bearing one or more encrypted secret
// fields (§3). Descriptor holds the per-type fields struct matching TypeTag
// (one of the *Fields types above); the core never inspects it beyond
// storing and returning it, which is how it stays agnostic to credential
// types a host adds beyond the five built-ins.
type Credential struct {
	Scope       Scope
	ID          string
	Description string
	TypeTag     CredentialType
	Descriptor  any
	Status      CredentialStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewUsernamePasswordCredential seals username/password through enc,
// rejecting passwords under fipsMinPasswordLength characters when
// fipsAlgorithms is set, per §3's FIPS invariant.
func NewUsernamePasswordCredential(ctx context.Context, scope Scope, id, description, username, password string, usernameIsSecret, fipsAlgorithms bool, enc secret.Encryptor, now time.Time) (Credential, error) {
	if fipsAlgorithms && len(password) < fipsMinPasswordLength {
		return Credential{}, fmt.Errorf("%w: password must be at least %d characters under FIPS constraints", ErrInvalidArgument, fipsMinPasswordLength)
	}
	sealedUser, err := secret.NewString(ctx, username, enc)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	sealedPass, err := secret.NewString(ctx, password, enc)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return newCredential(scope, id, description, CredentialTypeUsernamePassword, UsernamePasswordFields{
		Username:         sealedUser,
		Password:         sealedPass,
		UsernameIsSecret: usernameIsSecret,
	}, now)
}

func NewSecretTextCredential(ctx context.Context, scope Scope, id, description, text string, enc secret.Encryptor, now time.Time) (Credential, error) {
	sealed, err := secret.NewString(ctx, text, enc)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return newCredential(scope, id, description, CredentialTypeSecretText, SecretTextFields{Text: sealed}, now)
}

func NewSecretFileCredential(ctx context.Context, scope Scope, id, description, fileName string, content []byte, enc secret.Encryptor, now time.Time) (Credential, error) {
	sealed, err := secret.NewBytes(ctx, content, enc)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return newCredential(scope, id, description, CredentialTypeSecretFile, SecretFileFields{FileName: fileName, Content: sealed}, now)
}

func NewCertificateCredential(ctx context.Context, scope Scope, id, description string, keyStore []byte, password string, enc secret.Encryptor, now time.Time) (Credential, error) {
	sealedStore, err := secret.NewBytes(ctx, keyStore, enc)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	sealedPass, err := secret.NewString(ctx, password, enc)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return newCredential(scope, id, description, CredentialTypeCertificate, CertificateFields{
		KeyStore: sealedStore,
		Password: sealedPass,
	}, now)
}

func NewSSHPrivateKeyCredential(ctx context.Context, scope Scope, id, description, username, privateKey, passphrase string, enc secret.Encryptor, now time.Time) (Credential, error) {
	sealedKey, err := secret.NewString(ctx, privateKey, enc)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	sealedPass, err := secret.NewString(ctx, passphrase, enc)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return newCredential(scope, id, description, CredentialTypeSSHPrivateKey, SSHPrivateKeyFields{
		Username:   username,
		PrivateKey: sealedKey,
		Passphrase: sealedPass,
	}, now)
}

func newCredential(scope Scope, id, description string, typeTag CredentialType, descriptor any, now time.Time) (Credential, error) {
	if id == "" {
		return Credential{}, fmt.Errorf("%w: credential id must not be empty", ErrInvalidArgument)
	}
	if !scope.Valid() {
		return Credential{}, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return Credential{
		Scope:       scope,
		ID:          id,
		Description: description,
		TypeTag:     typeTag,
		Descriptor:  descriptor,
		Status:      CredentialStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TransitionTo moves the credential to status, validating the transition
// against the allowed-edges table. Transitioning to the current status is a
// no-op that still refreshes UpdatedAt.
func (c *Credential) TransitionTo(status CredentialStatus, now time.Time) error {
	if c == nil {
		return nil
	}
	if c.Status == status {
		c.UpdatedAt = now
		return nil
	}
	if !credentialTransitionAllowed(c.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidCredentialState, c.Status, status)
	}
	c.Status = status
	c.UpdatedAt = now
	return nil
}

// Equal implements the §3 invariant that two credentials are equal iff all
// non-transient fields match. Descriptor equality is delegated to the
// descriptor type's own Equal method when it has one, since the core does
// not know the shape of host-added descriptor types.
func (c Credential) Equal(other Credential) bool {
	if c.Scope != other.Scope || c.ID != other.ID || c.Description != other.Description ||
		c.TypeTag != other.TypeTag || c.Status != other.Status {
		return false
	}
	type equatable interface{ Equal(any) bool }
	switch d := c.Descriptor.(type) {
	case UsernamePasswordFields:
		o, ok := other.Descriptor.(UsernamePasswordFields)
		return ok && d.UsernameIsSecret == o.UsernameIsSecret && d.Username.Equal(o.Username) && d.Password.Equal(o.Password)
	case SecretTextFields:
		o, ok := other.Descriptor.(SecretTextFields)
		return ok && d.Text.Equal(o.Text)
	case SecretFileFields:
		o, ok := other.Descriptor.(SecretFileFields)
		return ok && d.FileName == o.FileName && d.Content.Equal(o.Content)
	case CertificateFields:
		o, ok := other.Descriptor.(CertificateFields)
		return ok && d.Password.Equal(o.Password) && d.KeyStore.Equal(o.KeyStore)
	case SSHPrivateKeyFields:
		o, ok := other.Descriptor.(SSHPrivateKeyFields)
		return ok && d.Username == o.Username && d.PrivateKey.Equal(o.PrivateKey) && d.Passphrase.Equal(o.Passphrase)
	case equatable:
		return d.Equal(other.Descriptor)
	default:
		return c.Descriptor == nil && other.Descriptor == nil
	}
}
