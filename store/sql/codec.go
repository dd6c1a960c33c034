package sqlstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-credentials-store/core"
	"github.com/goliatone/go-credentials-store/secret"
)

// parseDocument decodes a persisted payload into a document, transparently
// upgrading the backward-compatible flat list form (§6): a bare JSON array
// of credentials with no domains wrapper is lifted into the global domain.
// The second return value reports whether the upgrade happened, so the
// caller can force a save to persist the new shape.
func parseDocument(payload []byte) (document, bool, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return document{Domains: []documentDomain{{Credentials: []documentCredential{}}}}, false, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var flat []documentCredential
		if err := json.Unmarshal(payload, &flat); err != nil {
			return document{}, false, fmt.Errorf("sqlstore: decode flat credential list: %w", err)
		}
		return document{Domains: []documentDomain{{Credentials: flat}}}, true, nil
	}
	var doc document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return document{}, false, fmt.Errorf("sqlstore: decode store document: %w", err)
	}
	if len(doc.Domains) == 0 {
		doc.Domains = []documentDomain{{Credentials: []documentCredential{}}}
	}
	return doc, false, nil
}

func encodeDomain(d core.Domain, creds []core.Credential) (documentDomain, error) {
	out := documentDomain{
		Name:        d.Name,
		Description: d.Description,
		Credentials: make([]documentCredential, 0, len(creds)),
	}
	for _, spec := range d.Specifications {
		out.Specifications = append(out.Specifications, encodeSpecification(spec))
	}
	for _, c := range creds {
		dc, err := encodeCredential(c)
		if err != nil {
			return documentDomain{}, err
		}
		out.Credentials = append(out.Credentials, dc)
	}
	return out, nil
}

func decodeDomain(dd documentDomain) (core.Domain, []core.Credential, error) {
	d := core.Domain{
		Name:        dd.Name,
		Description: dd.Description,
	}
	for _, spec := range dd.Specifications {
		decoded, err := decodeSpecification(spec)
		if err != nil {
			return core.Domain{}, nil, err
		}
		d.Specifications = append(d.Specifications, decoded)
	}
	creds := make([]core.Credential, 0, len(dd.Credentials))
	for _, dc := range dd.Credentials {
		c, err := decodeCredential(dc)
		if err != nil {
			return core.Domain{}, nil, err
		}
		creds = append(creds, c)
	}
	return d, creds, nil
}

func encodeSpecification(spec core.Specification) documentSpecification {
	out := documentSpecification{Kind: string(spec.Kind())}
	if p, ok := spec.(core.SpecificationParams); ok {
		out.Params = p.Params()
		return out
	}
	out.Params = []string{spec.Describe()}
	return out
}

func decodeSpecification(ds documentSpecification) (core.Specification, error) {
	switch core.RequirementKind(ds.Kind) {
	case core.RequirementHostname:
		if len(ds.Params) != 1 {
			return nil, fmt.Errorf("%w: hostname specification requires exactly one param", core.ErrInvalidSpecification)
		}
		return core.NewHostnameSpec(ds.Params[0])
	case core.RequirementScheme:
		return core.NewSchemeSpec(ds.Params...)
	case core.RequirementPath:
		return core.NewPathSpec(ds.Params...)
	case core.RequirementURI:
		return core.NewURISpec(ds.Params...)
	default:
		return nil, fmt.Errorf("%w: unknown specification kind %q", core.ErrInvalidSpecification, ds.Kind)
	}
}

func encodeCredential(c core.Credential) (documentCredential, error) {
	fields, plain, err := encodeDescriptor(c.TypeTag, c.Descriptor)
	if err != nil {
		return documentCredential{}, err
	}
	return documentCredential{
		Type:        string(c.TypeTag),
		Scope:       string(c.Scope),
		ID:          c.ID,
		Description: c.Description,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Fields:      fields,
		Plain:       plain,
	}, nil
}

func decodeCredential(dc documentCredential) (core.Credential, error) {
	descriptor, err := decodeDescriptor(core.CredentialType(dc.Type), dc.Fields, dc.Plain)
	if err != nil {
		return core.Credential{}, err
	}
	scope, err := core.ParseScope(dc.Scope)
	if err != nil {
		return core.Credential{}, err
	}
	return core.Credential{
		Scope:       scope,
		ID:          dc.ID,
		Description: dc.Description,
		TypeTag:     core.CredentialType(dc.Type),
		Descriptor:  descriptor,
		Status:      core.CredentialStatus(dc.Status),
		CreatedAt:   dc.CreatedAt,
		UpdatedAt:   dc.UpdatedAt,
	}, nil
}

// encodeDescriptor splits a Credential's typed Descriptor into its secret
// fields (Ciphertext() bytes, marshalled as-is) and any plain fields a
// host-visible document may carry without exposing secret material.
func encodeDescriptor(typeTag core.CredentialType, descriptor any) (map[string][]byte, map[string]any, error) {
	switch typeTag {
	case core.CredentialTypeUsernamePassword:
		d, ok := descriptor.(core.UsernamePasswordFields)
		if !ok {
			return nil, nil, fmt.Errorf("sqlstore: descriptor mismatch for %s", typeTag)
		}
		return map[string][]byte{
				"username": d.Username.Ciphertext(),
				"password": d.Password.Ciphertext(),
			}, map[string]any{
				"username_is_secret": d.UsernameIsSecret,
			}, nil
	case core.CredentialTypeSecretText:
		d, ok := descriptor.(core.SecretTextFields)
		if !ok {
			return nil, nil, fmt.Errorf("sqlstore: descriptor mismatch for %s", typeTag)
		}
		return map[string][]byte{"text": d.Text.Ciphertext()}, nil, nil
	case core.CredentialTypeSecretFile:
		d, ok := descriptor.(core.SecretFileFields)
		if !ok {
			return nil, nil, fmt.Errorf("sqlstore: descriptor mismatch for %s", typeTag)
		}
		return map[string][]byte{"content": d.Content.Ciphertext()}, map[string]any{
			"file_name": d.FileName,
		}, nil
	case core.CredentialTypeCertificate:
		d, ok := descriptor.(core.CertificateFields)
		if !ok {
			return nil, nil, fmt.Errorf("sqlstore: descriptor mismatch for %s", typeTag)
		}
		return map[string][]byte{
			"key_store": d.KeyStore.Ciphertext(),
			"password":  d.Password.Ciphertext(),
		}, nil, nil
	case core.CredentialTypeSSHPrivateKey:
		d, ok := descriptor.(core.SSHPrivateKeyFields)
		if !ok {
			return nil, nil, fmt.Errorf("sqlstore: descriptor mismatch for %s", typeTag)
		}
		return map[string][]byte{
				"private_key": d.PrivateKey.Ciphertext(),
				"passphrase":  d.Passphrase.Ciphertext(),
			}, map[string]any{
				"username": d.Username,
			}, nil
	default:
		return nil, nil, fmt.Errorf("sqlstore: unsupported credential type %q", typeTag)
	}
}

func decodeDescriptor(typeTag core.CredentialType, fields map[string][]byte, plain map[string]any) (any, error) {
	switch typeTag {
	case core.CredentialTypeUsernamePassword:
		return core.UsernamePasswordFields{
			Username:         secret.WrapString(fields["username"]),
			Password:         secret.WrapString(fields["password"]),
			UsernameIsSecret: plainBool(plain, "username_is_secret"),
		}, nil
	case core.CredentialTypeSecretText:
		return core.SecretTextFields{Text: secret.WrapString(fields["text"])}, nil
	case core.CredentialTypeSecretFile:
		return core.SecretFileFields{
			FileName: plainString(plain, "file_name"),
			Content:  secret.WrapBytes(fields["content"]),
		}, nil
	case core.CredentialTypeCertificate:
		return core.CertificateFields{
			KeyStore: secret.WrapBytes(fields["key_store"]),
			Password: secret.WrapString(fields["password"]),
		}, nil
	case core.CredentialTypeSSHPrivateKey:
		return core.SSHPrivateKeyFields{
			Username:   plainString(plain, "username"),
			PrivateKey: secret.WrapString(fields["private_key"]),
			Passphrase: secret.WrapString(fields["passphrase"]),
		}, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported credential type %q", typeTag)
	}
}

func plainBool(plain map[string]any, key string) bool {
	v, _ := plain[key].(bool)
	return v
}

func plainString(plain map[string]any, key string) string {
	v, _ := plain[key].(string)
	return v
}

// redactDocument replaces every credential's secret fields with
// core.RedactedValue (§6: "replaces secret payloads ... only if an
// extended-read flag is set for the reader"). Used by RenderDocument when
// the caller holds only Credentials.View via extended-read, not full use.
func redactDocument(doc document) document {
	out := document{Domains: make([]documentDomain, len(doc.Domains))}
	for i, dd := range doc.Domains {
		redacted := dd
		redacted.Credentials = make([]documentCredential, len(dd.Credentials))
		for j, dc := range dd.Credentials {
			rc := dc
			rc.Fields = redactFields(dc.Fields)
			redacted.Credentials[j] = rc
		}
		out.Domains[i] = redacted
	}
	return out
}

func redactFields(fields map[string][]byte) map[string][]byte {
	if len(fields) == 0 {
		return fields
	}
	out := make(map[string][]byte, len(fields))
	for k := range fields {
		out[k] = []byte(core.RedactedValue)
	}
	return out
}
