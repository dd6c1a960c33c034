// Package command implements the CQRS surface over core.Service and its
// stores: one Message+Command pair per Store mutation named in §4.5, plus a
// Lookup query wrapping the Resolution Engine, dispatched via go-command.
package command

import (
	"fmt"

	"github.com/goliatone/go-credentials-store/core"
)

const (
	TypeAddCredential    = "credentials.command.credential.add"
	TypeRemoveCredential = "credentials.command.credential.remove"
	TypeUpdateCredential = "credentials.command.credential.update"
	TypeAddDomain        = "credentials.command.domain.add"
	TypeRemoveDomain     = "credentials.command.domain.remove"
	TypeUpdateDomain     = "credentials.command.domain.update"
	TypeLookup           = "credentials.query.lookup"
)

type AddCredentialMessage struct {
	Target     core.Context
	Store      core.MutableStore
	Domain     core.Domain
	Credential core.Credential
}

func (AddCredentialMessage) Type() string { return TypeAddCredential }

func (m AddCredentialMessage) Validate() error {
	if m.Store == nil {
		return fmt.Errorf("command: store is required")
	}
	if m.Credential.ID == "" {
		return fmt.Errorf("command: credential id is required")
	}
	return nil
}

type RemoveCredentialMessage struct {
	Target     core.Context
	Store      core.MutableStore
	Domain     core.Domain
	Credential core.Credential
}

func (RemoveCredentialMessage) Type() string { return TypeRemoveCredential }

func (m RemoveCredentialMessage) Validate() error {
	if m.Store == nil {
		return fmt.Errorf("command: store is required")
	}
	if m.Credential.ID == "" {
		return fmt.Errorf("command: credential id is required")
	}
	return nil
}

type UpdateCredentialMessage struct {
	Target      core.Context
	Store       core.MutableStore
	Domain      core.Domain
	Current     core.Credential
	Replacement core.Credential
}

func (UpdateCredentialMessage) Type() string { return TypeUpdateCredential }

func (m UpdateCredentialMessage) Validate() error {
	if m.Store == nil {
		return fmt.Errorf("command: store is required")
	}
	if m.Current.ID == "" || m.Replacement.ID == "" {
		return fmt.Errorf("command: current and replacement credential ids are required")
	}
	return nil
}

type AddDomainMessage struct {
	Target core.Context
	Store  core.MutableDomainsStore
	Domain core.Domain
	Seed   []core.Credential
}

func (AddDomainMessage) Type() string { return TypeAddDomain }

func (m AddDomainMessage) Validate() error {
	if m.Store == nil {
		return fmt.Errorf("command: domains store is required")
	}
	return nil
}

type RemoveDomainMessage struct {
	Target core.Context
	Store  core.MutableDomainsStore
	Domain core.Domain
}

func (RemoveDomainMessage) Type() string { return TypeRemoveDomain }

func (m RemoveDomainMessage) Validate() error {
	if m.Store == nil {
		return fmt.Errorf("command: domains store is required")
	}
	return nil
}

type UpdateDomainMessage struct {
	Target      core.Context
	Store       core.MutableDomainsStore
	Current     core.Domain
	Replacement core.Domain
}

func (UpdateDomainMessage) Type() string { return TypeUpdateDomain }

func (m UpdateDomainMessage) Validate() error {
	if m.Store == nil {
		return fmt.Errorf("command: domains store is required")
	}
	return nil
}

// LookupQuery wraps §4.7's five-step resolution as a go-command Querier
// message, letting a host dispatch lookups through the same registry it
// dispatches mutations through.
type LookupQuery struct {
	TypeTag      core.CredentialType
	Target       core.Context
	Principal    string
	Requirements []core.Requirement
	Matcher      core.Matcher
}

func (LookupQuery) Type() string { return TypeLookup }

func (m LookupQuery) Validate() error {
	if m.TypeTag == "" {
		return fmt.Errorf("command: credential type is required")
	}
	return nil
}
