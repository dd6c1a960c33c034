package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-credentials-store/core"
)

type AddCredentialCommand struct {
	service *StoreMutationService
}

func NewAddCredentialCommand(service *StoreMutationService) *AddCredentialCommand {
	return &AddCredentialCommand{service: service}
}

func (c *AddCredentialCommand) Execute(ctx context.Context, msg AddCredentialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credential service is required")
	}
	out, err := c.service.AddCredential(ctx, msg.Target, msg.Store, msg.Domain, msg.Credential)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RemoveCredentialCommand struct {
	service *StoreMutationService
}

func NewRemoveCredentialCommand(service *StoreMutationService) *RemoveCredentialCommand {
	return &RemoveCredentialCommand{service: service}
}

func (c *RemoveCredentialCommand) Execute(ctx context.Context, msg RemoveCredentialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credential service is required")
	}
	out, err := c.service.RemoveCredential(ctx, msg.Target, msg.Store, msg.Domain, msg.Credential)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateCredentialCommand struct {
	service *StoreMutationService
}

func NewUpdateCredentialCommand(service *StoreMutationService) *UpdateCredentialCommand {
	return &UpdateCredentialCommand{service: service}
}

func (c *UpdateCredentialCommand) Execute(ctx context.Context, msg UpdateCredentialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credential service is required")
	}
	out, err := c.service.UpdateCredential(ctx, msg.Target, msg.Store, msg.Domain, msg.Current, msg.Replacement)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AddDomainCommand struct {
	service *StoreMutationService
}

func NewAddDomainCommand(service *StoreMutationService) *AddDomainCommand {
	return &AddDomainCommand{service: service}
}

func (c *AddDomainCommand) Execute(ctx context.Context, msg AddDomainMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: domain service is required")
	}
	out, err := c.service.AddDomain(ctx, msg.Target, msg.Store, msg.Domain, msg.Seed)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RemoveDomainCommand struct {
	service *StoreMutationService
}

func NewRemoveDomainCommand(service *StoreMutationService) *RemoveDomainCommand {
	return &RemoveDomainCommand{service: service}
}

func (c *RemoveDomainCommand) Execute(ctx context.Context, msg RemoveDomainMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: domain service is required")
	}
	out, err := c.service.RemoveDomain(ctx, msg.Target, msg.Store, msg.Domain)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateDomainCommand struct {
	service *StoreMutationService
}

func NewUpdateDomainCommand(service *StoreMutationService) *UpdateDomainCommand {
	return &UpdateDomainCommand{service: service}
}

func (c *UpdateDomainCommand) Execute(ctx context.Context, msg UpdateDomainMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: domain service is required")
	}
	out, err := c.service.UpdateDomain(ctx, msg.Target, msg.Store, msg.Current, msg.Replacement)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

// LookupQueryHandler wraps the Resolution Engine as a go-command query,
// letting a host dispatch lookups through the same registry it dispatches
// mutations through.
type LookupQueryHandler struct {
	service *StoreMutationService
}

func NewLookupQueryHandler(service *StoreMutationService) *LookupQueryHandler {
	return &LookupQueryHandler{service: service}
}

func (h *LookupQueryHandler) Query(ctx context.Context, msg LookupQuery) ([]core.Credential, error) {
	if h == nil || h.service == nil {
		return nil, commandDependencyError("command: lookup service is required")
	}
	return h.service.Lookup(ctx, msg)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
