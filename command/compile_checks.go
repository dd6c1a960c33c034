package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-credentials-store/core"
)

var (
	_ gocmd.Commander[AddCredentialMessage]    = (*AddCredentialCommand)(nil)
	_ gocmd.Commander[RemoveCredentialMessage] = (*RemoveCredentialCommand)(nil)
	_ gocmd.Commander[UpdateCredentialMessage] = (*UpdateCredentialCommand)(nil)
	_ gocmd.Commander[AddDomainMessage]        = (*AddDomainCommand)(nil)
	_ gocmd.Commander[RemoveDomainMessage]     = (*RemoveDomainCommand)(nil)
	_ gocmd.Commander[UpdateDomainMessage]     = (*UpdateDomainCommand)(nil)
	_ gocmd.Querier[LookupQuery, []core.Credential] = (*LookupQueryHandler)(nil)
)
