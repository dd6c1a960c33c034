package sqlstore

import "github.com/goliatone/go-credentials-store/core"

var (
	_ core.MutableDomainsStore = (*Store)(nil)
	_ core.BulkChangeCapable   = (*Store)(nil)
)
