// Package core contains the canonical credentials-management domain: the
// scope/domain/specification model, credential types, the matcher algebra,
// the store and provider-registry contracts, and the resolution engine that
// ties them together. Lower-level adapters (security, store/sql,
// store/memory, fingerprint, parambind) depend on this package; core must
// not depend on any of them.
package core
