// Package sqlstore provides a bun-backed MutableDomainsStore: one row per
// store context holding the §6 document layout as a JSON payload, persisted
// atomically via a transactional upsert in place of the semantic
// write-to-temp-then-rename the format description describes.
package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

// documentRecord is the single table this package needs: one row per store
// context, the whole domain/credential tree serialised into Payload. A
// relational domains/credentials schema was considered and rejected (see
// DESIGN.md) since the persisted format is explicitly "one document per
// store context" rather than a normalised relational shape.
type documentRecord struct {
	bun.BaseModel `bun:"table:credential_store_documents,alias:csd"`

	ID        string    `bun:"id,pk"`
	Payload   []byte    `bun:"payload,notnull,type:jsonb"`
	Version   int       `bun:"version,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// document is the semantic payload stored in documentRecord.Payload (§6):
//
//	store:
//	  domains:
//	    - name: <string | null>
//	      description: <string>
//	      specifications: [ {kind, params...}, ... ]
//	      credentials: [ ... ]
type document struct {
	Domains []documentDomain `json:"domains"`
}

type documentDomain struct {
	Name           *string                 `json:"name"`
	Description    string                  `json:"description"`
	Specifications []documentSpecification `json:"specifications,omitempty"`
	Credentials    []documentCredential    `json:"credentials"`
}

type documentSpecification struct {
	Kind   string   `json:"kind"`
	Params []string `json:"params"`
}

// documentCredential carries the type-specific encrypted fields in Fields
// (ciphertext, base64-encoded through the standard []byte JSON encoding)
// and any non-secret descriptor fields (a file name, a "username is
// secret" flag) in Plain.
type documentCredential struct {
	Type        string         `json:"type"`
	Scope       string         `json:"scope"`
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Fields      map[string][]byte `json:"fields,omitempty"`
	Plain       map[string]any    `json:"plain,omitempty"`
}
