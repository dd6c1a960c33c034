package sqlstore

import (
	"encoding/json"
	"fmt"
)

// RenderDocument serialises a Store's current in-memory state into the §6
// document format for an external reader (the URL surface's "bulk get
// config" endpoint). Normal serialisation emits ciphertext as-is; when
// extendedRead is true — the caller holds Credentials.View only, not a
// use permission — every secret field is replaced with core.RedactedValue
// before marshalling.
func RenderDocument(s *Store, extendedRead bool) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("sqlstore: store is required")
	}
	s.mu.RLock()
	doc := document{Domains: make([]documentDomain, 0, len(s.domains))}
	for _, d := range s.domains {
		dd, err := encodeDomain(d, s.credentials[d.URL()])
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		doc.Domains = append(doc.Domains, dd)
	}
	s.mu.RUnlock()

	if extendedRead {
		doc = redactDocument(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}
