// Package fingerprint implements the content-hash usage ledger (§4.9): a
// map from a credential's fingerprint to the append-only list of facets
// recording where and when it was used.
package fingerprint

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-credentials-store/core"
)

// RunFacet records a single use during a specific run; runs never collapse,
// each Track call for TrackSubjectRun appends a new entry.
type RunFacet struct {
	RunID     string
	Timestamp time.Time
}

// ItemFacet records cumulative use by a named pipeline/item, collapsing
// repeated uses into a single FirstSeen/LastSeen span.
type ItemFacet struct {
	ItemFullName string
	FirstSeen    time.Time
	LastSeen     time.Time
}

// NodeFacet is ItemFacet's counterpart keyed by build agent/node name.
type NodeFacet struct {
	NodeName  string
	FirstSeen time.Time
	LastSeen  time.Time
}

// Record is the ledger entry for one fingerprint: the three facet kinds
// accumulated across every Track call that hashed to it.
type Record struct {
	Fingerprint string
	Runs        []RunFacet
	Items       []ItemFacet
	Nodes       []NodeFacet
}

// Listener observes every Track call, including no-op ones made while
// fingerprintEnabled is false (§4.9 "listeners still fire").
type Listener func(ctx context.Context, subject core.TrackSubject, fingerprint string, credential core.Credential)

// Ledger is the MD5-keyed usage ledger. HashFunc defaults to md5.Sum but is
// exposed so a host can swap in a different content-identity function
// (e.g. a SHA-256 compatibility shim) without changing the Track contract.
type Ledger struct {
	mu      sync.Mutex
	records map[string]*Record
	clock   func() time.Time

	HashFunc func([]byte) [16]byte

	enabled   bool
	listeners []Listener
}

// Option configures a Ledger at construction.
type Option func(*Ledger)

func WithEnabled(enabled bool) Option {
	return func(l *Ledger) { l.enabled = enabled }
}

func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func WithListener(listener Listener) Option {
	return func(l *Ledger) {
		if listener != nil {
			l.listeners = append(l.listeners, listener)
		}
	}
}

// New builds a Ledger. fingerprintEnabled defaults to true, matching §6's
// documented default.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		records:  map[string]*Record{},
		clock:    func() time.Time { return time.Now().UTC() },
		HashFunc: md5.Sum,
		enabled:  true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(l)
	}
	return l
}

// SetEnabled flips the fingerprintEnabled toggle at runtime, mirroring
// Config.FingerprintEnabled being reloadable.
func (l *Ledger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Fingerprint computes the MD5 hash over credential's redacted, deterministic
// serialised form (§4.9): scope, id, description, type, status, plus the
// non-secret descriptor fields, with every secret field represented by the
// literal RedactedValue token rather than its plaintext or ciphertext. Two
// credentials with the same metadata fingerprint identically regardless of
// what their secret payload actually decrypts to.
func (l *Ledger) Fingerprint(credential core.Credential) string {
	serialised := redactedSerialisation(credential)
	sum := l.hashFunc()([]byte(serialised))
	return fmt.Sprintf("%x", sum)
}

func (l *Ledger) hashFunc() func([]byte) [16]byte {
	if l.HashFunc != nil {
		return l.HashFunc
	}
	return md5.Sum
}

func redactedSerialisation(c core.Credential) string {
	fields := []string{
		string(c.Scope), c.ID, c.Description, string(c.TypeTag), string(c.Status),
	}
	switch d := c.Descriptor.(type) {
	case core.UsernamePasswordFields:
		fields = append(fields, fmt.Sprintf("username_is_secret=%v", d.UsernameIsSecret), core.RedactedValue, core.RedactedValue)
	case core.SecretTextFields:
		fields = append(fields, core.RedactedValue)
	case core.SecretFileFields:
		fields = append(fields, d.FileName, core.RedactedValue)
	case core.CertificateFields:
		fields = append(fields, core.RedactedValue, core.RedactedValue)
	case core.SSHPrivateKeyFields:
		fields = append(fields, d.Username, core.RedactedValue, core.RedactedValue)
	}
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += "|"
		}
		out += f
	}
	return out
}

// Track records a use of credential against subject. Item and node
// facets collapse any prior facet for the same item/node name, carrying over
// FirstSeen; run facets simply append. Tracking is a global toggle: when
// disabled, Track is a no-op on ledger state but listeners still fire.
func (l *Ledger) Track(ctx context.Context, subject core.TrackSubject, credential core.Credential) error {
	fp := l.Fingerprint(credential)

	l.mu.Lock()
	enabled := l.enabled
	now := l.clock()
	if enabled {
		record, ok := l.records[fp]
		if !ok {
			record = &Record{Fingerprint: fp}
			l.records[fp] = record
		}
		switch subject.Kind {
		case core.TrackSubjectRun:
			record.Runs = append(record.Runs, RunFacet{RunID: subject.ID, Timestamp: now})
		case core.TrackSubjectItem:
			record.Items = collapseItemFacet(record.Items, subject.ID, now)
		case core.TrackSubjectNode:
			record.Nodes = collapseNodeFacet(record.Nodes, subject.ID, now)
		}
	}
	listeners := append([]Listener(nil), l.listeners...)
	l.mu.Unlock()

	for _, listener := range listeners {
		listener(ctx, subject, fp, credential)
	}
	return nil
}

func collapseItemFacet(facets []ItemFacet, itemFullName string, at time.Time) []ItemFacet {
	firstSeen := at
	out := make([]ItemFacet, 0, len(facets)+1)
	for _, f := range facets {
		if f.ItemFullName == itemFullName {
			firstSeen = f.FirstSeen
			continue
		}
		out = append(out, f)
	}
	out = append(out, ItemFacet{ItemFullName: itemFullName, FirstSeen: firstSeen, LastSeen: at})
	return out
}

func collapseNodeFacet(facets []NodeFacet, nodeName string, at time.Time) []NodeFacet {
	firstSeen := at
	out := make([]NodeFacet, 0, len(facets)+1)
	for _, f := range facets {
		if f.NodeName == nodeName {
			firstSeen = f.FirstSeen
			continue
		}
		out = append(out, f)
	}
	out = append(out, NodeFacet{NodeName: nodeName, FirstSeen: firstSeen, LastSeen: at})
	return out
}

// RecordFor returns the ledger entry for credential's current fingerprint,
// if any use has been tracked for it.
func (l *Ledger) RecordFor(credential core.Credential) (Record, bool) {
	fp := l.Fingerprint(credential)
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.records[fp]
	if !ok {
		return Record{}, false
	}
	return cloneRecord(*record), true
}

func cloneRecord(r Record) Record {
	out := Record{Fingerprint: r.Fingerprint}
	out.Runs = append(out.Runs, r.Runs...)
	out.Items = append(out.Items, r.Items...)
	out.Nodes = append(out.Nodes, r.Nodes...)
	sort.Slice(out.Runs, func(i, j int) bool { return out.Runs[i].Timestamp.Before(out.Runs[j].Timestamp) })
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].ItemFullName < out.Items[j].ItemFullName })
	sort.Slice(out.Nodes, func(i, j int) bool { return out.Nodes[i].NodeName < out.Nodes[j].NodeName })
	return out
}

var _ core.FingerprintTracker = (*Ledger)(nil)
