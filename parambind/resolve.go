// Package parambind implements §4.8's parameter binding: turning a run's
// declared parameter (name, credentialId, defaultFlag) plus a triggering
// principal into a concrete credential lookup against core.Service.
package parambind

import (
	"context"
	"regexp"
	"strings"

	"github.com/goliatone/go-credentials-store/core"
)

// Binding is a run's declared parameter value: the credential id it names
// and whether that value came from a job default rather than an explicit
// build-time override.
type Binding struct {
	CredentialID string
	Default      bool
}

// Binder looks up a run's declared binding for a parameter name.
type Binder interface {
	Binding(paramName string) (Binding, bool)
}

// Run is the minimal view over a running job the binder needs: its own
// context and authentication principal, its permission grants, who
// triggered it, and whether it is still executing (fingerprint tracking
// only happens for in-progress runs per §4.8 step 4).
type Run interface {
	ID() string
	Context() core.Context
	Auth() string
	Binder() Binder
	GrantsUseItem(principal string) bool
	GrantsUseOwn(principal string) bool
	TriggeringPrincipal() (string, bool)
	ExplicitInputUser() (string, bool)
	InProgress() bool
}

// ForRunner is implemented by a credential descriptor that needs
// contextualisation before use (§4.8 step 5), e.g. materialising a private
// key to a transient file on the executing node.
type ForRunner interface {
	ForRun(run Run) (any, bool)
}

// Outcome classifies how resolveById satisfied (or didn't satisfy) a
// request: Bound (through an explicit, non-default binding), Default
// (through a default binding or no binding at all), or Unresolved.
type Outcome string

const (
	OutcomeBound      Outcome = "bound"
	OutcomeDefault    Outcome = "default"
	OutcomeUnresolved Outcome = "unresolved"
)

var paramNamePattern = regexp.MustCompile(`^\$\{([^}]+)\}$`)

// normalizeID implements §4.8 step 1: "${name}" names a parameter; any
// other id is used as the lookup id directly, with itself as the parameter
// name fallback, matching the run's own binder lookup when no explicit
// ${...} form was used.
func normalizeID(id string) (paramName, fallbackID string) {
	if m := paramNamePattern.FindStringSubmatch(id); m != nil {
		return m[1], id
	}
	return id, id
}

// Logger receives discard notices for forRun type mismatches (§4.8 step 5).
type Logger interface {
	Warn(message string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}

// ResolveByID implements §4.8's five-step algorithm. T is the Go type the
// caller expects back after forRun contextualisation; a credential whose
// contextualised form does not assert to T is discarded and logged, not
// returned as a zero value error.
func ResolveByID[T any](ctx context.Context, engine *core.Service, run Run, logger Logger, typeTag core.CredentialType, id string, requirements []core.Requirement) (T, Outcome, error) {
	var zero T
	if logger == nil {
		logger = nopLogger{}
	}

	paramName, fallbackID := normalizeID(id)
	binding, hasBinding := Binding{}, false
	if binder := run.Binder(); binder != nil {
		binding, hasBinding = binder.Binding(paramName)
	}

	boundID := fallbackID
	isDefault := true
	if hasBinding {
		boundID = binding.CredentialID
		isDefault = binding.Default
	}

	var (
		cred  core.Credential
		found bool
		err   error
	)
	if isDefault {
		cred, found, err = resolveDefault(ctx, engine, run, typeTag, boundID, requirements)
	} else {
		cred, found, err = resolveExplicit(ctx, engine, run, typeTag, boundID, requirements)
		if err == nil && found && run.InProgress() {
			_ = engine.Track(ctx, core.TrackSubject{Kind: core.TrackSubjectRun, ID: run.ID()}, cred)
		}
	}
	if err != nil {
		return zero, OutcomeUnresolved, err
	}
	if !found {
		return zero, OutcomeUnresolved, nil
	}

	contextualised := any(cred)
	if forRunner, ok := any(cred.Descriptor).(ForRunner); ok {
		if v, ok := forRunner.ForRun(run); ok {
			contextualised = v
		}
	}
	typed, ok := contextualised.(T)
	if !ok {
		logger.Warn("parambind: forRun result did not match requested type, discarding", "credential_id", cred.ID, "type", typeTag)
		return zero, OutcomeUnresolved, nil
	}

	outcome := OutcomeBound
	if isDefault {
		outcome = OutcomeDefault
	}
	return typed, outcome, nil
}

// resolveDefault implements §4.8 step 3: lookup under runAuth, plus a
// SYSTEM re-query when the run grants USE_ITEM to a non-SYSTEM runAuth.
func resolveDefault(ctx context.Context, engine *core.Service, run Run, typeTag core.CredentialType, id string, requirements []core.Requirement) (core.Credential, bool, error) {
	runAuth := strings.TrimSpace(run.Auth())
	if runAuth == "" {
		runAuth = core.SystemPrincipal
	}

	candidates, err := engine.Lookup(ctx, typeTag, run.Context(), runAuth, requirements, nil)
	if err != nil {
		return core.Credential{}, false, err
	}
	if cred, ok := findByID(candidates, id); ok {
		return cred, true, nil
	}

	if runAuth != core.SystemPrincipal && run.GrantsUseItem(runAuth) {
		systemCandidates, err := engine.Lookup(ctx, typeTag, run.Context(), core.SystemPrincipal, requirements, nil)
		if err != nil {
			return core.Credential{}, false, err
		}
		if cred, ok := findByID(systemCandidates, id); ok {
			return cred, true, nil
		}
	}
	return core.Credential{}, false, nil
}

// resolveExplicit implements §4.8 step 4: walk the triggering principal,
// the run's explicit input user, and (when the triggering principal holds
// USE_ITEM) runAuth and SYSTEM, returning the first id match.
func resolveExplicit(ctx context.Context, engine *core.Service, run Run, typeTag core.CredentialType, id string, requirements []core.Requirement) (core.Credential, bool, error) {
	principal, hasTrigger := run.TriggeringPrincipal()

	if hasTrigger && run.GrantsUseOwn(principal) {
		if cred, ok, err := lookupAndFind(ctx, engine, typeTag, run.Context(), principal, requirements, id); err != nil || ok {
			return cred, ok, err
		}
	}

	if inputUser, ok := run.ExplicitInputUser(); ok {
		if cred, found, err := lookupAndFind(ctx, engine, typeTag, run.Context(), inputUser, requirements, id); err != nil || found {
			return cred, found, err
		}
	}

	if hasTrigger && run.GrantsUseItem(principal) {
		runAuth := strings.TrimSpace(run.Auth())
		if runAuth == "" {
			runAuth = core.SystemPrincipal
		}
		if cred, found, err := lookupAndFind(ctx, engine, typeTag, run.Context(), runAuth, requirements, id); err != nil || found {
			return cred, found, err
		}
		if cred, found, err := lookupAndFind(ctx, engine, typeTag, run.Context(), core.SystemPrincipal, requirements, id); err != nil || found {
			return cred, found, err
		}
	}
	return core.Credential{}, false, nil
}

func lookupAndFind(ctx context.Context, engine *core.Service, typeTag core.CredentialType, target core.Context, principal string, requirements []core.Requirement, id string) (core.Credential, bool, error) {
	candidates, err := engine.Lookup(ctx, typeTag, target, principal, requirements, nil)
	if err != nil {
		return core.Credential{}, false, err
	}
	cred, ok := findByID(candidates, id)
	return cred, ok, nil
}

func findByID(credentials []core.Credential, id string) (core.Credential, bool) {
	for _, c := range credentials {
		if c.ID == id {
			return c, true
		}
	}
	return core.Credential{}, false
}
