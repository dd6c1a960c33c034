package core

import "strings"

// ContextKind tags the known context kinds in the hierarchy (§9 DESIGN
// NOTES). New kinds are added by registering a ContextResolver, not by
// extending this enum — computer/node contexts delegate to the root and so
// are represented as ContextKindRoot with a Node annotation, never as a
// fifth kind.
type ContextKind string

const (
	ContextKindRoot   ContextKind = "root"
	ContextKindFolder ContextKind = "folder"
	ContextKindLeaf   ContextKind = "leaf"
	ContextKindUser   ContextKind = "user"
)

// Context is an opaque node in the hierarchy that stores may be attached
// to. It intentionally carries no behaviour of its own beyond ancestry
// traversal: callers reach real containers (jobs, folders, users) through a
// ContextResolver (context_resolver.go) and only pass the resulting Context
// value into the resolution engine.
type Context struct {
	Kind     ContextKind
	ID       string
	Parent   *Context
	NodeName string // set when this leaf/root lookup originates on a specific build agent
}

// Root walks Parent pointers up to the root context.
func (c Context) Root() Context {
	cur := c
	for cur.Parent != nil {
		cur = *cur.Parent
	}
	return cur
}

// IsDescendantOrSelf reports whether c is storeCtx or a descendant of it,
// i.e. storeCtx is reached by walking up c's Parent chain.
// Used by Scope.Visible for GLOBAL scope: a GLOBAL credential defined at
// storeCtx is visible to any viewerCtx that is storeCtx or a descendant of
// it.
func (c Context) IsDescendantOrSelf(storeCtx Context) bool {
	cur := &c
	for cur != nil {
		if contextEqual(*cur, storeCtx) {
			return true
		}
		cur = cur.Parent
	}
	return false
}

func contextEqual(a, b Context) bool {
	return a.Kind == b.Kind && a.ID == b.ID
}

// parentForTraversal returns the immediate parent context and whether one exists,
// applying the §4.7 storesOf special cases: computer/node contexts (Kind
// root with a NodeName set) delegate directly to the bare root.
func (c Context) parentForTraversal() (Context, bool) {
	if c.NodeName != "" && c.Kind == ContextKindRoot {
		return Context{Kind: ContextKindRoot}, true
	}
	if c.Parent == nil {
		return Context{}, false
	}
	return *c.Parent, true
}

// NullIfRoot renders null-context lookups (§8 "Resolution with context =
// null is equivalent to context = root") by substituting the root context
// whenever the caller passes the zero Context.
func NullIfRoot(ctx Context) Context {
	if ctx.Kind == "" && ctx.ID == "" && ctx.Parent == nil {
		return Context{Kind: ContextKindRoot}
	}
	return ctx
}

func (c Context) String() string {
	var b strings.Builder
	b.WriteString(string(c.Kind))
	if c.ID != "" {
		b.WriteByte(':')
		b.WriteString(c.ID)
	}
	return b.String()
}
