// ABOUTME: Static tool registry: definitions keyed by canonical name plus an
// ABOUTME: alias table for legacy names. Read-only after startup.

package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/macrolog/macro-gateway/internal/schema"
)

// Auth modes a tool can declare.
const (
	AuthNone     = "none"
	AuthRequired = "required"
)

// ExecContext carries per-invocation state into handlers: the resolved user
// id (empty for anonymous calls to auth-none tools), the inbound headers, and
// the request correlation id.
type ExecContext struct {
	UserID        string
	Headers       map[string]string
	CorrelationID string
}

// Example is a documented sample invocation surfaced by tools/list.
type Example struct {
	Summary   string         `json:"summary"`
	Arguments map[string]any `json:"arguments"`
}

// Handler executes a tool against normalized, coerced arguments.
type Handler func(ctx context.Context, ec ExecContext, args map[string]any) (any, error)

// Definition describes one tool: its catalog metadata, argument schema, an
// optional post-coercion normalization pass, and the handler closure.
// Definitions are immutable once registered.
type Definition struct {
	Name         string
	Description  string
	Tags         []string
	Auth         string // AuthNone or AuthRequired
	Public       bool
	InputSchema  *schema.Schema
	OutputSchema *schema.Schema
	Examples     []Example
	Normalize    func(args map[string]any)
	Handler      Handler
}

// Registry is the process-wide tool catalog. It is populated at startup and
// read-only afterwards, so lookups need no locking.
type Registry struct {
	tools   map[string]*Definition
	aliases map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]*Definition),
		aliases: make(map[string]string),
	}
}

// Register adds a tool definition. Panics on duplicate names or missing
// required fields since registration happens once at startup with a static
// catalog.
func (r *Registry) Register(def *Definition) {
	if def.Name == "" || def.Handler == nil || def.InputSchema == nil {
		panic(fmt.Sprintf("tools: incomplete definition %q", def.Name))
	}
	if _, exists := r.tools[def.Name]; exists {
		panic(fmt.Sprintf("tools: duplicate tool %q", def.Name))
	}
	if def.Auth == "" {
		def.Auth = AuthNone
	}
	r.tools[def.Name] = def
}

// Alias maps a legacy name onto a canonical one. The canonical tool must
// already be registered; the registry itself stays alias-free.
func (r *Registry) Alias(legacy, canonical string) {
	if _, exists := r.tools[canonical]; !exists {
		panic(fmt.Sprintf("tools: alias %q targets unregistered tool %q", legacy, canonical))
	}
	r.aliases[legacy] = canonical
}

// Resolve looks a name up, following the alias table once.
func (r *Registry) Resolve(name string) (*Definition, bool) {
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	def, ok := r.tools[name]
	return def, ok
}

// List returns all definitions sorted by name.
func (r *Registry) List() []*Definition {
	out := make([]*Definition, 0, len(r.tools))
	for _, def := range r.tools {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
