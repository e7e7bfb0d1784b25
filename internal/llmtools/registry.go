package llmtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ToolHandler executes a tool with raw JSON arguments and returns a raw JSON
// result. Errors are surfaced to the model inside an error envelope, so their
// text must be safe to show.
type ToolHandler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// ToolDefinition describes a callable tool. Name is lowercase snake_case and
// stays stable across versions; bump Version instead.
type ToolDefinition struct {
	Name        string
	Version     string
	Description string
	// Parameters is the JSON Schema for the argument object.
	Parameters json.RawMessage
	// ResultSchema, when set, is checked against successful results.
	ResultSchema json.RawMessage
	Capabilities []string
	Handler      ToolHandler
}

// ToolMeta is the loggable view of a definition.
type ToolMeta struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

// Registry holds tools keyed by name. The zero value is ready to use.
type Registry struct {
	defs map[string]ToolDefinition
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]ToolDefinition)}
}

var (
	nameRe   = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	semverRe = regexp.MustCompile(`^v?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)
)

// Register validates def and adds it, replacing any tool with the same name.
func (r *Registry) Register(def ToolDefinition) error {
	if !nameRe.MatchString(def.Name) {
		return fmt.Errorf("invalid tool name %q: must be lowercase snake_case starting with a letter", def.Name)
	}
	if !semverRe.MatchString(def.Version) {
		return fmt.Errorf("invalid version %q for %s", def.Version, def.Name)
	}
	if !isJSONObject(def.Parameters) {
		return fmt.Errorf("%s: parameters schema must be a JSON object", def.Name)
	}
	if def.Handler == nil {
		return errors.New(def.Name + ": handler must not be nil")
	}
	caps := make([]string, 0, len(def.Capabilities))
	for _, c := range def.Capabilities {
		if c = strings.TrimSpace(c); c != "" {
			caps = append(caps, c)
		}
	}
	def.Capabilities = caps
	if r.defs == nil {
		r.defs = make(map[string]ToolDefinition)
	}
	r.defs[def.Name] = def
	return nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (ToolDefinition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.defs) }

// Subset returns a new registry containing only the named tools. Unknown
// names are an error so that misconfigured agents fail before the first call.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	out := NewRegistry()
	for _, name := range names {
		def, ok := r.defs[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		out.defs[name] = def
	}
	return out, nil
}

// Specs returns model-facing specs sorted by name.
func (r *Registry) Specs() []ToolSpec {
	names := r.Names()
	specs := make([]ToolSpec, 0, len(names))
	for _, name := range names {
		def := r.defs[name]
		specs = append(specs, ToolSpec{
			Name:        def.Name,
			Description: fmt.Sprintf("%s (version %s)", def.Description, def.Version),
			JSONSchema:  def.Parameters,
		})
	}
	return specs
}

// Catalog returns metadata for every tool sorted by name.
func (r *Registry) Catalog() []ToolMeta {
	names := r.Names()
	out := make([]ToolMeta, 0, len(names))
	for _, name := range names {
		def := r.defs[name]
		out = append(out, ToolMeta{
			Name:         def.Name,
			Version:      def.Version,
			Capabilities: append([]string(nil), def.Capabilities...),
		})
	}
	return out
}

func isJSONObject(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v map[string]any
	return json.Unmarshal(raw, &v) == nil && v != nil
}
