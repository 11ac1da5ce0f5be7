package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownPermission indicates a lookup for an id that was never registered.
	ErrUnknownPermission = errors.New("permission: unknown permission")
	// ErrCircularDependency signals a cycle in the DependsOn graph.
	ErrCircularDependency = errors.New("permission: circular dependency detected")

	errEmptyID     = errors.New("permission: id is required")
	errDuplicateID = errors.New("permission: already registered")
	errSelfLink    = errors.New("permission: cannot reference itself")
)

// Definition describes a capability that roles can hold.
// A holder of the permission also needs every DependsOn entry; holding it
// grants every Implies entry.
type Definition struct {
	ID          string
	Module      string
	Description string
	DependsOn   []string
	Implies     []string
}

func (d Definition) clone() Definition {
	d.DependsOn = append([]string(nil), d.DependsOn...)
	d.Implies = append([]string(nil), d.Implies...)
	return d
}

// Registry is a concurrency-safe set of permission definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// Default holds the built-in permissions registered by this package.
var Default = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds definitions, rejecting blank, duplicate or self-referencing ids.
// Nothing is added when any definition is invalid.
func (r *Registry) Register(defs ...Definition) error {
	prepared := make([]Definition, 0, len(defs))
	for _, def := range defs {
		def.ID = strings.TrimSpace(def.ID)
		if def.ID == "" {
			return errEmptyID
		}
		def.Module = strings.TrimSpace(def.Module)

		var err error
		if def.DependsOn, err = cleanLinks(def.ID, def.DependsOn); err != nil {
			return err
		}
		if def.Implies, err = cleanLinks(def.ID, def.Implies); err != nil {
			return err
		}
		prepared = append(prepared, def)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(prepared))
	for _, def := range prepared {
		if _, exists := r.defs[def.ID]; exists {
			return fmt.Errorf("%w: %s", errDuplicateID, def.ID)
		}
		if _, exists := seen[def.ID]; exists {
			return fmt.Errorf("%w: %s", errDuplicateID, def.ID)
		}
		seen[def.ID] = struct{}{}
	}
	for _, def := range prepared {
		r.defs[def.ID] = def
	}
	return nil
}

// MustRegister is Register that panics on error, for package init blocks.
func (r *Registry) MustRegister(defs ...Definition) {
	if err := r.Register(defs...); err != nil {
		panic(err)
	}
}

// Lookup returns a copy of the definition for id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[id]
	if !ok {
		return Definition{}, false
	}
	return def.clone(), true
}

// All returns copies of every definition ordered by id.
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate reports links to ids that are not registered.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, def := range r.defs {
		for _, link := range append(append([]string(nil), def.DependsOn...), def.Implies...) {
			if _, ok := r.defs[link]; !ok {
				return fmt.Errorf("%w %q referenced by %s", ErrUnknownPermission, link, def.ID)
			}
		}
	}
	return nil
}

func cleanLinks(self string, links []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		if link == self {
			return nil, fmt.Errorf("%w: %s", errSelfLink, self)
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out, nil
}
