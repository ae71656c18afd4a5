// Package tracing decides which trace messages are emitted. Components are
// registered at runtime, optionally with a set of trace levels, and every
// trace call is checked against the registry before it reaches the log.
package tracing

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"
)

var (
	// ErrComponentRequired is returned when a component name is empty
	ErrComponentRequired = errors.New("component is required")

	// ErrInvalidComponent is returned for component names that are not valid UTF-8
	ErrInvalidComponent = errors.New("component name must be valid UTF-8")

	// ErrComponentNotFound is returned when the component is not registered
	ErrComponentNotFound = errors.New("component not found")

	// ErrLevelExists is returned when adding a level that is already registered
	ErrLevelExists = errors.New("level already exists")

	// ErrLevelNotFound is returned when removing a level that is not registered
	ErrLevelNotFound = errors.New("level not found")

	// ErrInvalidExact is returned by ParseExact for anything but true/false
	ErrInvalidExact = errors.New(`exact must be "true" or "false"`)
)

type component struct {
	// ascending, no duplicates
	levels []int
}

// Registry holds the components that are being traced and the matching
// mode. The zero value is not usable; use NewRegistry.
//
// In threshold mode (the default) a levelled trace call for a registered
// component is emitted when the component has no levels or when the level
// is at most the highest registered level. In exact mode the level must be
// one of the registered levels.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*component
	exact      bool
}

// NewRegistry creates an empty registry in threshold mode
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]*component),
	}
}

// ValidateName checks that name can be registered. Component names end up
// in log attributes and metric labels, so they must be non-empty UTF-8.
func ValidateName(name string) error {
	if name == "" {
		return ErrComponentRequired
	}
	if !utf8.ValidString(name) {
		return ErrInvalidComponent
	}
	return nil
}

// AddComponent registers name without levels. It reports whether the
// component was newly created.
func (r *Registry) AddComponent(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.components[name]; ok {
		return false, nil
	}
	r.components[name] = &component{}
	return true, nil
}

// AddLevel registers level for name, creating the component if needed
func (r *Registry) AddLevel(name string, level int) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[name]
	if !ok {
		c = &component{}
		r.components[name] = c
	}

	i, found := slices.BinarySearch(c.levels, level)
	if found {
		return fmt.Errorf("level %d for component %q: %w", level, name, ErrLevelExists)
	}
	c.levels = slices.Insert(c.levels, i, level)
	return nil
}

// RemoveComponent deletes name and all of its levels
func (r *Registry) RemoveComponent(name string) error {
	if name == "" {
		return ErrComponentRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.components[name]; !ok {
		return fmt.Errorf("component %q: %w", name, ErrComponentNotFound)
	}
	delete(r.components, name)
	return nil
}

// RemoveLevel deletes a single level from name
func (r *Registry) RemoveLevel(name string, level int) error {
	if name == "" {
		return ErrComponentRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[name]
	if !ok {
		return fmt.Errorf("component %q: %w", name, ErrComponentNotFound)
	}

	i, found := slices.BinarySearch(c.levels, level)
	if !found {
		return fmt.Errorf("level %d for component %q: %w", level, name, ErrLevelNotFound)
	}
	c.levels = slices.Delete(c.levels, i, i+1)
	return nil
}

// Clear removes every component. The matching mode is left as is.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = make(map[string]*component)
}

// SetExact switches between exact (true) and threshold (false) matching
func (r *Registry) SetExact(exact bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact = exact
}

// Exact reports whether exact matching is on
func (r *Registry) Exact() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exact
}

// Levels returns a copy of the levels registered for name
func (r *Registry) Levels(name string) ([]int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(c.levels), true
}

// Snapshot returns a copy of every component and its levels
func (r *Registry) Snapshot() map[string][]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]int, len(r.components))
	for name, c := range r.components {
		levels := slices.Clone(c.levels)
		if levels == nil {
			levels = []int{}
		}
		out[name] = levels
	}
	return out
}

// MarshalJSON renders the registry as {"name":{"levels":[...]}}
func (r *Registry) MarshalJSON() ([]byte, error) {
	type entry struct {
		Levels []int `json:"levels"`
	}

	snapshot := r.Snapshot()
	out := make(map[string]entry, len(snapshot))
	for name, levels := range snapshot {
		out[name] = entry{Levels: levels}
	}
	return json.Marshal(out)
}

// Enabled reports whether an unlevelled trace call for name is emitted.
// Any registered component is enabled.
func (r *Registry) Enabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[name]
	return ok
}

// EnabledAt reports whether a trace call for name at level is emitted
func (r *Registry) EnabledAt(name string, level int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[name]
	if !ok {
		return false
	}

	if r.exact {
		_, found := slices.BinarySearch(c.levels, level)
		return found
	}

	if len(c.levels) == 0 {
		return true
	}
	return level <= c.levels[len(c.levels)-1]
}

// ParseExact accepts "true" or "false" in any case
func ParseExact(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%q: %w", value, ErrInvalidExact)
	}
}
