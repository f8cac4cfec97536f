package unit

import (
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
)

// #region registry
// Registry holds named units with an integer priority. Lower priorities run
// first; equal priorities run in registration order.
type Registry struct {
	entries map[string]*Entry
	nextSeq int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// #endregion registry

// #region register
// Register adds u under name. It fails if name is already taken.
func (r *Registry) Register(name string, u Unit, priority int) error {
	if name == "" {
		return ErrEmptyName
	}
	if u == nil {
		return fmt.Errorf("register %q: %w", name, ErrNilUnit)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("register %q: %w", name, ErrNameCollision)
	}
	r.entries[name] = &Entry{
		Name:         name,
		Unit:         u,
		Priority:     priority,
		Capabilities: Describe(u),
		seq:          r.nextSeq,
	}
	r.nextSeq++
	return nil
}

// Unregister removes the unit registered under name.
func (r *Registry) Unregister(name string) error {
	if _, exists := r.entries[name]; !exists {
		return r.notRegistered(name)
	}
	delete(r.entries, name)
	return nil
}

// #endregion register

// #region lookup
// Get returns the unit registered under name.
func (r *Registry) Get(name string) (Unit, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, r.notRegistered(name)
	}
	return e.Unit, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	all := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	names := make([]string, len(all))
	for i, e := range all {
		names[i] = e.Name
	}
	return names
}

// #endregion lookup

// #region ordered
// Ordered returns the registered units sorted by ascending priority, ties
// broken by registration order.
func (r *Registry) Ordered() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// #endregion ordered

// #region capabilities
// ResetAll calls Reset on every unit that supports it.
func (r *Registry) ResetAll() {
	for _, e := range r.Ordered() {
		if e.Capabilities.Reset {
			e.Unit.(Resetter).Reset()
		}
	}
}

// Snapshots collects Snapshot output from every unit that supports it.
func (r *Registry) Snapshots() map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, e := range r.Ordered() {
		if e.Capabilities.Snapshot {
			out[e.Name] = e.Unit.(Snapshotter).Snapshot()
		}
	}
	return out
}

// #endregion capabilities

// #region helpers
func (r *Registry) notRegistered(name string) error {
	if s := r.suggest(name); s != "" {
		return fmt.Errorf("%q: %w (did you mean %q?)", name, ErrNotRegistered, s)
	}
	return fmt.Errorf("%q: %w", name, ErrNotRegistered)
}

// suggest returns the closest registered name within a small edit distance.
func (r *Registry) suggest(name string) string {
	best := ""
	bestDist := -1
	for _, n := range r.Names() {
		d := levenshtein.ComputeDistance(name, n)
		if d > maxSuggestDistance(n) {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

func maxSuggestDistance(name string) int {
	if len(name) <= 4 {
		return 1
	}
	return 2
}

// #endregion helpers
