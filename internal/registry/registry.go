package registry

import "slices"

// Registry is the ordered set of loaded module names.
type Registry struct {
	names []string
	index map[string]struct{}
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		index: make(map[string]struct{}),
	}
}

// Add inserts name if it is not already present. Re-adding is a no-op.
func (r *Registry) Add(name string) {
	if _, exists := r.index[name]; exists {
		return
	}
	r.index[name] = struct{}{}
	r.names = append(r.names, name)
}

// Remove deletes name if present. Removing an absent name is a no-op.
func (r *Registry) Remove(name string) {
	if _, exists := r.index[name]; !exists {
		return
	}
	delete(r.index, name)
	r.names = slices.DeleteFunc(r.names, func(n string) bool { return n == name })
}

// Contains reports whether name is loaded.
func (r *Registry) Contains(name string) bool {
	_, exists := r.index[name]
	return exists
}

// All returns a copy of the loaded names in insertion order.
func (r *Registry) All() []string {
	return slices.Clone(r.names)
}

// Len returns the number of loaded modules.
func (r *Registry) Len() int {
	return len(r.names)
}
