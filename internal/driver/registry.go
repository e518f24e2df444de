package driver

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps dialect names to their Driver implementations. Session
// creation validates its db_type against it, and the /v1/meta/drivers
// inventory is served from it.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewRegistry creates a new empty driver registry.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[string]Driver),
	}
}

// Register adds a driver to the registry, replacing any driver already
// registered under the same name.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.Name()] = d
}

// Get retrieves a driver by dialect name.
// Returns an error if the driver is not found.
func (r *Registry) Get(name string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("driver not found: %s", name)
	}
	return d, nil
}

// Has checks if a driver with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.drivers[name]
	return ok
}

// Names returns the registered driver names in sorted order, so the
// driver inventory endpoint reports a stable list.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global driver registry each dialect package
// registers itself into at init time.
var DefaultRegistry = NewRegistry()

// Register adds a driver to the default registry.
func Register(d Driver) {
	DefaultRegistry.Register(d)
}

// Get retrieves a driver from the default registry.
func Get(name string) (Driver, error) {
	return DefaultRegistry.Get(name)
}

// Has checks if a driver is registered in the default registry.
func Has(name string) bool {
	return DefaultRegistry.Has(name)
}
