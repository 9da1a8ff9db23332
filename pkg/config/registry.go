package config

import (
	"fmt"
	"strings"
	"sync"
)

// Module is an object built from one config section.
type Module interface {
	Name() string
}

// ModuleFactory builds a module from its section. The whole config is
// passed for modules that read other sections too.
type ModuleFactory func(cfg *Config, section *Section) (Module, error)

type prefixFactory struct {
	prefix  string
	factory ModuleFactory
}

// Registry maps section name prefixes such as "tmc2208 " to factories.
type Registry struct {
	mu        sync.RWMutex
	factories []prefixFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a factory for sections starting with prefix. A later
// registration of the same prefix replaces the earlier one.
func (r *Registry) Register(prefix string, factory ModuleFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.factories {
		if r.factories[i].prefix == prefix {
			r.factories[i].factory = factory
			return
		}
	}
	r.factories = append(r.factories, prefixFactory{prefix, factory})
}

// GetFactory returns the factory with the longest prefix matching a
// section name, or nil.
func (r *Registry) GetFactory(sectionName string) ModuleFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *prefixFactory
	for i := range r.factories {
		pf := &r.factories[i]
		if strings.HasPrefix(sectionName, pf.prefix) && (best == nil || len(pf.prefix) > len(best.prefix)) {
			best = pf
		}
	}
	if best == nil {
		return nil
	}
	return best.factory
}

// Prefixes returns the registered prefixes in registration order.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.factories))
	for i, pf := range r.factories {
		out[i] = pf.prefix
	}
	return out
}

// LoadModules builds a module for every section that has a factory, in
// file order. Sections without a factory are skipped.
func (r *Registry) LoadModules(cfg *Config) ([]Module, error) {
	var modules []Module
	for _, name := range cfg.GetSectionNames() {
		factory := r.GetFactory(name)
		if factory == nil {
			continue
		}
		sec, err := cfg.GetSection(name)
		if err != nil {
			return nil, err
		}
		m, err := factory(cfg, sec)
		if err != nil {
			return nil, fmt.Errorf("failed to load [%s]: %w", name, err)
		}
		modules = append(modules, m)
	}
	return modules, nil
}
