package api

import (
	"sort"
	"sync"

	"haruki-const-decrypter/decrypter"
	"haruki-const-decrypter/il"
)

// Entry is one loaded module. Decrypter is nil when the module is not
// protected.
type Entry struct {
	Module    *il.Module
	Decrypter *decrypter.ConstantsDecrypter
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add opens module and registers it under its name, replacing any module
// with the same name.
func (r *Registry) Add(module *il.Module, opts decrypter.Options) (*Entry, error) {
	d, err := decrypter.Open(module, opts)
	if err != nil {
		return nil, err
	}
	e := &Entry{Module: module, Decrypter: d}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[module.Name] = e
	return e, nil
}

func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
