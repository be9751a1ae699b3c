package server

import (
	"sort"
	"sync"
)

// Registry is the mutable in-memory mapping from small integer IDs to
// custom target URLs. IDs are fixed at construction; only their URLs can
// be swapped at runtime.
type Registry struct {
	mu    sync.RWMutex
	sites map[int]string
}

// NewRegistry seeds a registry. The seed map is copied.
func NewRegistry(seed map[int]string) *Registry {
	sites := make(map[int]string, len(seed))
	for id, url := range seed {
		sites[id] = url
	}
	return &Registry{sites: sites}
}

// Get returns the URL for an ID.
func (r *Registry) Get(id int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	url, ok := r.sites[id]
	return url, ok
}

// Set updates the URL of a registered ID. Unknown IDs are rejected.
func (r *Registry) Set(id int, url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sites[id]; !ok {
		return false
	}
	r.sites[id] = url
	return true
}

// IDs returns the registered IDs in ascending order.
func (r *Registry) IDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.sites))
	for id := range r.sites {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
