package pool

import "sync"

// registry is a process-wide index of live pools keyed by their uuid
// (spec.md §5's "named pools" requirement — a process can open more than
// one pool, e.g. one per shard, and look any of them up by id later).
var registry = struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}{pools: make(map[string]*Pool)}

func registerPool(p *Pool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.pools[p.id] = p
}

func unregisterPool(id string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.pools, id)
}

// Lookup returns a previously created pool by its id, as returned from
// Pool.ID, or false if no pool with that id is currently registered.
func Lookup(id string) (*Pool, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	p, ok := registry.pools[id]
	return p, ok
}

// All returns a snapshot of every currently registered pool.
func All() []*Pool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]*Pool, 0, len(registry.pools))
	for _, p := range registry.pools {
		out = append(out, p)
	}
	return out
}
