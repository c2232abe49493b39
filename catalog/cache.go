// Package catalog keeps a local view of the remote mod catalog and resolves
// dependency closures into it.
package catalog

import (
	"sync"

	"github.com/RainOrigami/ModIoManager/modio"
)

// Cache is the in-memory mapping from mod id to the canonical mod record.
// A record is inserted at most once; later fetches of the same id patch the
// existing record instead of replacing it, so a pointer handed out before a
// refresh stays valid and reflects the refresh.
type Cache struct {
	mu   sync.RWMutex
	mods map[int]*modio.Mod
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{mods: make(map[int]*modio.Mod)}
}

// Get returns the cached record for id, if present.
func (c *Cache) Get(id int) (*modio.Mod, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mod, ok := c.mods[id]
	return mod, ok
}

// Has reports whether id is present in the cache.
func (c *Cache) Has(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.mods[id]
	return ok
}

// GetOrInsert inserts mod if its id is not cached yet and returns the
// canonical record for that id. When a record already exists the given mod is
// discarded, so concurrent writers for the same id converge on one instance.
func (c *Cache) GetOrInsert(mod *modio.Mod) *modio.Mod {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.mods[mod.ID]; ok {
		return existing
	}
	c.mods[mod.ID] = mod
	return mod
}

// Missing returns the subset of ids not present in the cache, preserving order.
func (c *Cache) Missing(ids []int) []int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []int
	for _, id := range ids {
		if _, ok := c.mods[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// All returns the current set of cached records. The slice is fresh, the
// records are the shared canonical instances.
func (c *Cache) All() []*modio.Mod {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mods := make([]*modio.Mod, 0, len(c.mods))
	for _, mod := range c.mods {
		mods = append(mods, mod)
	}
	return mods
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.mods)
}

// ApplyLocalState patches the installed-version state of the record for id,
// if cached. Called after a catalog sync to merge the local filesystem view.
func (c *Cache) ApplyLocalState(id, taint int, broken bool) {
	c.mu.RLock()
	mod, ok := c.mods[id]
	c.mu.RUnlock()

	if !ok {
		return
	}
	mod.LocalVersion = taint
	mod.LocalBroken = broken
}
