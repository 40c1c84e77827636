// Package checksum tracks, per target locale, the content hash of the source
// text each key was last translated from. A key whose source hash is unchanged
// does not need another provider call.
//
// A Cache belongs to one sync engine. Persisting it across runs is the
// caller's job: see Seed and Hashes.
package checksum

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/minios-linux/wrapkit/catalog"
)

// Cache maps target -> key -> source content hash. It is safe for concurrent
// use.
type Cache struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{hashes: make(map[string]map[string]string)}
}

// Hash computes the hex SHA-256 digest of a source string.
func Hash(s string) string {
	return catalog.HashText(s)
}

// IsChanged reports whether sourceContent is new or differs from what key was
// last translated from.
func (c *Cache) IsChanged(target, key, sourceContent string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.hashes[target]
	if !ok {
		return true
	}
	old, ok := keys[key]
	if !ok {
		return true
	}
	return old != Hash(sourceContent)
}

// Update records the hash of sourceContent after a successful translation.
func (c *Cache) Update(target, key, sourceContent string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hashes[target] == nil {
		c.hashes[target] = make(map[string]string)
	}
	c.hashes[target][key] = Hash(sourceContent)
}

// Seed loads previously persisted hashes (key -> hash) for target. Existing
// entries for the same keys are overwritten.
func (c *Cache) Seed(target string, hashes map[string]string) {
	if len(hashes) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hashes[target] == nil {
		c.hashes[target] = make(map[string]string, len(hashes))
	}
	for k, h := range hashes {
		c.hashes[target][k] = h
	}
}

// Hashes returns a copy of target's key -> hash map.
func (c *Cache) Hashes(target string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]string, len(c.hashes[target]))
	for k, h := range c.hashes[target] {
		out[k] = h
	}
	return out
}

// Clean drops entries of target whose keys are not in currentKeys.
func (c *Cache) Clean(target string, currentKeys []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing := c.hashes[target]
	if existing == nil {
		return
	}
	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}
	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
}

// Stats returns the number of targets and total tracked keys.
func (c *Cache) Stats() (targets, keys int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	targets = len(c.hashes)
	for _, m := range c.hashes {
		keys += len(m)
	}
	return
}

// Targets returns the tracked targets sorted.
func (c *Cache) Targets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	targets := make([]string, 0, len(c.hashes))
	for t := range c.hashes {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary such as "2 targets, 5 keys (de: 3 keys, fr: 2 keys)".
func (c *Cache) Summary() string {
	targets, keys := c.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range c.Targets() {
		parts = append(parts, fmt.Sprintf("%s: %d keys", t, len(c.Hashes(t))))
	}
	return fmt.Sprintf("%d targets, %d keys (%s)", targets, keys, strings.Join(parts, ", "))
}
