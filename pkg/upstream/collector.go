package upstream

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"

	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/lru"
)

const defaultCacheCapacity = 256

// Collector memoises Collect results keyed on the structure of the graph, the
// target node and the type filter. It is safe for concurrent use.
type Collector struct {
	opts  Options
	cache *lru.Cache[[]domain.NodeVariableGroup]
}

// NewCollector creates a Collector. A capacity of zero selects the default
// size; a negative capacity disables caching.
func NewCollector(opts Options, capacity int) *Collector {
	switch {
	case capacity == 0:
		capacity = defaultCacheCapacity
	case capacity < 0:
		capacity = 0
	}

	c := &Collector{opts: opts.withDefaults()}
	if capacity > 0 {
		c.cache = lru.New[[]domain.NodeVariableGroup](capacity)
	}
	return c
}

// Collect behaves like the package-level Collect. Results are copies; callers
// may modify them freely.
func (c *Collector) Collect(target string, nodes []domain.Node, edges []domain.Edge, filter domain.PortType) []domain.NodeVariableGroup {
	if c.cache == nil {
		return Collect(target, nodes, edges, filter, c.opts)
	}

	key, ok := cacheKey(target, nodes, edges, filter)
	if ok {
		if cached, hit := c.cache.Get(key); hit {
			return cloneGroups(cached)
		}
	}

	groups := Collect(target, nodes, edges, filter, c.opts)
	if ok {
		c.cache.Add(key, cloneGroups(groups))
	}
	return groups
}

// Flush drops every memoised result.
func (c *Collector) Flush() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Len returns the number of memoised results.
func (c *Collector) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// cacheKey hashes everything a Collect result depends on. ok is false when
// the graph cannot be serialised, in which case the result is not cached.
func cacheKey(target string, nodes []domain.Node, edges []domain.Edge, filter domain.PortType) (string, bool) {
	h := sha256.New()
	writeCacheKeyField(h, target)
	writeCacheKeyField(h, string(filter))

	nodeData, err := json.Marshal(nodes)
	if err != nil {
		return "", false
	}
	edgeData, err := json.Marshal(edges)
	if err != nil {
		return "", false
	}
	writeCacheKeyField(h, string(nodeData))
	writeCacheKeyField(h, string(edgeData))

	return hex.EncodeToString(h.Sum(nil)), true
}

// writeCacheKeyField writes a field to the hash followed by a null delimiter.
func writeCacheKeyField(h hash.Hash, value string) {
	h.Write([]byte(value))
	h.Write([]byte{0})
}
