package search

import (
	"maps"
	"strings"
	"sync"
)

// FacetCollector counts the values of one facet slot across the documents a
// search matched. It is reset before every search and read after it.
type FacetCollector struct {
	mu        sync.RWMutex
	separator string
	counts    map[string]int
}

// NewFacetCollector creates a collector. When separator is non-empty, slot
// values are lists joined by it and each element is counted on its own.
func NewFacetCollector(separator string) *FacetCollector {
	return &FacetCollector{
		separator: separator,
		counts:    make(map[string]int),
	}
}

// Reset forgets all counts.
func (c *FacetCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.counts)
}

// Observe records that n matched documents hold value in the slot.
// An empty value is a missing slot and is not counted.
func (c *FacetCollector) Observe(value string, n int) {
	if value == "" || n <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.separator == "" {
		c.counts[value] += n
		return
	}
	for _, part := range strings.Split(value, c.separator) {
		if part != "" {
			c.counts[part] += n
		}
	}
}

// Facets returns a copy of the counts.
func (c *FacetCollector) Facets() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.counts)
}
