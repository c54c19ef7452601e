package crucible

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// IndirectCache bounds the cost of repeated `@expr` name resolution in hot
// loops: the evaluator resolves an indirect's inner expression to a string
// once per distinct value and remembers the split dot-path segments so
// repeated resolutions of the same name don't re-tokenize it. Grounded on
// the teacher's use of bounded LRU caches ahead of expensive repeated
// lookups (e.g. topdown/cache and internal/planner caches).
type IndirectCache struct {
	segments *lru.Cache[string, []string]
}

// NewIndirectCache builds a cache holding up to size distinct resolved
// names. size <= 0 is treated as 1 (a single-entry cache).
func NewIndirectCache(size int) *IndirectCache {
	if size <= 0 {
		size = 1
	}
	c, _ := lru.New[string, []string](size)
	return &IndirectCache{segments: c}
}

// Segments returns the dot-path split of name, splitting and caching it on
// first use.
func (ic *IndirectCache) Segments(name string) []string {
	if segs, ok := ic.segments.Get(name); ok {
		return segs
	}
	segs := splitDotPath(name)
	ic.segments.Add(name, segs)
	return segs
}

func splitDotPath(name string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			segs = append(segs, name[start:i])
			start = i + 1
		}
	}
	segs = append(segs, name[start:])
	return segs
}
