package search

import "context"

// ValueCache memoizes value-mode scores by exact evaluation prompt.
// The core only appends; it never evicts.
type ValueCache interface {
	Get(ctx context.Context, prompt string) (float64, bool, error)
	Set(ctx context.Context, prompt string, value float64) error
}

// MapCache is an unsynchronized in-memory ValueCache for a single search.
type MapCache map[string]float64

// NewMapCache creates an empty MapCache.
func NewMapCache() MapCache {
	return make(MapCache)
}

// Get implements ValueCache.
func (m MapCache) Get(_ context.Context, prompt string) (float64, bool, error) {
	v, ok := m[prompt]
	return v, ok, nil
}

// Set implements ValueCache.
func (m MapCache) Set(_ context.Context, prompt string, value float64) error {
	m[prompt] = value
	return nil
}
