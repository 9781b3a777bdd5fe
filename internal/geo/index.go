package geo

import (
	"context"
	"sort"
	"sync"
)

// Index maps wave ids to coarse geohash buckets.
// Implementations must be safe for concurrent use.
type Index interface {
	// Put registers id at p, replacing any previous location.
	Put(ctx context.Context, id string, p Point) error

	// Remove forgets id. Removing an unknown id is not an error.
	Remove(ctx context.Context, id string) error

	// CandidatesNear returns a superset of the ids within radiusKm of center.
	CandidatesNear(ctx context.Context, center Point, radiusKm float64) ([]string, error)

	// Len returns the number of indexed ids.
	Len(ctx context.Context) (int, error)
}

// MemoryIndex is an in-process Index guarded by a RWMutex.
type MemoryIndex struct {
	mu      sync.RWMutex
	opts    Options
	points  map[string]Point
	buckets map[string]map[string]struct{} // cell -> ids, cells of every precision share the map
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex(opts Options) *MemoryIndex {
	return &MemoryIndex{
		opts:    opts.withDefaults(),
		points:  make(map[string]Point),
		buckets: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryIndex) Put(_ context.Context, id string, p Point) error {
	if err := p.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(id)
	m.points[id] = p
	for _, cell := range cellsFor(p, m.opts.Precision) {
		bucket, ok := m.buckets[cell]
		if !ok {
			bucket = make(map[string]struct{})
			m.buckets[cell] = bucket
		}
		bucket[id] = struct{}{}
	}
	return nil
}

func (m *MemoryIndex) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(id)
	return nil
}

func (m *MemoryIndex) removeLocked(id string) {
	p, ok := m.points[id]
	if !ok {
		return
	}
	delete(m.points, id)
	for _, cell := range cellsFor(p, m.opts.Precision) {
		bucket := m.buckets[cell]
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(m.buckets, cell)
		}
	}
}

// CandidatesNear returns ids sorted lexically so callers see a stable order.
func (m *MemoryIndex) CandidatesNear(_ context.Context, center Point, radiusKm float64) ([]string, error) {
	cells, all := selectCover(center, radiusKm, m.opts)

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	if all {
		for id := range m.points {
			seen[id] = struct{}{}
		}
	} else {
		for _, cell := range cells {
			for id := range m.buckets[cell] {
				seen[id] = struct{}{}
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryIndex) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points), nil
}
