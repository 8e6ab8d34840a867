package registry

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/osstelecom/topoweak/pkg/graph"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store with a map guarded by a RWMutex.
type MemoryStore struct {
	mu         sync.RWMutex
	topologies map[uuid.UUID]*graph.Topology
}

// NewMemoryStore creates an empty registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		topologies: make(map[uuid.UUID]*graph.Topology),
	}
}

func (s *MemoryStore) Add(t *graph.Topology) *graph.Topology {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topologies, t.UUID)
	s.topologies[t.UUID] = t
	return t
}

func (s *MemoryStore) Remove(t *graph.Topology) (*graph.Topology, bool) {
	if t == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.topologies[t.UUID]
	if !ok {
		return nil, false
	}
	delete(s.topologies, t.UUID)
	return existing, true
}

func (s *MemoryStore) Get(id uuid.UUID) (*graph.Topology, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topologies[id]
	if !ok {
		return nil, notFound(id)
	}
	return t, nil
}

func (s *MemoryStore) List() []*graph.Topology {
	s.mu.RLock()
	out := make([]*graph.Topology, 0, len(s.topologies))
	for _, t := range s.topologies {
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UUID.String() < out[j].UUID.String()
	})
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.topologies)
}
