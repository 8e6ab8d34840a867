// Package registry keeps live topology instances keyed by uuid, so a
// long-lived inventory topology and short-lived what-if topologies can be
// analysed side by side.
package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/osstelecom/topoweak/pkg/graph"
)

// ErrTopologyNotFound is returned by lookups against an unknown uuid.
var ErrTopologyNotFound = errors.New("topology not found")

// Store is the contract for topology registries.
//
// All methods must be safe for concurrent use without external locking.
type Store interface {
	// Add stores t. A topology already registered under the same uuid is
	// evicted first; the stored topology is returned.
	Add(t *graph.Topology) *graph.Topology

	// Remove drops the topology registered under t's uuid and returns it.
	// Removing an unknown uuid is a no-op that reports false.
	Remove(t *graph.Topology) (*graph.Topology, bool)

	// Get returns the topology registered under id, or an error matching
	// ErrTopologyNotFound.
	Get(id uuid.UUID) (*graph.Topology, error)

	// List returns every registered topology ordered by name, then uuid.
	List() []*graph.Topology

	// Len returns the number of registered topologies.
	Len() int
}

func notFound(id uuid.UUID) error {
	return fmt.Errorf("%w: %s", ErrTopologyNotFound, id)
}
