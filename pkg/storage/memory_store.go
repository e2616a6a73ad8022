package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/polisai/polis-flow/pkg/domain"
)

// MemoryGraphStore is an in-memory implementation of GraphStore. Node and
// edge order is insertion order.
type MemoryGraphStore struct {
	mu    sync.RWMutex
	nodes []domain.Node
	edges []domain.Edge
}

// NewMemoryGraphStore creates a store seeded with wf.
func NewMemoryGraphStore(wf domain.Workflow) *MemoryGraphStore {
	return &MemoryGraphStore{
		nodes: append([]domain.Node(nil), wf.Nodes...),
		edges: append([]domain.Edge(nil), wf.Edges...),
	}
}

// Nodes returns a copy of the node list.
func (s *MemoryGraphStore) Nodes(_ context.Context) ([]domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Node(nil), s.nodes...), nil
}

// Edges returns a copy of the edge list.
func (s *MemoryGraphStore) Edges(_ context.Context) ([]domain.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Edge(nil), s.edges...), nil
}

// Workflow returns the whole graph.
func (s *MemoryGraphStore) Workflow() domain.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Workflow{
		Nodes: append([]domain.Node(nil), s.nodes...),
		Edges: append([]domain.Edge(nil), s.edges...),
	}
}

// AddNode appends a node. Duplicate ids are rejected.
func (s *MemoryGraphStore) AddNode(_ context.Context, node domain.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.nodes {
		if n.ID == node.ID {
			return fmt.Errorf("node %s already exists", node.ID)
		}
	}
	s.nodes = append(s.nodes, node)
	return nil
}

// AddEdge appends an edge.
func (s *MemoryGraphStore) AddEdge(_ context.Context, edge domain.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.edges {
		if e.ID == edge.ID {
			return fmt.Errorf("edge %s already exists", edge.ID)
		}
	}
	s.edges = append(s.edges, edge)
	return nil
}

// RemoveNode deletes a node and every edge touching it.
func (s *MemoryGraphStore) RemoveNode(_ context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.nodeIndex(nodeID)
	if idx < 0 {
		return fmt.Errorf("node %s: %w", nodeID, ErrNotFound)
	}
	s.nodes = append(s.nodes[:idx], s.nodes[idx+1:]...)

	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Source != nodeID && e.Target != nodeID {
			kept = append(kept, e)
		}
	}
	s.edges = kept
	return nil
}

// UpdateNode applies a partial update to a node.
func (s *MemoryGraphStore) UpdateNode(_ context.Context, nodeID string, update NodeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.nodeIndex(nodeID)
	if idx < 0 {
		return fmt.Errorf("node %s: %w", nodeID, ErrNotFound)
	}
	node := &s.nodes[idx]
	if update.Title != nil {
		node.Data.Title = *update.Title
	}
	if update.Config != nil {
		node.Data.Config = update.Config
	}
	if update.Ports != nil {
		ports := update.Ports.Clone()
		node.Data.Ports = &ports
	}
	return nil
}

// DeleteEdge removes an edge.
func (s *MemoryGraphStore) DeleteEdge(_ context.Context, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.edges {
		if e.ID == edgeID {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("edge %s: %w", edgeID, ErrNotFound)
}

// UpdateEdge replaces the edge with the same id.
func (s *MemoryGraphStore) UpdateEdge(_ context.Context, edge domain.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.edges {
		if e.ID == edge.ID {
			s.edges[i] = edge
			return nil
		}
	}
	return fmt.Errorf("edge %s: %w", edge.ID, ErrNotFound)
}

func (s *MemoryGraphStore) nodeIndex(nodeID string) int {
	for i, n := range s.nodes {
		if n.ID == nodeID {
			return i
		}
	}
	return -1
}
