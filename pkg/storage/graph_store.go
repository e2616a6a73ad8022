// Package storage holds the workflow graph and archived run state the editor
// works against.
package storage

import (
	"context"
	"errors"

	"github.com/polisai/polis-flow/pkg/domain"
)

// ErrNotFound is returned when a requested node, edge or run does not exist.
var ErrNotFound = errors.New("not found")

// NodeUpdate is a partial node payload. Nil fields are left untouched.
type NodeUpdate struct {
	Title  *string
	Config domain.NodeConfig
	Ports  *domain.NodePortSchema
}

// GraphStore is the graph the editor reads from and writes to. It owns the
// topology; callers only patch nodes and delete or rewire edges.
type GraphStore interface {
	Nodes(ctx context.Context) ([]domain.Node, error)
	Edges(ctx context.Context) ([]domain.Edge, error)
	UpdateNode(ctx context.Context, nodeID string, update NodeUpdate) error
	DeleteEdge(ctx context.Context, edgeID string) error
	UpdateEdge(ctx context.Context, edge domain.Edge) error
}

// RunStore archives variable pool snapshots of finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, state domain.VariablePoolState) (string, error)
	LoadRun(ctx context.Context, runID string) (domain.VariablePoolState, error)
}
