// Package editor applies branch config edits to a stored workflow graph. Each
// edit regenerates the node's port schema and rewires or deletes the edges
// whose source handle moved or disappeared.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/polisai/polis-flow/pkg/branch"
	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/portschema"
	"github.com/polisai/polis-flow/pkg/storage"
	"github.com/polisai/polis-flow/pkg/telemetry"
	"github.com/polisai/polis-flow/pkg/upstream"
	"github.com/polisai/polis-flow/pkg/variablepool"
)

// Config wires an Editor to its collaborators. Store is required.
type Config struct {
	Store     storage.GraphStore
	Pool      *variablepool.Pool
	Collector *upstream.Collector
	// Upstream bounds the ancestry walks used by Resolve.
	Upstream upstream.Options
	// Vision decides whether a newly selected model turns vision on.
	// Defaults to branch.NameContainsVision.
	Vision  branch.VisionDetector
	Publish PublishGate
	Runs    storage.RunStore
	Logger  *slog.Logger
}

// Editor is the write path for branch node configuration.
type Editor struct {
	store     storage.GraphStore
	pool      *variablepool.Pool
	collector *upstream.Collector
	upstream  upstream.Options
	vision    branch.VisionDetector
	publish   PublishGate
	runs      storage.RunStore
	logger    *slog.Logger
}

// Result describes the effect of one edit.
type Result struct {
	NodeID       string
	Ports        domain.NodePortSchema
	PortsChanged bool
	PrunedEdges  []string
	RenamedEdges []string
}

// New constructs an Editor.
func New(cfg Config) *Editor {
	if cfg.Store == nil {
		panic("editor: graph store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pool := cfg.Pool
	if pool == nil {
		pool = variablepool.New(variablepool.Config{Logger: logger})
	}
	if cfg.Upstream.Logger == nil {
		cfg.Upstream.Logger = logger
	}
	collector := cfg.Collector
	if collector == nil {
		collector = upstream.NewCollector(cfg.Upstream, 0)
	}
	vision := cfg.Vision
	if vision == nil {
		vision = branch.NameContainsVision
	}

	return &Editor{
		store:     cfg.Store,
		pool:      pool,
		collector: collector,
		upstream:  cfg.Upstream,
		vision:    vision,
		publish:   cfg.Publish,
		runs:      cfg.Runs,
		logger:    logger,
	}
}

// Pool returns the variable pool the editor purges and resolves against.
func (e *Editor) Pool() *variablepool.Pool {
	return e.pool
}

// EditIfElse applies fn to the if-else config of nodeID. action names the edit
// in logs and metrics.
func (e *Editor) EditIfElse(ctx context.Context, nodeID, action string, fn func(*domain.IfElseConfig) *domain.IfElseConfig) (Result, error) {
	return e.apply(ctx, nodeID, action, domain.NodeTypeIfElse, func(current domain.NodeConfig) (mutation, error) {
		before := branch.NormalizeIfElse(asIfElse(current))
		after := branch.NormalizeIfElse(fn(before))
		return mutation{config: after, changes: branch.CaseHandleChanges(before, after)}, nil
	})
}

// EditClassifier applies fn to the classifier config of nodeID. Edges leaving
// through the branch of a class that fn dropped are deleted.
func (e *Editor) EditClassifier(ctx context.Context, nodeID, action string, fn func(*domain.ClassifierConfig) *domain.ClassifierConfig) (Result, error) {
	return e.apply(ctx, nodeID, action, domain.NodeTypeQuestionClassifier, func(current domain.NodeConfig) (mutation, error) {
		before := asClassifier(current)
		after := fn(before)
		removed := removedClassIDs(before, after)
		return mutation{
			config:  after,
			changes: branch.ClassHandleChanges(removed),
			prune: func(edge domain.Edge) bool {
				return branch.IsRemovedClassEdge(edge, nodeID, removed)
			},
		}, nil
	})
}

// ChangeClasses replaces the class list of a classifier node.
func (e *Editor) ChangeClasses(ctx context.Context, nodeID string, classes []domain.ClassTopic) (Result, error) {
	return e.EditClassifier(ctx, nodeID, "change_classes", func(cfg *domain.ClassifierConfig) *domain.ClassifierConfig {
		next, _ := branch.ClassesChange(cfg, classes)
		return next
	})
}

// ChangeModel updates the classifier model using the editor's vision detector.
func (e *Editor) ChangeModel(ctx context.Context, nodeID string, update branch.ModelUpdate) (Result, error) {
	return e.EditClassifier(ctx, nodeID, "change_model", func(cfg *domain.ClassifierConfig) *domain.ClassifierConfig {
		return branch.ModelChange(ctx, cfg, update, e.vision)
	})
}

// ToggleVision switches the classifier's file input on or off.
func (e *Editor) ToggleVision(ctx context.Context, nodeID string, enabled bool) (Result, error) {
	return e.EditClassifier(ctx, nodeID, "toggle_vision", func(cfg *domain.ClassifierConfig) *domain.ClassifierConfig {
		return branch.VisionToggle(cfg, enabled)
	})
}

// EditAggregator applies fn to the aggregator config of nodeID. An error from
// fn rejects the edit and leaves the graph untouched.
func (e *Editor) EditAggregator(ctx context.Context, nodeID, action string, fn func(*domain.AggregatorConfig) (*domain.AggregatorConfig, error)) (Result, error) {
	return e.apply(ctx, nodeID, action, domain.NodeTypeVariableAssigner, func(current domain.NodeConfig) (mutation, error) {
		before := asAggregator(current)
		after, err := fn(before)
		if err != nil {
			return mutation{}, err
		}
		return mutation{config: after, changes: branch.GroupHandleChanges(before, after)}, nil
	})
}

// RefreshPorts regenerates the ports of nodeID from its config and persists
// them when they differ.
func (e *Editor) RefreshPorts(ctx context.Context, nodeID string) (Result, error) {
	node, err := e.node(ctx, nodeID)
	if err != nil {
		return Result{}, err
	}
	return e.refresh(ctx, node)
}

// SyncAllPorts refreshes every node and returns the ids whose ports changed.
func (e *Editor) SyncAllPorts(ctx context.Context) ([]string, error) {
	nodes, err := e.store.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	var changed []string
	for _, node := range nodes {
		res, err := e.refresh(ctx, node)
		if err != nil {
			return changed, err
		}
		if res.PortsChanged {
			changed = append(changed, node.ID)
		}
	}
	return changed, nil
}

func (e *Editor) refresh(ctx context.Context, node domain.Node) (Result, error) {
	ports, ok := portschema.ForNode(node)
	if !ok {
		return Result{NodeID: node.ID}, nil
	}
	res := Result{NodeID: node.ID, Ports: ports}
	if !portschema.Changed(node.Data.Ports, ports) {
		return res, nil
	}
	if err := e.store.UpdateNode(ctx, node.ID, storage.NodeUpdate{Ports: &ports}); err != nil {
		return res, fmt.Errorf("update ports of %s: %w", node.ID, err)
	}
	res.PortsChanged = true
	return res, nil
}

// UpstreamVariables lists the variables nodeID may reference, grouped per
// ancestor. An empty filter accepts every type.
func (e *Editor) UpstreamVariables(ctx context.Context, nodeID string, filter domain.PortType) ([]domain.NodeVariableGroup, error) {
	nodes, edges, err := e.graph(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	groups := e.collector.Collect(nodeID, nodes, edges, filter)
	telemetry.RecordCollect(ctx, time.Since(start), len(groups))
	return groups, nil
}

// OnNodeDeleted purges the pool entries of a removed node and deletes any
// edge still attached to it. It returns the ids of the deleted edges.
func (e *Editor) OnNodeDeleted(ctx context.Context, nodeID string) ([]string, error) {
	e.pool.ClearNodeOutputs(nodeID)
	telemetry.RecordPoolClear(ctx, "node")

	edges, err := e.store.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	var deleted []string
	for _, edge := range edges {
		if edge.Source != nodeID && edge.Target != nodeID {
			continue
		}
		if err := e.store.DeleteEdge(ctx, edge.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return deleted, fmt.Errorf("delete edge %s: %w", edge.ID, err)
		}
		deleted = append(deleted, edge.ID)
	}

	e.logger.Debug("Node removed from workflow", "node_id", nodeID, "edges_deleted", len(deleted))
	return deleted, nil
}

type mutation struct {
	config  domain.NodeConfig
	changes branch.HandleChanges
	// prune matches additional edges to delete beyond changes.Removed.
	prune func(domain.Edge) bool
}

func (e *Editor) apply(ctx context.Context, nodeID, action string, kind domain.NodeType, reduce func(domain.NodeConfig) (mutation, error)) (res Result, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "editor."+action, trace.WithAttributes(
		attribute.String("node.id", nodeID),
		attribute.String("node.kind", string(kind)),
	))
	defer span.End()

	start := time.Now()
	outcome := telemetry.OutcomeApplied
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		telemetry.RecordAction(ctx, telemetry.ActionMetrics{
			Action:       action,
			NodeID:       nodeID,
			NodeKind:     string(kind),
			Outcome:      outcome,
			Duration:     time.Since(start),
			EdgesPruned:  len(res.PrunedEdges),
			EdgesRenamed: len(res.RenamedEdges),
			PortsChanged: res.PortsChanged,
		})
	}()

	node, err := e.node(ctx, nodeID)
	if err != nil {
		outcome = telemetry.OutcomeRejected
		return Result{}, err
	}
	if node.Type != kind {
		outcome = telemetry.OutcomeRejected
		return Result{}, fmt.Errorf("%w: node %s is %s, not %s", domain.ErrUnsupportedKind, nodeID, node.Type, kind)
	}

	m, err := reduce(node.Data.Config)
	if err != nil {
		outcome = telemetry.OutcomeRejected
		e.logger.Debug("Editor action rejected", "action", action, "node_id", nodeID, "error", err)
		return Result{}, err
	}

	ports, _ := portschema.ForConfig(m.config)
	res = Result{NodeID: nodeID, Ports: ports, PortsChanged: portschema.Changed(node.Data.Ports, ports)}
	if err := e.store.UpdateNode(ctx, nodeID, storage.NodeUpdate{Config: m.config, Ports: &ports}); err != nil {
		outcome = telemetry.OutcomeFailed
		return res, fmt.Errorf("update node %s: %w", nodeID, err)
	}

	if !m.changes.Empty() || m.prune != nil {
		if err := e.rewire(ctx, nodeID, m, &res); err != nil {
			outcome = telemetry.OutcomeFailed
			return res, err
		}
	}
	telemetry.RecordPrunedEdges(span, nodeID, res.PrunedEdges)

	e.logger.Debug("Editor action applied",
		"action", action,
		"node_id", nodeID,
		"ports_changed", res.PortsChanged,
		"edges_pruned", len(res.PrunedEdges),
		"edges_renamed", len(res.RenamedEdges),
	)
	return res, nil
}

// rewire deletes edges on removed handles and moves edges on renamed handles.
// Every edge is judged by the handle it had before the edit.
func (e *Editor) rewire(ctx context.Context, nodeID string, m mutation, res *Result) error {
	edges, err := e.store.Edges(ctx)
	if err != nil {
		return fmt.Errorf("list edges: %w", err)
	}

	removed := make(map[string]bool, len(m.changes.Removed))
	for _, h := range m.changes.Removed {
		removed[h] = true
	}

	for _, edge := range edges {
		if edge.Source != nodeID {
			continue
		}
		if removed[edge.SourceHandle] || (m.prune != nil && m.prune(edge)) {
			if err := e.store.DeleteEdge(ctx, edge.ID); err != nil {
				return fmt.Errorf("delete edge %s: %w", edge.ID, err)
			}
			res.PrunedEdges = append(res.PrunedEdges, edge.ID)
			continue
		}
		if next, ok := m.changes.Renamed[edge.SourceHandle]; ok {
			edge.SourceHandle = next
			if err := e.store.UpdateEdge(ctx, edge); err != nil {
				return fmt.Errorf("rewire edge %s: %w", edge.ID, err)
			}
			res.RenamedEdges = append(res.RenamedEdges, edge.ID)
		}
	}
	return nil
}

func (e *Editor) node(ctx context.Context, nodeID string) (domain.Node, error) {
	nodes, err := e.store.Nodes(ctx)
	if err != nil {
		return domain.Node{}, fmt.Errorf("list nodes: %w", err)
	}
	for _, n := range nodes {
		if n.ID == nodeID {
			return n, nil
		}
	}
	return domain.Node{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
}

func (e *Editor) graph(ctx context.Context) ([]domain.Node, []domain.Edge, error) {
	nodes, err := e.store.Nodes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list nodes: %w", err)
	}
	edges, err := e.store.Edges(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list edges: %w", err)
	}
	return nodes, edges, nil
}

func asIfElse(cfg domain.NodeConfig) *domain.IfElseConfig {
	if c, ok := cfg.(*domain.IfElseConfig); ok {
		return c
	}
	return &domain.IfElseConfig{}
}

func asClassifier(cfg domain.NodeConfig) *domain.ClassifierConfig {
	if c, ok := cfg.(*domain.ClassifierConfig); ok && c != nil {
		return c
	}
	return branch.NewClassifierConfig()
}

func asAggregator(cfg domain.NodeConfig) *domain.AggregatorConfig {
	if c, ok := cfg.(*domain.AggregatorConfig); ok && c != nil {
		return c
	}
	return branch.NewAggregatorConfig()
}

func removedClassIDs(before, after *domain.ClassifierConfig) []string {
	kept := make(map[string]bool, len(after.Classes))
	for _, c := range after.Classes {
		kept[portschema.ClassBranchHandle(c.ID)] = true
	}
	var removed []string
	for _, c := range before.Classes {
		if !kept[portschema.ClassBranchHandle(c.ID)] {
			removed = append(removed, c.ID)
		}
	}
	return removed
}
