package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const meterName = "polis-flow.editor"

// Action outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Resolution outcomes.
const (
	ResolutionHit       = "hit"
	ResolutionMiss      = "miss"
	ResolutionMalformed = "malformed"
	ResolutionDenied    = "denied"
)

var (
	metricsOnce         sync.Once
	metricsInitErr      error
	actionCounter       metric.Int64Counter
	edgesPrunedCounter  metric.Int64Counter
	edgesRenamedCounter metric.Int64Counter
	actionLatency       metric.Float64Histogram
	collectLatency      metric.Float64Histogram
	collectGroups       metric.Int64Histogram
	resolutionCounter   metric.Int64Counter
	poolClearCounter    metric.Int64Counter
	portRegenerations   metric.Int64Counter
)

// ActionMetrics describes one applied editor action.
type ActionMetrics struct {
	Action       string
	NodeID       string
	NodeKind     string
	Outcome      string
	Duration     time.Duration
	EdgesPruned  int
	EdgesRenamed int
	PortsChanged bool
}

// RecordAction emits the counters and latency of one editor action.
func RecordAction(ctx context.Context, m ActionMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("flow.action", m.Action),
		attribute.String("node.kind", m.NodeKind),
		attribute.String("flow.outcome", m.Outcome),
	)

	actionCounter.Add(ctx, 1, attrs)
	if m.Duration > 0 {
		actionLatency.Record(ctx, float64(m.Duration)/float64(time.Millisecond), attrs)
	}
	if m.EdgesPruned > 0 {
		edgesPrunedCounter.Add(ctx, int64(m.EdgesPruned), attrs)
	}
	if m.EdgesRenamed > 0 {
		edgesRenamedCounter.Add(ctx, int64(m.EdgesRenamed), attrs)
	}
	if m.PortsChanged {
		portRegenerations.Add(ctx, 1, metric.WithAttributes(attribute.String("node.kind", m.NodeKind)))
	}
}

// RecordCollect emits the latency and result size of one upstream collection.
func RecordCollect(ctx context.Context, duration time.Duration, groups int) {
	if err := ensureMetrics(); err != nil {
		return
	}
	collectLatency.Record(ctx, float64(duration)/float64(time.Millisecond))
	collectGroups.Record(ctx, int64(groups))
}

// RecordResolution counts one variable lookup by outcome.
func RecordResolution(ctx context.Context, outcome string) {
	if err := ensureMetrics(); err != nil {
		return
	}
	resolutionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("flow.outcome", outcome)))
}

// RecordPoolClear counts explicit pool purges. scope is "run" or "node".
func RecordPoolClear(ctx context.Context, scope string) {
	if err := ensureMetrics(); err != nil {
		return
	}
	poolClearCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("flow.scope", scope)))
}

// RecordPrunedEdges attaches an event naming the deleted edges to span.
func RecordPrunedEdges(span trace.Span, nodeID string, edgeIDs []string) {
	if span == nil || !span.IsRecording() || len(edgeIDs) == 0 {
		return
	}
	span.AddEvent("flow.edges.pruned", trace.WithAttributes(
		attribute.String("node.id", nodeID),
		attribute.StringSlice("edge.ids", edgeIDs),
		attribute.Int("edge.count", len(edgeIDs)),
	))
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)

		actionCounter, metricsInitErr = meter.Int64Counter(
			"flow.editor.actions_total",
			metric.WithDescription("Editor actions partitioned by action and outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		actionLatency, metricsInitErr = meter.Float64Histogram(
			"flow.editor.action_duration_ms",
			metric.WithDescription("Time to apply an editor action including edge cascade"),
			metric.WithUnit("ms"),
		)
		if metricsInitErr != nil {
			return
		}

		edgesPrunedCounter, metricsInitErr = meter.Int64Counter(
			"flow.editor.edges_pruned_total",
			metric.WithDescription("Edges deleted because their source branch disappeared"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		edgesRenamedCounter, metricsInitErr = meter.Int64Counter(
			"flow.editor.edges_renamed_total",
			metric.WithDescription("Edges moved to a renamed source handle"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		portRegenerations, metricsInitErr = meter.Int64Counter(
			"flow.editor.port_regenerations_total",
			metric.WithDescription("Port schemas rewritten after a config change"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		collectLatency, metricsInitErr = meter.Float64Histogram(
			"flow.upstream.collect_duration_ms",
			metric.WithDescription("Upstream variable collection latency"),
			metric.WithUnit("ms"),
		)
		if metricsInitErr != nil {
			return
		}

		collectGroups, metricsInitErr = meter.Int64Histogram(
			"flow.upstream.groups",
			metric.WithDescription("Ancestor groups returned per upstream collection"),
			metric.WithUnit("{group}"),
		)
		if metricsInitErr != nil {
			return
		}

		resolutionCounter, metricsInitErr = meter.Int64Counter(
			"flow.pool.resolutions_total",
			metric.WithDescription("Variable pool lookups partitioned by outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		poolClearCounter, metricsInitErr = meter.Int64Counter(
			"flow.pool.clears_total",
			metric.WithDescription("Explicit variable pool purges"),
			metric.WithUnit("{count}"),
		)
	})

	return metricsInitErr
}
