package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installManualReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
		ResetMetricsForTest()
	})

	ResetMetricsForTest()
	return reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	metrics := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			metrics[m.Name] = m
		}
	}
	return metrics
}

func TestRecordAction(t *testing.T) {
	reader := installManualReader(t)
	ctx := context.Background()

	RecordAction(ctx, ActionMetrics{
		Action:       "remove_case",
		NodeID:       "ie",
		NodeKind:     "if-else",
		Outcome:      OutcomeApplied,
		Duration:     40 * time.Millisecond,
		EdgesPruned:  2,
		EdgesRenamed: 1,
		PortsChanged: true,
	})

	metrics := collectMetrics(t, reader)

	actions, ok := metrics["flow.editor.actions_total"]
	if !ok {
		t.Fatalf("missing flow.editor.actions_total metric")
	}
	actionData, ok := actions.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type for actions metric")
	}
	if len(actionData.DataPoints) != 1 {
		t.Fatalf("expected 1 datapoint, got %d", len(actionData.DataPoints))
	}
	if actionData.DataPoints[0].Value != 1 {
		t.Fatalf("expected action count 1, got %d", actionData.DataPoints[0].Value)
	}
	if value, ok := actionData.DataPoints[0].Attributes.Value(attribute.Key("flow.action")); !ok || value.AsString() != "remove_case" {
		t.Fatalf("expected flow.action attribute remove_case, got %v", value)
	}

	pruned := metrics["flow.editor.edges_pruned_total"].Data.(metricdata.Sum[int64])
	if pruned.DataPoints[0].Value != 2 {
		t.Fatalf("expected pruned count 2, got %d", pruned.DataPoints[0].Value)
	}

	renamed := metrics["flow.editor.edges_renamed_total"].Data.(metricdata.Sum[int64])
	if renamed.DataPoints[0].Value != 1 {
		t.Fatalf("expected renamed count 1, got %d", renamed.DataPoints[0].Value)
	}

	regen := metrics["flow.editor.port_regenerations_total"].Data.(metricdata.Sum[int64])
	if regen.DataPoints[0].Value != 1 {
		t.Fatalf("expected regeneration count 1, got %d", regen.DataPoints[0].Value)
	}

	hist, ok := metrics["flow.editor.action_duration_ms"]
	if !ok {
		t.Fatalf("missing flow.editor.action_duration_ms metric")
	}
	histData := hist.Data.(metricdata.Histogram[float64])
	if histData.DataPoints[0].Count != 1 {
		t.Fatalf("expected histogram count 1, got %d", histData.DataPoints[0].Count)
	}
	if histData.DataPoints[0].Sum != 40 {
		t.Fatalf("expected histogram sum 40, got %v", histData.DataPoints[0].Sum)
	}
}

func TestRecordAction_RejectedSkipsCascadeCounters(t *testing.T) {
	reader := installManualReader(t)

	RecordAction(context.Background(), ActionMetrics{
		Action:   "rename_group",
		NodeKind: "variable-aggregator",
		Outcome:  OutcomeRejected,
	})

	metrics := collectMetrics(t, reader)
	if _, ok := metrics["flow.editor.actions_total"]; !ok {
		t.Fatalf("missing flow.editor.actions_total metric")
	}
	for _, name := range []string{"flow.editor.edges_pruned_total", "flow.editor.port_regenerations_total"} {
		if m, ok := metrics[name]; ok {
			if data := m.Data.(metricdata.Sum[int64]); len(data.DataPoints) > 0 {
				t.Fatalf("expected no datapoints for %s, got %d", name, len(data.DataPoints))
			}
		}
	}
}

func TestRecordCollectAndResolution(t *testing.T) {
	reader := installManualReader(t)
	ctx := context.Background()

	RecordCollect(ctx, 3*time.Millisecond, 4)
	RecordResolution(ctx, ResolutionHit)
	RecordResolution(ctx, ResolutionHit)
	RecordResolution(ctx, ResolutionDenied)
	RecordPoolClear(ctx, "run")

	metrics := collectMetrics(t, reader)

	groups := metrics["flow.upstream.groups"].Data.(metricdata.Histogram[int64])
	if groups.DataPoints[0].Sum != 4 {
		t.Fatalf("expected group sum 4, got %d", groups.DataPoints[0].Sum)
	}

	resolutions := metrics["flow.pool.resolutions_total"].Data.(metricdata.Sum[int64])
	counts := map[string]int64{}
	for _, dp := range resolutions.DataPoints {
		value, _ := dp.Attributes.Value(attribute.Key("flow.outcome"))
		counts[value.AsString()] = dp.Value
	}
	if counts[ResolutionHit] != 2 || counts[ResolutionDenied] != 1 {
		t.Fatalf("unexpected resolution counts %v", counts)
	}

	clears := metrics["flow.pool.clears_total"].Data.(metricdata.Sum[int64])
	if clears.DataPoints[0].Value != 1 {
		t.Fatalf("expected clear count 1, got %d", clears.DataPoints[0].Value)
	}
}

func TestRecordPrunedEdges(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider()
	tp.RegisterSpanProcessor(recorder)
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "editor.remove_case")
	RecordPrunedEdges(span, "ie", []string{"e1", "e2"})
	RecordPrunedEdges(span, "ie", nil)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	events := spans[0].Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 prune event, got %d", len(events))
	}
	event := events[0]
	if event.Name != "flow.edges.pruned" {
		t.Fatalf("unexpected event name %q", event.Name)
	}

	attrs := attribute.NewSet(event.Attributes...)
	if value, ok := attrs.Value(attribute.Key("node.id")); !ok || value.AsString() != "ie" {
		t.Fatalf("expected node.id 'ie', got %v", value)
	}
	if value, ok := attrs.Value(attribute.Key("edge.count")); !ok || value.AsInt64() != 2 {
		t.Fatalf("expected edge.count 2, got %v", value)
	}

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown tracer provider: %v", err)
	}
}
