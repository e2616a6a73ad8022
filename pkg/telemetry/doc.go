// Package telemetry wires OpenTelemetry tracing and metrics, plus the
// Prometheus registry served by the flowctl watch command.
//
// Editor actions, upstream collection and variable resolution record their
// counters through the process-wide MeterProvider so hosts decide where the
// data goes; with no provider installed every call is a no-op.
package telemetry
