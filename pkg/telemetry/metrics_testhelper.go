package telemetry

import "sync"

// ResetMetricsForTest clears cached metric instruments so tests can
// reinitialize them against a fresh MeterProvider. This is intended for
// use in test code only.
func ResetMetricsForTest() {
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	actionCounter = nil
	actionLatency = nil
	edgesPrunedCounter = nil
	edgesRenamedCounter = nil
	portRegenerations = nil
	collectLatency = nil
	collectGroups = nil
	resolutionCounter = nil
	poolClearCounter = nil
}
