// Package metrics keeps the engine's counters and the Authenticate latency
// histogram in fixed arrays indexed by MetricID.
//
// Each counter sits in its own cache-line-padded slot and is bumped with a
// single atomic add, so the hot path never allocates or locks. The histogram has
// eight buckets from 5ms to +Inf.
//
// Exporters under metrics/export read Snapshot values; this package never does
// I/O and has no global registry.
package metrics
