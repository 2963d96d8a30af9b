package gatekeeper

import (
	"testing"
	"time"
)

// Counters touched by one login followed by one refresh.
var loginRefreshPath = [...]MetricID{
	MetricLoginSuccess,
	MetricSessionCreated,
	MetricAuthenticateSuccess,
	MetricRefreshSuccess,
	MetricAuthenticateSuccess,
	MetricBlacklistHit,
}

func BenchmarkMetricsInc(b *testing.B) {
	for _, enabled := range []bool{true, false} {
		name := "enabled"
		if !enabled {
			name = "disabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					m.Inc(MetricAuthenticateSuccess)
				}
			})
		})
	}
}

func BenchmarkMetricsLoginRefreshPath(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Inc(loginRefreshPath[i%len(loginRefreshPath)])
			i++
		}
	})
}

func BenchmarkMetricsObserveLatency(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	samples := []time.Duration{300 * time.Microsecond, 4 * time.Millisecond, 40 * time.Millisecond, time.Second}
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Observe(MetricAuthenticateLatency, samples[i%len(samples)])
			i++
		}
	})
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for id := MetricID(0); id < metricIDCount; id++ {
		m.Inc(id)
	}
	b.ReportAllocs()
	for b.Loop() {
		_ = m.Snapshot()
	}
}
