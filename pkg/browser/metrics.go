package browser

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gonzobot/gonzo/pkg/telemetry"
)

// Metrics tracks browser session performance counters.
type Metrics struct {
	SessionsOpened atomic.Int64
	SessionsClosed atomic.Int64
	ActiveSessions atomic.Int64

	SubmitCount    atomic.Int64
	SubmitFailures atomic.Int64
	ReadCount      atomic.Int64

	SubmitLatencySum   atomic.Int64 // nanoseconds sum for averaging
	SubmitLatencyCount atomic.Int64

	mu    sync.RWMutex
	hub   *telemetry.Hub
	runID string
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// EnableTelemetry wires the metrics collector to a telemetry hub.
func (m *Metrics) EnableTelemetry(hub *telemetry.Hub, runID string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.hub = hub
	m.runID = runID
	m.mu.Unlock()
}

// RecordSessionOpened increments session open counters.
func (m *Metrics) RecordSessionOpened(sessionID, url string) {
	if m == nil {
		return
	}
	m.SessionsOpened.Add(1)
	m.ActiveSessions.Add(1)
	m.publishEvent(telemetry.EventSessionOpened, sessionID, map[string]any{
		"url": url,
	})
}

// RecordSessionClosed increments session close counters.
func (m *Metrics) RecordSessionClosed(sessionID string) {
	if m == nil {
		return
	}
	m.SessionsClosed.Add(1)
	m.ActiveSessions.Add(-1)
	m.publishEvent(telemetry.EventSessionClosed, sessionID, nil)
}

// RecordSubmit tracks a submission attempt and its latency.
func (m *Metrics) RecordSubmit(sessionID string, success bool, latency time.Duration) {
	if m == nil {
		return
	}
	m.SubmitCount.Add(1)
	if success {
		m.SubmitLatencySum.Add(latency.Nanoseconds())
		m.SubmitLatencyCount.Add(1)
		m.publishEvent(telemetry.EventSubmit, sessionID, map[string]any{
			"latency_ms": latency.Milliseconds(),
		})
		return
	}
	m.SubmitFailures.Add(1)
	m.publishEvent(telemetry.EventSubmitFailed, sessionID, map[string]any{
		"latency_ms": latency.Milliseconds(),
	})
}

// RecordRead increments the output read counter.
func (m *Metrics) RecordRead() {
	if m == nil {
		return
	}
	m.ReadCount.Add(1)
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	avgSubmitLatency := time.Duration(0)
	if count := m.SubmitLatencyCount.Load(); count > 0 {
		avgSubmitLatency = time.Duration(m.SubmitLatencySum.Load() / count)
	}
	return MetricsSnapshot{
		SessionsOpened:       m.SessionsOpened.Load(),
		SessionsClosed:       m.SessionsClosed.Load(),
		ActiveSessions:       m.ActiveSessions.Load(),
		SubmitCount:          m.SubmitCount.Load(),
		SubmitFailures:       m.SubmitFailures.Load(),
		ReadCount:            m.ReadCount.Load(),
		AverageSubmitLatency: avgSubmitLatency,
	}
}

func (m *Metrics) publishEvent(eventType telemetry.EventType, sessionID string, data map[string]any) {
	m.mu.RLock()
	hub := m.hub
	runID := m.runID
	m.mu.RUnlock()
	if hub == nil {
		return
	}
	hub.Publish(telemetry.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     runID,
		SessionID: sessionID,
		Data:      data,
	})
}

// MetricsSnapshot is a point-in-time copy of browser metrics.
type MetricsSnapshot struct {
	SessionsOpened       int64
	SessionsClosed       int64
	ActiveSessions       int64
	SubmitCount          int64
	SubmitFailures       int64
	ReadCount            int64
	AverageSubmitLatency time.Duration
}
