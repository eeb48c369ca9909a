package relay

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks adapter traffic counters. Cheap enough to update on every
// message; read through Snapshot.
type Metrics struct {
	messagesSent     atomic.Uint64
	messagesReceived atomic.Uint64
	messagesFailed   atomic.Uint64

	errorsByCode map[ErrorCode]*atomic.Uint64
	errorsMu     sync.RWMutex

	startTime time.Time
}

// NewMetrics creates a Metrics instance for an adapter.
func NewMetrics() *Metrics {
	return &Metrics{
		errorsByCode: make(map[ErrorCode]*atomic.Uint64),
		startTime:    time.Now(),
	}
}

// RecordMessageSent increments the sent message counter.
func (m *Metrics) RecordMessageSent() {
	m.messagesSent.Add(1)
}

// RecordMessageReceived increments the received message counter.
func (m *Metrics) RecordMessageReceived() {
	m.messagesReceived.Add(1)
}

// RecordMessageFailed increments the failed message counter.
func (m *Metrics) RecordMessageFailed() {
	m.messagesFailed.Add(1)
}

// RecordError increments the error counter for a specific error code.
func (m *Metrics) RecordError(code ErrorCode) {
	m.errorsMu.Lock()
	counter, exists := m.errorsByCode[code]
	if !exists {
		counter = &atomic.Uint64{}
		m.errorsByCode[code] = counter
	}
	m.errorsMu.Unlock()

	counter.Add(1)
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	MessagesSent     uint64
	MessagesReceived uint64
	MessagesFailed   uint64
	ErrorsByCode     map[ErrorCode]uint64
	Uptime           time.Duration
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		MessagesSent:     m.messagesSent.Load(),
		MessagesReceived: m.messagesReceived.Load(),
		MessagesFailed:   m.messagesFailed.Load(),
		ErrorsByCode:     make(map[ErrorCode]uint64),
		Uptime:           time.Since(m.startTime),
	}

	m.errorsMu.RLock()
	for code, counter := range m.errorsByCode {
		snap.ErrorsByCode[code] = counter.Load()
	}
	m.errorsMu.RUnlock()

	return snap
}
