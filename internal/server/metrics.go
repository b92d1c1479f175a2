package server

import (
	"sync"
)

// Metrics holds the server's in-process counters. Snapshots are served as
// JSON by the admin surface; there is no external metrics backend.
type Metrics struct {
	mu sync.RWMutex

	// Session lifecycle
	sessionsTotal  int64
	sessionsActive int64

	// Authentication
	authSuccessTotal int64
	authFailureTotal int64

	// Authorization
	accessDeniedTotal int64

	// Transfers
	transfersTotal      int64
	transferBytesTotal  int64
	transferErrorsTotal int64
	incompleteTotal     int64
}

// NewMetrics returns a zeroed counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// SessionStarted records an accepted connection.
func (m *Metrics) SessionStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsTotal++
	m.sessionsActive++
}

// SessionEnded records a closed connection.
func (m *Metrics) SessionEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsActive--
}

// RecordAuth records an authentication outcome.
func (m *Metrics) RecordAuth(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.authSuccessTotal++
	} else {
		m.authFailureTotal++
	}
}

// RecordAccessDenied records a department mismatch rejection.
func (m *Metrics) RecordAccessDenied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessDeniedTotal++
}

// RecordTransfer records a completed upload.
func (m *Metrics) RecordTransfer(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfersTotal++
	m.transferBytesTotal += bytes
}

// RecordTransferError records an upload that failed at the writer.
func (m *Metrics) RecordTransferError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transferErrorsTotal++
}

// RecordIncomplete records a peer that disconnected mid-stream.
func (m *Metrics) RecordIncomplete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incompleteTotal++
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		SessionsTotal:       m.sessionsTotal,
		SessionsActive:      m.sessionsActive,
		AuthSuccessTotal:    m.authSuccessTotal,
		AuthFailureTotal:    m.authFailureTotal,
		AccessDeniedTotal:   m.accessDeniedTotal,
		TransfersTotal:      m.transfersTotal,
		TransferBytesTotal:  m.transferBytesTotal,
		TransferErrorsTotal: m.transferErrorsTotal,
		IncompleteTotal:     m.incompleteTotal,
	}
}

// MetricsSnapshot is the JSON shape served by /metrics.
type MetricsSnapshot struct {
	SessionsTotal       int64 `json:"sessions_total"`
	SessionsActive      int64 `json:"sessions_active"`
	AuthSuccessTotal    int64 `json:"auth_success_total"`
	AuthFailureTotal    int64 `json:"auth_failure_total"`
	AccessDeniedTotal   int64 `json:"access_denied_total"`
	TransfersTotal      int64 `json:"transfers_total"`
	TransferBytesTotal  int64 `json:"transfer_bytes_total"`
	TransferErrorsTotal int64 `json:"transfer_errors_total"`
	IncompleteTotal     int64 `json:"incomplete_total"`
}
