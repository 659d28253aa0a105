package server

import (
	"context"
	"time"

	"github.com/niftybulk/papertrade/internal/events"
	"github.com/rs/zerolog"
)

// statusSource produces the current system status
type statusSource interface {
	Snapshot(ctx context.Context) SystemStatusResponse
}

// StatusMonitor periodically checks system status and emits
// SYSTEM_STATUS_CHANGED when it moves between healthy and degraded.
type StatusMonitor struct {
	eventManager *events.Manager
	source       statusSource
	log          zerolog.Logger

	lastStatus string
	lastReason string
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(eventManager *events.Manager, source statusSource, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		eventManager: eventManager,
		source:       source,
		log:          log.With().Str("component", "status_monitor").Logger(),
	}
}

// Run checks immediately and then every interval until ctx is done
func (m *StatusMonitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// check emits an event when status or reason differ from the previous check
func (m *StatusMonitor) check(ctx context.Context) {
	snap := m.source.Snapshot(ctx)
	if ctx.Err() != nil {
		return
	}

	if snap.Status == m.lastStatus && snap.Reason == m.lastReason {
		return
	}
	m.lastStatus = snap.Status
	m.lastReason = snap.Reason

	if snap.Status != "healthy" {
		m.log.Warn().Str("reason", snap.Reason).Msg("System degraded")
	}

	if m.eventManager != nil {
		m.eventManager.EmitTyped("status_monitor", &events.SystemStatusChangedData{
			Status: snap.Status,
			Reason: snap.Reason,
		})
	}
}
