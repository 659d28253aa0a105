package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/niftybulk/papertrade/internal/database"
	"github.com/niftybulk/papertrade/internal/di"
	"github.com/niftybulk/papertrade/internal/modules/quotes"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/niftybulk/papertrade/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const healthCheckTimeout = 2 * time.Second

// SystemHandlers serves system status and manual job triggers
type SystemHandlers struct {
	db        *database.DB
	quotes    *quotes.Store
	simulator *quotes.Simulator
	session   *session.Store
	scheduler *scheduler.Scheduler
	jobs      map[string]scheduler.Job
	startedAt time.Time
	log       zerolog.Logger
}

// SimulatorStatus describes the price simulator
type SimulatorStatus struct {
	Running     bool  `json:"running"`
	Subscribers int   `json:"subscribers"`
	Ticks       int   `json:"ticks"`
	IntervalMs  int64 `json:"interval_ms"`
	Instruments int   `json:"instruments"`
}

// DatabaseStatus describes the store database
type DatabaseStatus struct {
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// SessionStatus describes the signed-in session
type SessionStatus struct {
	Authenticated bool   `json:"authenticated"`
	Role          string `json:"role"`
	Positions     int    `json:"positions"`
	Transactions  int    `json:"transactions"`
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status            string          `json:"status"` // healthy, degraded
	Reason            string          `json:"reason,omitempty"`
	UptimeSeconds     int64           `json:"uptime_seconds"`
	HostUptimeSeconds uint64          `json:"host_uptime_seconds"`
	CPUPercent        float64         `json:"cpu_percent"`
	MemoryPercent     float64         `json:"memory_percent"`
	Simulator         SimulatorStatus `json:"simulator"`
	Database          DatabaseStatus  `json:"database"`
	Session           SessionStatus   `json:"session"`
	Timestamp         time.Time       `json:"timestamp"`
}

// NewSystemHandlers creates the system handlers. jobs may be nil.
func NewSystemHandlers(
	db *database.DB,
	quoteStore *quotes.Store,
	simulator *quotes.Simulator,
	store *session.Store,
	sched *scheduler.Scheduler,
	jobs *di.JobInstances,
	log zerolog.Logger,
) *SystemHandlers {
	h := &SystemHandlers{
		db:        db,
		quotes:    quoteStore,
		simulator: simulator,
		session:   store,
		scheduler: sched,
		jobs:      make(map[string]scheduler.Job),
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}

	if jobs != nil {
		for _, job := range []scheduler.Job{jobs.WalletSync, jobs.Maintenance, jobs.Backup} {
			if job != nil {
				h.jobs[job.Name()] = job
			}
		}
	}

	return h
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Snapshot(r.Context()), h.log)
}

// Snapshot collects the current system status
func (h *SystemHandlers) Snapshot(ctx context.Context) SystemStatusResponse {
	cpuPercent, memPercent := h.getSystemStats()

	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Simulator: SimulatorStatus{
			Running:     h.simulator.Running(),
			Subscribers: h.simulator.Subscribers(),
			Ticks:       h.simulator.Ticks(),
			IntervalMs:  h.simulator.Interval().Milliseconds(),
			Instruments: h.quotes.Len(),
		},
		Database:  h.databaseStatus(ctx),
		Session:   h.sessionStatus(),
		Timestamp: time.Now().UTC(),
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		resp.HostUptimeSeconds = uptime
	}

	if !resp.Database.Healthy {
		resp.Status = "degraded"
		resp.Reason = "store database: " + resp.Database.Error
	}

	return resp
}

func (h *SystemHandlers) databaseStatus(ctx context.Context) DatabaseStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		return DatabaseStatus{Error: err.Error()}
	}

	status := DatabaseStatus{Healthy: true}
	if stats, err := h.db.GetStats(); err == nil {
		status.Stats = stats
	}
	return status
}

func (h *SystemHandlers) sessionStatus() SessionStatus {
	snap := h.session.Snapshot()
	return SessionStatus{
		Authenticated: snap.Authenticated,
		Role:          string(snap.Role),
		Positions:     len(snap.Portfolio),
		Transactions:  len(snap.Transactions),
	}
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// HandleListJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": names}, h.log)
}

// HandleRunJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, ok := h.jobs[name]
	if !ok || h.scheduler == nil {
		writeError(w, http.StatusNotFound, "unknown job: "+name, h.log)
		return
	}

	start := time.Now()
	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		writeError(w, http.StatusInternalServerError, err.Error(), h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"job":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	}, h.log)
}
