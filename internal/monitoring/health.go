package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker reports liveness and batch progress while a long
// optimization or multi-symbol run is in flight.
type HealthChecker struct {
	mu            sync.RWMutex
	runsCompleted int
	runsFailed    int
	lastRunAt     time.Time
	errors        []string
}

type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	RunsCompleted int       `json:"runs_completed"`
	RunsFailed    int       `json:"runs_failed"`
	LastRunAt     time.Time `json:"last_run_at,omitempty"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

// RunCompleted marks one finished run, failed or not.
func (h *HealthChecker) RunCompleted(failed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRunAt = time.Now()
	if failed {
		h.runsFailed++
	} else {
		h.runsCompleted++
	}
}

// ReportError records a batch-level error for the health payload.
func (h *HealthChecker) ReportError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if h.runsFailed > h.runsCompleted {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	if len(h.errors) > 0 {
		status = "unhealthy"
		code = http.StatusInternalServerError
	}

	health := HealthStatus{
		Status:        status,
		Timestamp:     time.Now(),
		RunsCompleted: h.runsCompleted,
		RunsFailed:    h.runsFailed,
		LastRunAt:     h.lastRunAt,
		Uptime:        time.Since(startTime).String(),
		Errors:        h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
