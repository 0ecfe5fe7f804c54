package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudylake/tenantapi/internal/respond"
)

// HealthChecker is anything that can report dependency liveness
type HealthChecker func(ctx context.Context) error

// HealthHandler exposes liveness and readiness probes
type HealthHandler struct {
	respond *respond.Responder
	checks  map[string]HealthChecker
}

// NewHealthHandler creates the health handler with named dependency checks
func NewHealthHandler(responder *respond.Responder, checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{respond: responder, checks: checks}
}

// Live handles GET /healthz. The process answering at all is the check.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.respond.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz and pings every registered dependency
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	results := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			healthy = false
		} else {
			results[name] = "ok"
		}
	}

	code := http.StatusOK
	status := "success"
	if !healthy {
		code = http.StatusServiceUnavailable
		status = "error"
	}
	h.respond.JSON(w, code, respond.Envelope{Status: status, Data: results})
}
