// Package health serves the liveness and readiness probes for a bolbill
// intake process.
//
// /healthz is liveness only: a process that can answer HTTP is alive,
// whatever the state of its catalog or draft store. /readyz runs the
// registered checkers — catalog loaded, draft store reachable — and returns
// 503 until every one passes, which keeps a counter from going live and
// answering every spoken order with "no product found".
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// defaultCheckTimeout bounds a single readiness check. A hung draft-store
// ping must not wedge the probe.
const defaultCheckTimeout = 5 * time.Second

// Checker is one named readiness probe. Check returns nil when the
// dependency can serve and an error describing why not otherwise.
type Checker struct {
	// Name keys the check's result in the probe response ("catalog",
	// "drafts").
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// probeResult is the JSON body served by both probes.
type probeResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the probe endpoints. Safe for concurrent use; the checker
// list is fixed at construction.
type Handler struct {
	checkers []Checker
	timeout  time.Duration
}

// New returns a [Handler] evaluating the given checkers, in order, on every
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c, timeout: defaultCheckTimeout}
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz always answers 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, probeResult{Status: "ok"})
}

// Readyz answers 200 when every checker passes and 503 with the failing
// checks otherwise.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks, ready := h.runChecks(r.Context())

	res := probeResult{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !ready {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// runChecks evaluates every checker, each under its own timeout derived
// from ctx.
func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string, len(h.checkers))
	ready := true

	for _, c := range h.checkers {
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := c.Check(cctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			ready = false
			continue
		}
		checks[c.Name] = "ok"
	}
	return checks, ready
}

// writeJSON encodes v with the given status code, falling back to a
// plain-text 500 when encoding fails.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
