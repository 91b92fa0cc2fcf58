// Package health serves probes for the telemetry listener of a long
// generation run:
//
//   - /healthz: liveness; always 200 while the process serves HTTP.
//   - /readyz: 200 only when every registered [Checker] passes, e.g. the
//     episode store answers a ping.
//   - /status: progress of the current batch of scripts.
//
// Responses are JSON.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named dependency probe. Check returns nil when the dependency
// is usable.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Progress tracks a batch of scripts. The zero value is not usable; use
// [NewProgress]. All methods are safe for concurrent use.
type Progress struct {
	mu      sync.Mutex
	now     func() time.Time
	started time.Time
	total   int
	done    int
	failed  int
	current string
}

// NewProgress returns a Progress for a batch of total scripts.
func NewProgress(total int) *Progress {
	return &Progress{now: time.Now, started: time.Now(), total: total}
}

// Begin marks script as the one being generated.
func (p *Progress) Begin(script string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = script
}

// Finish records the outcome of the current script.
func (p *Progress) Finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if err != nil {
		p.failed++
	}
	p.current = ""
}

// Snapshot is the JSON body of /status.
type Snapshot struct {
	Total   int    `json:"total"`
	Done    int    `json:"done"`
	Failed  int    `json:"failed"`
	Current string `json:"current,omitempty"`
	Elapsed string `json:"elapsed"`
}

// Snapshot returns the current progress.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Total:   p.total,
		Done:    p.done,
		Failed:  p.failed,
		Current: p.current,
		Elapsed: p.now().Sub(p.started).Round(time.Second).String(),
	}
}

// Handler serves the probe endpoints. The checker list is fixed at
// construction.
type Handler struct {
	checkers []Checker
	progress *Progress
}

// New creates a [Handler]. progress may be nil, in which case /status
// reports an empty batch.
func New(progress *Progress, checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c, progress: progress}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz runs every checker sequentially, each with a [checkTimeout]
// deadline, and returns 503 if any fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Status reports batch progress.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	var s Snapshot
	if h.progress != nil {
		s = h.progress.Snapshot()
	}
	writeJSON(w, http.StatusOK, s)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /status", h.Status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
