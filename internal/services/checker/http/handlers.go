// Package http provides http transport for the checker
package http

import (
	stdhttp "net/http"

	"cyberchecker/internal/modkit/httpkit"
	"cyberchecker/internal/services/checker/domain"
)

// Register mounts checker control endpoints on the given router
func Register(r httpkit.Router, c domain.CheckerPort) {
	h := &handlers{checker: c}

	httpkit.PostJSON[domain.SessionConfig](r, "/start", h.start)
	httpkit.Post(r, "/pause", h.pause)
	httpkit.Post(r, "/resume", h.resume)
	httpkit.Post(r, "/stop", h.stop)
	httpkit.Get(r, "/snapshot", h.snapshot)
}

type handlers struct{ checker domain.CheckerPort }

// StartResponse carries the identifier of a freshly launched session
type StartResponse struct {
	SessionID string `json:"session_id"`
}

// @Summary Start a checking session
// @Tags Checker
// @Accept json
// @Produce json
// @Param payload body domain.SessionConfig true "Session options"
// @Success 200 {object} StartResponse "started"
// @Failure 409 {object} phttp.Envelope "a session is already running"
// @Router /checker/start [post]
func (h *handlers) start(r *stdhttp.Request, in domain.SessionConfig) (any, error) {
	id, err := h.checker.Start(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return StartResponse{SessionID: id}, nil
}

// @Summary Pause the running session
// @Tags Checker
// @Produce json
// @Success 200 {object} domain.Snapshot "ok"
// @Router /checker/pause [post]
func (h *handlers) pause(r *stdhttp.Request) (any, error) {
	if err := h.checker.Pause(r.Context()); err != nil {
		return nil, err
	}
	return h.checker.Snapshot(r.Context()), nil
}

// @Summary Resume a paused session
// @Tags Checker
// @Produce json
// @Success 200 {object} domain.Snapshot "ok"
// @Router /checker/resume [post]
func (h *handlers) resume(r *stdhttp.Request) (any, error) {
	if err := h.checker.Resume(r.Context()); err != nil {
		return nil, err
	}
	return h.checker.Snapshot(r.Context()), nil
}

// @Summary Stop the running session
// @Tags Checker
// @Produce json
// @Success 200 {object} domain.Snapshot "ok"
// @Router /checker/stop [post]
func (h *handlers) stop(r *stdhttp.Request) (any, error) {
	if err := h.checker.Stop(r.Context()); err != nil {
		return nil, err
	}
	return h.checker.Snapshot(r.Context()), nil
}

// @Summary Session counters
// @Tags Checker
// @Produce json
// @Success 200 {object} domain.Snapshot "ok"
// @Router /checker/snapshot [get]
func (h *handlers) snapshot(r *stdhttp.Request) (any, error) {
	return h.checker.Snapshot(r.Context()), nil
}
