// Package http provides http transport for results
package http

import (
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"cyberchecker/internal/modkit/httpkit"
	chkdomain "cyberchecker/internal/services/checker/domain"
	svc "cyberchecker/internal/services/results/service"
)

// Register mounts result endpoints on the given router
func Register(r httpkit.Router, s *svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/sessions", h.listSessions)
	httpkit.Get(r, "/sessions/{id}", h.getSession)
	httpkit.Get(r, "/sessions/{id}/outcomes", h.listOutcomes)
	httpkit.Get(r, "/sessions/{id}/hits", h.listHits)
	httpkit.Post(r, "/sessions/{id}/export", h.export)
}

type handlers struct{ svc *svc.Service }

func limitParam(r *stdhttp.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

// @Summary List checking sessions
// @Tags Results
// @Produce json
// @Param limit query int false "Max sessions"
// @Success 200 {array} domain.SessionRow "ok"
// @Router /results/sessions [get]
func (h *handlers) listSessions(r *stdhttp.Request) (any, error) {
	return h.svc.ListSessions(r.Context(), limitParam(r))
}

// @Summary Get one session
// @Tags Results
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} domain.SessionRow "ok"
// @Router /results/sessions/{id} [get]
func (h *handlers) getSession(r *stdhttp.Request) (any, error) {
	return h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
}

// @Summary List session outcomes
// @Tags Results
// @Produce json
// @Param id path string true "Session id"
// @Param outcome query string false "Comma separated outcome filter"
// @Param limit query int false "Max rows"
// @Success 200 {array} domain.OutcomeRow "ok"
// @Router /results/sessions/{id}/outcomes [get]
func (h *handlers) listOutcomes(r *stdhttp.Request) (any, error) {
	var outcomes []string
	if raw := r.URL.Query().Get("outcome"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outcomes = append(outcomes, o)
			}
		}
	}
	return h.svc.ListOutcomes(r.Context(), chi.URLParam(r, "id"), outcomes, limitParam(r))
}

// @Summary List session hits
// @Tags Results
// @Produce json
// @Param id path string true "Session id"
// @Param limit query int false "Max rows"
// @Success 200 {array} domain.OutcomeRow "ok"
// @Router /results/sessions/{id}/hits [get]
func (h *handlers) listHits(r *stdhttp.Request) (any, error) {
	hits := []string{string(chkdomain.OutcomeValid), string(chkdomain.OutcomeFree)}
	return h.svc.ListOutcomes(r.Context(), chi.URLParam(r, "id"), hits, limitParam(r))
}

// @Summary Export session results to text files
// @Tags Results
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} domain.ExportFiles "ok"
// @Router /results/sessions/{id}/export [post]
func (h *handlers) export(r *stdhttp.Request) (any, error) {
	return h.svc.Export(r.Context(), chi.URLParam(r, "id"))
}
