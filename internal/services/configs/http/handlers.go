// Package http provides http transport for configs
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"cyberchecker/internal/modkit/httpkit"
	"cyberchecker/internal/services/configs/domain"
	svc "cyberchecker/internal/services/configs/service"
)

// Register mounts config endpoints on the given router
func Register(r httpkit.Router, s *svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{name}", h.get)
	httpkit.PutJSON[domain.CheckConfig](r, "/{name}", h.put)
	httpkit.Delete(r, "/{name}", h.del)
}

type handlers struct{ svc *svc.Service }

// @Summary List config names
// @Tags Configs
// @Produce json
// @Success 200 {array} string "ok"
// @Router /configs [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	return h.svc.List(r.Context())
}

// @Summary Get one config
// @Tags Configs
// @Produce json
// @Param name path string true "Config name"
// @Success 200 {object} domain.CheckConfig "ok"
// @Router /configs/{name} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.svc.Load(r.Context(), chi.URLParam(r, "name"))
}

// @Summary Create or replace a config
// @Tags Configs
// @Accept json
// @Produce json
// @Param name path string true "Config name"
// @Param payload body domain.CheckConfig true "Config"
// @Success 200 {object} domain.CheckConfig "ok"
// @Router /configs/{name} [put]
func (h *handlers) put(r *stdhttp.Request, in domain.CheckConfig) (any, error) {
	name := chi.URLParam(r, "name")
	if err := h.svc.Save(r.Context(), name, in); err != nil {
		return nil, err
	}
	return h.svc.Load(r.Context(), name)
}

// @Summary Delete a config
// @Tags Configs
// @Param name path string true "Config name"
// @Success 204 "deleted"
// @Router /configs/{name} [delete]
func (h *handlers) del(r *stdhttp.Request) (any, error) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}
