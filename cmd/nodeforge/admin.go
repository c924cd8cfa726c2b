package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rendis/nodeforge/internal/editor"
)

// healthStatus is the /healthz payload.
type healthStatus struct {
	Status     string       `json:"status"`
	Types      int          `json:"types"`
	Containers int          `json:"containers"`
	Blueprints int          `json:"blueprints"`
	Editor     editor.Stats `json:"editor"`
}

// newAdminRouter serves the operational endpoints.
func newAdminRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		containers, blueprints := a.index.Counts()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthStatus{
			Status:     "ok",
			Types:      a.types.Count(),
			Containers: containers,
			Blueprints: blueprints,
			Editor:     a.editor.Stats(),
		})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	return r
}
