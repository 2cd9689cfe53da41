package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
		Metrics(),
	)

	// Stateless analysis
	mux.Handle("POST /api/v1/analyze", chain(http.HandlerFunc(h.Analyze)))

	// Projects
	mux.Handle("GET /api/v1/projects", chain(http.HandlerFunc(h.ListProjects)))
	mux.Handle("POST /api/v1/projects", chain(http.HandlerFunc(h.CreateProject)))
	mux.Handle("GET /api/v1/projects/{id}", chain(http.HandlerFunc(h.GetProject)))
	mux.Handle("PUT /api/v1/projects/{id}", chain(http.HandlerFunc(h.UpdateProject)))
	mux.Handle("DELETE /api/v1/projects/{id}", chain(http.HandlerFunc(h.DeleteProject)))
	mux.Handle("GET /api/v1/projects/{id}/tasks", chain(http.HandlerFunc(h.GetProjectTasks)))
	mux.Handle("PUT /api/v1/projects/{id}/tasks", chain(http.HandlerFunc(h.SetProjectTasks)))
	mux.Handle("PUT /api/v1/projects/{id}/snapshots", chain(http.HandlerFunc(h.SetProjectSnapshots)))

	// Analyses
	mux.Handle("POST /api/v1/projects/{id}/analyses", chain(http.HandlerFunc(h.CreateAnalysis)))
	mux.Handle("GET /api/v1/projects/{id}/analyses", chain(http.HandlerFunc(h.ListAnalyses)))
	mux.Handle("GET /api/v1/analyses/{id}", chain(http.HandlerFunc(h.GetAnalysis)))

	// Browser app
	mux.Handle("GET /api/health", chain(http.HandlerFunc(h.LegacyHealth)))
	mux.Handle("GET /api/tasks", chain(http.HandlerFunc(h.LegacyGetTasks)))
	mux.Handle("POST /api/tasks", chain(http.HandlerFunc(h.LegacySetTasks)))
	mux.Handle("POST /api/analyze", chain(http.HandlerFunc(h.LegacyAnalyze)))
}
