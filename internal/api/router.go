package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Bearer extraction runs globally and never rejects; the protected group's
// requireAuth is what turns a missing principal into a 401. The public
// allow-list is exactly login, register, refresh, and health.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.authMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/refresh", s.handleRefresh)

		// WebSocket upgrade. Browsers cannot send a bearer header on a
		// WebSocket dial, so the handler authenticates with a single-use
		// ticket minted by the protected /auth/ws-ticket endpoint.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// System metrics
			r.Get("/metrics", s.handleMetrics)

			// Author endpoints
			r.Route("/authors", func(r chi.Router) {
				r.Get("/", s.handleListAuthors)
				r.Post("/", s.handleCreateAuthor)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetAuthor)
					r.Put("/", s.handleUpdateAuthor)
					r.Delete("/", s.handleDeleteAuthor)
					r.Get("/projects", s.handleListAuthorProjects)
				})
			})

			// Evaluator endpoints
			r.Route("/evaluators", func(r chi.Router) {
				r.Get("/", s.handleListEvaluators)
				r.Post("/", s.handleCreateEvaluator)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetEvaluator)
					r.Put("/", s.handleUpdateEvaluator)
					r.Delete("/", s.handleDeleteEvaluator)
					r.Get("/evaluations", s.handleListEvaluatorEvaluations)
				})
			})

			// Project endpoints
			r.Route("/projects", func(r chi.Router) {
				r.Get("/", s.handleListProjects)
				r.Post("/", s.handleCreateProject)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetProject)
					r.Put("/", s.handleUpdateProject)
					r.Delete("/", s.handleDeleteProject)
					r.Get("/evaluations", s.handleListProjectEvaluations)

					r.Route("/authors", func(r chi.Router) {
						r.Get("/", s.handleListProjectAuthors)
						r.Put("/", s.handleSetProjectAuthors)
						r.Post("/{authorID}", s.handleAddProjectAuthor)
						r.Delete("/{authorID}", s.handleRemoveProjectAuthor)
					})
				})
			})

			// Evaluation endpoints
			r.Route("/evaluations", func(r chi.Router) {
				r.Get("/", s.handleListEvaluations)
				r.Post("/", s.handleCreateEvaluation)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetEvaluation)
					r.Put("/", s.handleUpdateEvaluation)
					r.Delete("/", s.handleDeleteEvaluation)
				})
			})

			// Status endpoints
			r.Route("/statuses", func(r chi.Router) {
				r.Get("/", s.handleListStatuses)
				r.Post("/", s.handleCreateStatus)
				r.Get("/{id}", s.handleGetStatus)
			})

			// Schedule endpoints
			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", s.handleListSchedules)
				r.Post("/", s.handleCreateSchedule)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetSchedule)
					r.Put("/", s.handleUpdateSchedule)
					r.Delete("/", s.handleDeleteSchedule)
					r.Get("/prizes", s.handleListSchedulePrizes)
				})
			})

			// Prize endpoints
			r.Route("/prizes", func(r chi.Router) {
				r.Get("/", s.handleListPrizes)
				r.Post("/", s.handleCreatePrize)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetPrize)
					r.Put("/", s.handleUpdatePrize)
					r.Delete("/", s.handleDeletePrize)
				})
			})

			// Audit log
			r.Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
