package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/cores", func(r chi.Router) {
			r.Get("/", s.handleListCores)
			r.Get("/{core}/components", s.handleListComponents)
			r.Get("/{core}/components/{component}", s.handleGetComponent)
		})

		r.Get("/devices", s.handleListDevices)
		r.Get("/history/{component}/{control}", s.handleGetHistory)
	})

	return r
}
