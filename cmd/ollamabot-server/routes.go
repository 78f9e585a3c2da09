package main

import "github.com/go-chi/chi/v5"

func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/event", s.globalEvents)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.listRuns)
		r.Post("/", s.startRun)

		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", s.getRun)
			r.Post("/steps", s.stepRun)
			r.Post("/resume", s.resumeRun)
			r.Post("/cancel", s.cancelRun)
			r.Get("/events", s.runEvents)
		})
	})
}
