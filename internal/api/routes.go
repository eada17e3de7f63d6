package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/login", s.handleLogin)
		r.Post("/login/trial", s.handleTrialLogin)
		r.Post("/login/admin", s.handleAdminLogin)
		r.Post("/logout", s.handleLogout)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Post("/wrong-book", s.handleStartWrongBook)
			r.Post("/favorites", s.handleStartFavorites)
			r.Route("/{phone}", func(r chi.Router) {
				r.Get("/", s.handleSessionState)
				r.Post("/answer", s.handleAnswer)
				r.Post("/skip", s.handleSkip)
				r.Post("/next", s.handleNext)
				r.Post("/previous", s.handlePrevious)
				r.Post("/mark", s.handleToggleMark)
				r.Post("/favorite", s.handleToggleFavorite)
				r.Post("/submit", s.handleSubmit)
				r.Get("/review", s.handleReview)
				r.Post("/save", s.handleSaveProgress)
				r.Post("/autosave", s.handleAutoSave)
			})
		})

		r.Route("/progress/{phone}", func(r chi.Router) {
			r.Get("/", s.handleListProgress)
			r.Delete("/", s.handleClearProgress)
			r.Post("/resume-temp", s.handleResumeTemp)
			r.Post("/{id}/restore", s.handleRestoreProgress)
			r.Delete("/{id}", s.handleDeleteProgress)
		})

		r.Route("/history/{phone}", func(r chi.Router) {
			r.Get("/", s.handleHistory)
			r.Delete("/", s.handleClearHistory)
			r.Delete("/{id}", s.handleDeleteHistory)
		})

		r.Route("/favorites/{phone}", func(r chi.Router) {
			r.Get("/", s.handleFavorites)
			r.Delete("/", s.handleClearFavorites)
			r.Delete("/{id}", s.handleRemoveFavorite)
		})

		r.Route("/wrongbook/{phone}", func(r chi.Router) {
			r.Get("/", s.handleWrongBook)
			r.Delete("/", s.handleClearWrongBook)
			r.Delete("/{id}", s.handleRemoveWrongQuestion)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Get("/{phone}/stats", s.handleUserStats)
			r.Post("/{phone}/reset", s.handleResetUserData)
		})

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", s.handleListQuestions)
			r.Post("/", s.handleAddQuestion)
			r.Get("/stats", s.handleBankStats)
			r.Post("/import", s.handleImportQuestions)
			r.Get("/export", s.handleExportQuestions)
			r.Put("/{id}", s.handleUpdateQuestion)
			r.Delete("/{id}", s.handleDeleteQuestion)
		})

		r.Route("/codes", func(r chi.Router) {
			r.Get("/", s.handleListCodes)
			r.Post("/", s.handleGenerateCodes)
			r.Delete("/", s.handleClearCodes)
			r.Delete("/{code}", s.handleDeleteCode)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleSaveSettings)
	})

	return r
}
