package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shuizhiqing/examtrainer/internal/models"
)

func (s *Server) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	sess, phone, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	record, err := s.Progress.SaveProgress(r.Context(), sess)
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.dropSession(phone)
	respondJSON(w, http.StatusOK, map[string]any{"record": record})
}

func (s *Server) handleAutoSave(w http.ResponseWriter, r *http.Request) {
	sess, phone, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	saved, err := s.Progress.AutoSave(r.Context(), sess)
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.dropSession(phone)
	respondJSON(w, http.StatusOK, map[string]any{"saved": saved})
}

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	records, err := s.Progress.List(r.Context(), phone)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleRestoreProgress(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	recordID := chi.URLParam(r, "id")

	trial := models.IsTrialIdentity(phone)
	sess, err := s.Progress.Restore(r.Context(), phone, recordID, s.sessionOptions(phone, trial)...)
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.putSession(phone, sess)
	s.writeSessionState(w, sess)
}

func (s *Server) handleResumeTemp(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	trial := models.IsTrialIdentity(phone)
	sess, err := s.Progress.RestoreTemp(r.Context(), phone, s.sessionOptions(phone, trial)...)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if sess == nil {
		respondJSON(w, http.StatusOK, map[string]any{"resumed": false})
		return
	}
	s.putSession(phone, sess)
	s.writeSessionState(w, sess)
}

func (s *Server) handleDeleteProgress(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	recordID := chi.URLParam(r, "id")
	if err := s.Progress.Delete(r.Context(), phone, recordID); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleClearProgress(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if err := s.Progress.ClearAll(r.Context(), phone); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}
