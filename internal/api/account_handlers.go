package api

import (
	"net/http"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"questions": s.Bank.Count(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name"`
		Phone          string `json:"phone"`
		ActivationCode string `json:"activation_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	user, firstLogin, err := s.Accounts.Login(r.Context(), req.Name, req.Phone, req.ActivationCode)
	if err != nil {
		handleError(w, r, err)
		return
	}

	// A session auto-saved on a previous exit resumes transparently.
	resumed := false
	if sess, err := s.Progress.RestoreTemp(r.Context(), user.Phone, s.sessionOptions(user.Phone, false)...); err == nil && sess != nil {
		s.putSession(user.Phone, sess)
		resumed = true
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":        user,
		"first_login": firstLogin,
		"resumed":     resumed,
	})
}

func (s *Server) handleTrialLogin(w http.ResponseWriter, r *http.Request) {
	user := s.Accounts.TrialLogin(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Accounts.AdminLogin(r.Context(), req.Password); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	// Auto-save the active session before the identity goes away.
	if sess, ok := s.getSession(req.Phone); ok {
		if _, err := s.Progress.AutoSave(r.Context(), sess); err != nil {
			handleError(w, r, err)
			return
		}
		s.dropSession(req.Phone)
	}
	if err := s.Accounts.Logout(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}
