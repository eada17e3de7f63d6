package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shuizhiqing/examtrainer/internal/errors"
)

func questionIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.NewBadRequestError("invalid question id")
	}
	return id, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	history, err := s.Gateway.History(r.Context(), phone)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if err := s.Gateway.DeleteHistory(r.Context(), phone, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if err := s.Gateway.ClearHistory(r.Context(), phone); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	favs, err := s.Gateway.Favorites(r.Context(), phone)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"favorites": favs})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	id, err := questionIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Gateway.RemoveFavorite(r.Context(), phone, id); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleClearFavorites(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if err := s.Gateway.ClearFavorites(r.Context(), phone); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleWrongBook(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	book, err := s.Gateway.WrongBook(r.Context(), phone)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"wrong_book": book})
}

func (s *Server) handleRemoveWrongQuestion(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	id, err := questionIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Gateway.RemoveWrongQuestion(r.Context(), phone, id); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleClearWrongBook(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if err := s.Gateway.ClearWrongBook(r.Context(), phone); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Accounts.Users(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	stats, err := s.Accounts.UserStats(r.Context(), phone)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (s *Server) handleResetUserData(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if err := s.Accounts.ResetUserData(r.Context(), phone); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}
