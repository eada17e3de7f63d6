package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shuizhiqing/examtrainer/internal/bank"
	"github.com/shuizhiqing/examtrainer/internal/errors"
	"github.com/shuizhiqing/examtrainer/internal/logger"
	"github.com/shuizhiqing/examtrainer/internal/models"
)

// persistBank writes the catalog through the gateway after a mutation.
// Failures are logged; the in-memory bank already changed.
func (s *Server) persistBank(r *http.Request) {
	if err := s.Gateway.SaveQuestions(r.Context(), s.Bank.All()); err != nil {
		logger.FromContext(r.Context()).Error("bank persist failed: %v", err)
	}
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	filter := bank.Filter{}
	if c := r.URL.Query().Get("category"); c != "" {
		filter.Categories = []string{c}
	}
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Types = []models.QuestionType{models.QuestionType(t)}
	}
	respondJSON(w, http.StatusOK, map[string]any{"questions": s.Bank.Query(filter)})
}

func (s *Server) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var q models.Question
	if err := decodeJSON(r, &q); err != nil {
		handleError(w, r, err)
		return
	}

	added, err := s.Bank.Add(q)
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.persistBank(r)
	respondJSON(w, http.StatusCreated, map[string]any{"question": added})
}

func (s *Server) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := questionIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var updates models.Question
	if err := decodeJSON(r, &updates); err != nil {
		handleError(w, r, err)
		return
	}

	updated, err := s.Bank.Update(id, updates)
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.persistBank(r)
	respondJSON(w, http.StatusOK, map[string]any{"question": updated})
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := questionIDParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Bank.Remove(id); err != nil {
		handleError(w, r, err)
		return
	}
	s.persistBank(r)
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBankStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"total":          s.Bank.Count(),
		"type_counts":    s.Bank.TypeCounts(),
		"category_stats": s.Bank.CategoryStats(),
		"sub_categories": s.Bank.SubCategories(),
	})
}

// handleImportQuestions accepts a raw CSV body, UTF-8 or GB18030.
func (s *Server) handleImportQuestions(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		handleError(w, r, errors.NewBadRequestError("failed to read upload"))
		return
	}

	rows, err := bank.ParseCSV(data)
	if err != nil {
		handleError(w, r, errors.NewBadRequestError("unreadable CSV encoding"))
		return
	}

	summary := s.Bank.Load(rows, r.URL.Query().Get("category"))
	s.persistBank(r)
	respondJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func (s *Server) handleExportQuestions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="questions.csv"`)
	w.Write(bank.ExportCSV(s.Bank.All()))
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := s.Accounts.Codes(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"codes": codes})
}

func (s *Server) handleGenerateCodes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count        int `json:"count"`
		ValidityDays int `json:"validity_days"`
		MaxUses      int `json:"max_uses"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	codes, err := s.Accounts.GenerateCodes(r.Context(), req.Count, req.ValidityDays, req.MaxUses)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"codes": codes})
}

func (s *Server) handleDeleteCode(w http.ResponseWriter, r *http.Request) {
	if err := s.Accounts.DeleteCode(r.Context(), chi.URLParam(r, "code")); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleClearCodes(w http.ResponseWriter, r *http.Request) {
	if err := s.Accounts.ClearCodes(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.Accounts.Settings(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := decodeJSON(r, &settings); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Accounts.SaveSettings(r.Context(), settings); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}
