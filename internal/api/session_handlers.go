package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shuizhiqing/examtrainer/internal/errors"
	"github.com/shuizhiqing/examtrainer/internal/models"
	"github.com/shuizhiqing/examtrainer/internal/session"
)

// sessionOptions wires the trial expiry callback and the deployment's
// trial limits into every session the shell creates for a trial identity.
func (s *Server) sessionOptions(phone string, trial bool) []session.Option {
	if !trial {
		return nil
	}
	return []session.Option{
		session.WithTrialTimeUp(s.trialTimeUp(phone)),
		session.WithTrialLimits(s.TrialQuestionCount, s.TrialTimeSeconds),
	}
}

func (s *Server) activeSession(r *http.Request) (*session.Session, string, error) {
	phone := chi.URLParam(r, "phone")
	sess, ok := s.getSession(phone)
	if !ok {
		return nil, phone, errors.NewNotFoundError("session", phone)
	}
	return sess, phone, nil
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone           string                 `json:"phone"`
		IsTrial         bool                   `json:"is_trial"`
		Mode            models.Mode            `json:"mode"`
		PracticeVariant models.PracticeVariant `json:"practice_variant"`
		Category        string                 `json:"category"`
		Types           []models.QuestionType  `json:"types"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	sess := session.New(s.Bank, s.Gateway, s.sessionOptions(req.Phone, req.IsTrial)...)
	err := sess.Start(r.Context(), session.Config{
		Phone:           req.Phone,
		IsTrial:         req.IsTrial,
		Mode:            req.Mode,
		PracticeVariant: req.PracticeVariant,
		Category:        req.Category,
		Types:           req.Types,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	s.putSession(req.Phone, sess)
	s.writeSessionState(w, sess)
}

func (s *Server) handleStartWrongBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	sess := session.New(s.Bank, s.Gateway)
	if err := sess.StartFromWrongBook(r.Context(), req.Phone); err != nil {
		handleError(w, r, err)
		return
	}
	s.putSession(req.Phone, sess)
	s.writeSessionState(w, sess)
}

func (s *Server) handleStartFavorites(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	sess := session.New(s.Bank, s.Gateway)
	if err := sess.StartFromFavorites(r.Context(), req.Phone); err != nil {
		handleError(w, r, err)
		return
	}
	s.putSession(req.Phone, sess)
	s.writeSessionState(w, sess)
}

func (s *Server) writeSessionState(w http.ResponseWriter, sess *session.Session) {
	state := map[string]any{
		"state":   sess.State(),
		"summary": sess.ProgressSummary(),
	}
	if q, ok := sess.CurrentQuestion(); ok {
		state["current_question"] = q
		state["options"] = q.Options()
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.writeSessionState(w, sess)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req struct {
		Answer string `json:"answer"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	feedback, err := sess.Answer(r.Context(), req.Answer)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"feedback": feedback,
		"summary":  sess.ProgressSummary(),
	})
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := sess.Skip(); err != nil {
		handleError(w, r, err)
		return
	}
	s.writeSessionState(w, sess)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	sess.Next()
	s.writeSessionState(w, sess)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	sess.Previous()
	s.writeSessionState(w, sess)
}

func (s *Server) handleToggleMark(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	marked := sess.ToggleMark()
	respondJSON(w, http.StatusOK, map[string]any{"marked": marked})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	collected, err := sess.ToggleFavorite(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"collected": collected})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, phone, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	result, err := sess.Submit(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.dropSession(phone)
	respondJSON(w, http.StatusOK, map[string]any{
		"result": result,
		"review": sess.Review(),
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.activeSession(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"review": sess.Review()})
}
