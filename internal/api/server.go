package api

import (
	"context"
	"sync"
	"time"

	"github.com/shuizhiqing/examtrainer/internal/account"
	"github.com/shuizhiqing/examtrainer/internal/bank"
	"github.com/shuizhiqing/examtrainer/internal/logger"
	"github.com/shuizhiqing/examtrainer/internal/progress"
	"github.com/shuizhiqing/examtrainer/internal/session"
	"github.com/shuizhiqing/examtrainer/internal/storage"
)

// Server is the thin HTTP shell over the core. It owns at most one
// active session per identity; everything else is translation between
// JSON and core operations.
type Server struct {
	Bank     *bank.Bank
	Gateway  *storage.Gateway
	Progress *progress.Manager
	Accounts *account.Service

	// Deployment policy for trial sessions; zero keeps the defaults.
	TrialQuestionCount int
	TrialTimeSeconds   int

	mu       sync.Mutex
	sessions map[string]*session.Session
}

func NewServer(b *bank.Bank, gw *storage.Gateway, pm *progress.Manager, ac *account.Service) *Server {
	return &Server{
		Bank:     b,
		Gateway:  gw,
		Progress: pm,
		Accounts: ac,
		sessions: map[string]*session.Session{},
	}
}

// getSession returns the identity's active session, if any.
func (s *Server) getSession(phone string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[phone]
	return sess, ok
}

// putSession installs a new active session for the identity, suspending
// any previous one without saving it.
func (s *Server) putSession(phone string, sess *session.Session) {
	s.mu.Lock()
	prev := s.sessions[phone]
	s.sessions[phone] = sess
	s.mu.Unlock()
	if prev != nil {
		prev.Suspend()
	}
}

func (s *Server) dropSession(phone string) {
	s.mu.Lock()
	delete(s.sessions, phone)
	s.mu.Unlock()
}

// trialTimeUp is the callback wired into trial sessions: expiry drops
// the session so the next poll sees it gone, instead of auto-submitting.
func (s *Server) trialTimeUp(phone string) func() {
	return func() {
		logger.Default().Info("trial time up: %s", phone)
		s.dropSession(phone)
	}
}

// activeSessions snapshots the live sessions so the auto-save loop can
// walk them without holding the registry lock across persistence.
func (s *Server) activeSessions() []*session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// StartAutoSave periodically writes every live session's answered state
// to its owner's temp slot, so a crash loses at most one interval. The
// loop stops when ctx is cancelled.
func (s *Server) StartAutoSave(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	go func() {
		log := logger.Default().WithPrefix("auto-save")
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, sess := range s.activeSessions() {
					if sess.IsTrial() {
						continue
					}
					if _, err := s.Progress.PeriodicSave(ctx, sess); err != nil {
						log.Warn("periodic save failed: phone=%s: %v", sess.Phone(), err)
					}
				}
			}
		}
	}()
}
