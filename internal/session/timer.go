package session

import (
	"context"
	"time"
)

// timerSet owns the two periodic tasks of an Active session: the
// countdown and the per-question thinking stopwatch. Both are cancelled
// on every exit transition so a stale tick can never fire into a new or
// absent session.
type timerSet struct {
	cancel context.CancelFunc
}

// startTimers launches the periodic tasks. Callers hold s.mu.
func (s *Session) startTimers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.timers = &timerSet{cancel: cancel}
	go s.runThinking(ctx)
	if s.timeRemaining != nil {
		go s.runCountdown(ctx)
	}
}

// stopTimersLocked cancels both tasks. Callers hold s.mu.
func (s *Session) stopTimersLocked() {
	if s.timers != nil {
		s.timers.cancel()
		s.timers = nil
	}
}

// runCountdown drives timeRemaining down once per tick. At zero it
// submits, except for trial sessions, which get the time-up callback
// instead of a silent submit.
func (s *Session) runCountdown(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != StateActive || s.timeRemaining == nil {
				s.mu.Unlock()
				return
			}
			*s.timeRemaining--
			expired := *s.timeRemaining <= 0
			trial := s.cfg.IsTrial
			var timeUp func()
			if expired {
				s.stopTimersLocked()
				timeUp = s.onTrialTimeUp
			}
			s.mu.Unlock()

			if !expired {
				continue
			}
			if trial {
				if timeUp != nil {
					timeUp()
				}
			} else {
				if _, err := s.Submit(context.Background()); err != nil {
					s.log.Warn("auto-submit failed: %v", err)
				}
			}
			return
		}
	}
}

// runThinking counts up per displayed question. Navigation resets the
// counter; this task only increments it. Informational only.
func (s *Session) runThinking(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != StateActive {
				s.mu.Unlock()
				return
			}
			s.thinkingSeconds++
			s.mu.Unlock()
		}
	}
}
