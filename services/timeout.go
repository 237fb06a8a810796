package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/krshsl/brandcast/models"
)

const (
	DefaultIdleTimeout   = 30 * time.Minute
	timeoutCheckInterval = 30 * time.Second
)

// interviewAbandoner is the part of InterviewEngine the timeout service needs
type interviewAbandoner interface {
	AbandonInterview(ctx context.Context, id string) (*models.Interview, error)
}

// InterviewTimeoutService abandons interviews that have been idle longer than the timeout.
// Activity is tracked in process memory, so a restart forgets every idle clock.
type InterviewTimeoutService struct {
	engine       interviewAbandoner
	timeout      time.Duration
	now          func() time.Time
	lastActivity map[string]time.Time
	mutex        sync.Mutex
}

func NewInterviewTimeoutService(engine interviewAbandoner, timeout time.Duration) *InterviewTimeoutService {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &InterviewTimeoutService{
		engine:       engine,
		timeout:      timeout,
		now:          time.Now,
		lastActivity: make(map[string]time.Time),
	}
}

// Touch records activity on an interview, registering it on first sight
func (s *InterviewTimeoutService) Touch(interviewID string) {
	if s == nil {
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActivity[interviewID] = s.now()
}

// Forget stops tracking an interview that completed, failed or was deleted
func (s *InterviewTimeoutService) Forget(interviewID string) {
	if s == nil {
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.lastActivity, interviewID)
}

func (s *InterviewTimeoutService) Tracked() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.lastActivity)
}

// Run checks for idle interviews until ctx is cancelled
func (s *InterviewTimeoutService) Run(ctx context.Context) {
	ticker := time.NewTicker(timeoutCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkTimeouts(ctx)
		}
	}
}

func (s *InterviewTimeoutService) checkTimeouts(ctx context.Context) {
	s.mutex.Lock()
	now := s.now()
	var idle []string
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.timeout {
			idle = append(idle, id)
			delete(s.lastActivity, id)
		}
	}
	s.mutex.Unlock()

	for _, id := range idle {
		slog.Info("Interview timed out, abandoning", "interview_id", id, "timeout", s.timeout)
		if _, err := s.engine.AbandonInterview(ctx, id); err != nil {
			// completed or deleted in the meantime
			slog.Warn("Failed to abandon idle interview", "interview_id", id, "error", err)
		}
	}
}
