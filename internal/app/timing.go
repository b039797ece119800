package app

import (
	"context"
	"time"

	"quizroom-service/internal/domain"
)

// SessionSaver persists game session timing mutations.
type SessionSaver interface {
	SaveSession(ctx context.Context, session *domain.GameSession) error
}

// TimingService is the single source of truth for how much time is left on
// the current question and whether it expired.
type TimingService struct {
	store           SessionSaver
	clock           func() time.Time
	defaultDuration int
}

func NewTimingService(store SessionSaver, defaultDuration int) *TimingService {
	if defaultDuration <= 0 {
		defaultDuration = 30
	}
	return &TimingService{store: store, clock: time.Now, defaultDuration: defaultDuration}
}

// NewTimingServiceWithClock is test-only for deterministic timestamps.
func NewTimingServiceWithClock(store SessionSaver, defaultDuration int, clock func() time.Time) *TimingService {
	svc := NewTimingService(store, defaultDuration)
	svc.clock = clock
	return svc
}

// StartQuestion records now as the question start, stores the duration and
// persists the session. Any prior timing for the session is overwritten.
func (t *TimingService) StartQuestion(ctx context.Context, session *domain.GameSession, durationSeconds int) error {
	if durationSeconds <= 0 {
		durationSeconds = t.defaultDuration
	}
	session.QuestionStartedAt = t.clock()
	session.QuestionDuration = durationSeconds
	return t.store.SaveSession(ctx, session)
}

// TimeLeft returns the remaining whole seconds on the current question, never
// negative. Missing timing falls back to the full default duration so a
// status query racing question setup never reports an expired question.
func (t *TimingService) TimeLeft(session *domain.GameSession) int {
	if session == nil || session.QuestionStartedAt.IsZero() || session.QuestionDuration <= 0 {
		return t.defaultDuration
	}
	left := session.QuestionDuration - t.elapsed(session)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the question timer hit zero.
func (t *TimingService) Expired(session *domain.GameSession) bool {
	return t.TimeLeft(session) == 0
}

// EnsureTiming initializes timing with the default duration when either field
// is missing. It is idempotent and writes nothing when timing already exists.
func (t *TimingService) EnsureTiming(ctx context.Context, session *domain.GameSession) error {
	if session.QuestionStartedAt.IsZero() || session.QuestionDuration <= 0 {
		return t.StartQuestion(ctx, session, t.defaultDuration)
	}
	return nil
}

// CanTransition reports whether enough display time passed since the question
// started to allow advancing. With no start recorded the transition is
// allowed.
func (t *TimingService) CanTransition(session *domain.GameSession, cooldownSeconds int) bool {
	if session == nil || session.QuestionStartedAt.IsZero() {
		return true
	}
	return t.elapsed(session) >= cooldownSeconds
}

// Elapsed returns whole seconds since the question started, or zero when no
// start was recorded.
func (t *TimingService) Elapsed(session *domain.GameSession) int {
	if session == nil || session.QuestionStartedAt.IsZero() {
		return 0
	}
	return t.elapsed(session)
}

func (t *TimingService) elapsed(session *domain.GameSession) int {
	return int(t.clock().Sub(session.QuestionStartedAt) / time.Second)
}
