package app

import (
	"context"
	"math"
	"sort"

	"quizroom-service/internal/domain"
)

// AnswerStore is the system of record for accepted answers, keyed by game
// code. Record must be atomic record-if-absent so two racing submissions for
// the same (game, user, question) result in exactly one accepted answer.
type AnswerStore interface {
	Record(ctx context.Context, gameCode string, userID int64, record domain.AnswerRecord) (bool, error)
	// Remove deletes one recorded answer so a failed submission can be rolled
	// back; removing an absent answer is a no-op.
	Remove(ctx context.Context, gameCode string, userID int64, questionID int64) error
	Total(ctx context.Context, gameCode string, userID int64) (int, error)
	Clear(ctx context.Context, gameCode string) error
}

// ScoringService converts answer outcomes into points, keeps per-game answer
// bookkeeping and assembles leaderboards.
type ScoringService struct {
	answers     AnswerStore
	base        int
	penaltyStep int
}

func NewScoringService(answers AnswerStore, base, penaltyStep int) *ScoringService {
	if base <= 0 {
		base = 10
	}
	if penaltyStep <= 0 {
		penaltyStep = 3
	}
	return &ScoringService{answers: answers, base: base, penaltyStep: penaltyStep}
}

// Points awards nothing for a wrong answer. A correct answer earns the base
// minus one point per penalty step of elapsed time, floored at 1 so
// correctness always counts.
func (s *ScoringService) Points(correct bool, elapsedSeconds int) int {
	if !correct {
		return 0
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	points := s.base - elapsedSeconds/s.penaltyStep
	if points < 1 {
		return 1
	}
	return points
}

// Percentage normalizes a raw score against the maximum achievable for the
// question count, rounded to the nearest integer in 0-100.
func (s *ScoringService) Percentage(rawScore, questionCount int) int {
	if questionCount == 0 {
		return 0
	}
	return int(math.Round(float64(rawScore) / float64(questionCount*s.base) * 100))
}

// RecordAnswer stores an accepted answer outcome. It reports false when an
// answer for the same question was already recorded for this user; the
// existing record is never overwritten.
func (s *ScoringService) RecordAnswer(ctx context.Context, gameCode string, userID int64, record domain.AnswerRecord) (bool, error) {
	return s.answers.Record(ctx, gameCode, userID, record)
}

// DiscardAnswer rolls a recorded answer back when a later step of the
// submission fails, so the question can be answered again.
func (s *ScoringService) DiscardAnswer(ctx context.Context, gameCode string, userID int64, questionID int64) error {
	return s.answers.Remove(ctx, gameCode, userID, questionID)
}

// TotalScore sums all recorded points for the user within the game, zero when
// none were recorded.
func (s *ScoringService) TotalScore(ctx context.Context, gameCode string, userID int64) (int, error) {
	return s.answers.Total(ctx, gameCode, userID)
}

// ClearGame purges every recorded answer for the game code. Other games are
// unaffected; clearing an unknown game is a no-op.
func (s *ScoringService) ClearGame(ctx context.Context, gameCode string) error {
	return s.answers.Clear(ctx, gameCode)
}

// Leaderboard ranks every player in the room by their shared score, falling
// back to 0 for players who never scored. Equal scores keep the room join
// order (stable sort); positions are 1-based.
func (s *ScoringService) Leaderboard(room *domain.Room, session *domain.GameSession) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(room.Players))
	for _, player := range room.Players {
		score := 0
		if session != nil {
			score = session.SharedScores[player.DisplayName]
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:   player.UserID,
			Username: player.DisplayName,
			Score:    score,
			Team:     player.Team,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}
