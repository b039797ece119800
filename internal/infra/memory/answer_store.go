package memory

import (
	"context"
	"sync"

	"quizroom-service/internal/domain"
)

// AnswerStore keeps accepted answers per game code in memory. Record is an
// atomic check-and-set under the store lock, so of two racing submissions for
// the same (game, user, question) exactly one is kept.
type AnswerStore struct {
	mu    sync.RWMutex
	games map[string]map[int64]map[int64]domain.AnswerRecord
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{games: make(map[string]map[int64]map[int64]domain.AnswerRecord)}
}

func (s *AnswerStore) Record(_ context.Context, gameCode string, userID int64, record domain.AnswerRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, ok := s.games[gameCode]
	if !ok {
		users = make(map[int64]map[int64]domain.AnswerRecord)
		s.games[gameCode] = users
	}
	answers, ok := users[userID]
	if !ok {
		answers = make(map[int64]domain.AnswerRecord)
		users[userID] = answers
	}
	if _, exists := answers[record.QuestionID]; exists {
		return false, nil
	}
	answers[record.QuestionID] = record
	return true, nil
}

func (s *AnswerStore) Remove(_ context.Context, gameCode string, userID int64, questionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if answers, ok := s.games[gameCode][userID]; ok {
		delete(answers, questionID)
	}
	return nil
}

func (s *AnswerStore) Total(_ context.Context, gameCode string, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, record := range s.games[gameCode][userID] {
		total += record.Points
	}
	return total, nil
}

func (s *AnswerStore) Clear(_ context.Context, gameCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, gameCode)
	return nil
}
