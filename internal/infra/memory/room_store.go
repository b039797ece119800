package memory

import (
	"context"
	"sync"
	"time"

	"quizroom-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomStore. All check-then-
// mutate sequences run under one lock, giving the transactional view the
// engine's concurrency contracts require: capacity, membership uniqueness
// and question advancement are each atomic. Rooms are cloned on the way in
// and out so callers never share mutable state with the store.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*domain.Room)}
}

func (s *RoomStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return domain.ErrRoomCodeTaken
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *RoomStore) GetByCode(_ context.Context, code string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *RoomStore) Update(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; !ok {
		return domain.ErrRoomNotFound
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *RoomStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *RoomStore) AddPlayer(_ context.Context, code string, player *domain.RoomPlayer) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if room.Status != domain.RoomWaiting {
		return nil, domain.ErrRoomAlreadyStarted
	}
	if room.HasPlayer(player.UserID) {
		return nil, domain.ErrAlreadyInRoom
	}
	if room.IsFull() {
		return nil, domain.ErrRoomFull
	}
	dup := *player
	room.Players = append(room.Players, &dup)
	return room.Clone(), nil
}

func (s *RoomStore) RemovePlayer(_ context.Context, code string, userID int64) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	for i, p := range room.Players {
		if p.UserID == userID {
			room.Players = append(room.Players[:i], room.Players[i+1:]...)
			return room.Clone(), nil
		}
	}
	return nil, domain.ErrNotInRoom
}

func (s *RoomStore) SaveSession(_ context.Context, session *domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[session.GameCode]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.Session = session.Clone()
	return nil
}

func (s *RoomStore) GetSession(_ context.Context, gameCode string) (*domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[gameCode]
	if !ok || room.Session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return room.Session.Clone(), nil
}

func (s *RoomStore) DeleteSession(_ context.Context, gameCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[gameCode]; ok {
		room.Session = nil
	}
	return nil
}

// AddScore applies points to the player's shared score against the stored
// session under the store lock. Submissions from different players interleave
// here constantly; incrementing in place instead of overwriting with a
// caller's copy is what keeps every accepted answer on the board.
func (s *RoomStore) AddScore(_ context.Context, gameCode string, displayName string, points int) (*domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[gameCode]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if room.Session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if room.Session.SharedScores == nil {
		room.Session.SharedScores = make(map[string]int)
	}
	room.Session.SharedScores[displayName] += points
	return room.Session.Clone(), nil
}

// AdvanceQuestion is a compare-and-set on the question index: it only moves
// forward when the caller saw the current index, so concurrent triggers
// advance exactly once. Timing fields are cleared for the next question.
func (s *RoomStore) AdvanceQuestion(_ context.Context, gameCode string, fromIndex int) (*domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[gameCode]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if room.Session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if room.Session.QuestionIndex != fromIndex {
		return nil, domain.ErrStaleTransition
	}
	room.Session.QuestionIndex++
	room.Session.QuestionStartedAt = time.Time{}
	room.Session.QuestionDuration = 0
	return room.Session.Clone(), nil
}
