package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
)

func waitingRoom(code string, maxPlayers int) *domain.Room {
	return &domain.Room{
		Code:       code,
		QuizID:     1,
		CreatorID:  1,
		MaxPlayers: maxPlayers,
		Status:     domain.RoomWaiting,
		CreatedAt:  time.Now(),
		Players: []*domain.RoomPlayer{
			{RoomCode: code, UserID: 1, DisplayName: "alice", Creator: true},
		},
	}
}

func TestRoomStoreCreateAndGet(t *testing.T) {
	store := memory.NewRoomStore()
	ctx := context.Background()

	if err := store.Create(ctx, waitingRoom("AAAAAA", 4)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, waitingRoom("AAAAAA", 4)); !errors.Is(err, domain.ErrRoomCodeTaken) {
		t.Fatalf("expected code taken, got %v", err)
	}

	room, err := store.GetByCode(ctx, "AAAAAA")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if room.Code != "AAAAAA" || len(room.Players) != 1 {
		t.Fatalf("unexpected room %+v", room)
	}

	// Mutating the returned room must not leak into the store.
	room.Players = nil
	again, _ := store.GetByCode(ctx, "AAAAAA")
	if len(again.Players) != 1 {
		t.Fatalf("store state leaked through returned clone")
	}

	if _, err := store.GetByCode(ctx, "ZZZZZZ"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRoomStoreAddPlayerChecks(t *testing.T) {
	store := memory.NewRoomStore()
	ctx := context.Background()
	if err := store.Create(ctx, waitingRoom("BBBBBB", 2)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.AddPlayer(ctx, "BBBBBB", &domain.RoomPlayer{UserID: 1}); !errors.Is(err, domain.ErrAlreadyInRoom) {
		t.Fatalf("expected membership uniqueness, got %v", err)
	}
	updated, err := store.AddPlayer(ctx, "BBBBBB", &domain.RoomPlayer{UserID: 2, DisplayName: "bob"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(updated.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(updated.Players))
	}
	if _, err := store.AddPlayer(ctx, "BBBBBB", &domain.RoomPlayer{UserID: 3}); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected capacity check, got %v", err)
	}

	room, _ := store.GetByCode(ctx, "BBBBBB")
	room.Status = domain.RoomInProgress
	if err := store.Update(ctx, room); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.AddPlayer(ctx, "BBBBBB", &domain.RoomPlayer{UserID: 3}); !errors.Is(err, domain.ErrRoomAlreadyStarted) {
		t.Fatalf("expected status check, got %v", err)
	}
}

func TestRoomStoreConcurrentAddPlayer(t *testing.T) {
	store := memory.NewRoomStore()
	ctx := context.Background()
	if err := store.Create(ctx, waitingRoom("CCCCCC", 3)); err != nil {
		t.Fatalf("create: %v", err)
	}

	const contenders = 16
	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := store.AddPlayer(ctx, "CCCCCC", &domain.RoomPlayer{UserID: userID})
			errs <- err
		}(int64(100 + i))
	}
	wg.Wait()
	close(errs)

	var admitted int
	for err := range errs {
		if err == nil {
			admitted++
		} else if !errors.Is(err, domain.ErrRoomFull) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if admitted != 2 {
		t.Fatalf("expected 2 admissions into remaining slots, got %d", admitted)
	}
	room, _ := store.GetByCode(ctx, "CCCCCC")
	if len(room.Players) != 3 {
		t.Fatalf("room over capacity: %d players", len(room.Players))
	}
}

func TestRoomStoreRemovePlayer(t *testing.T) {
	store := memory.NewRoomStore()
	ctx := context.Background()
	if err := store.Create(ctx, waitingRoom("DDDDDD", 4)); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := store.RemovePlayer(ctx, "DDDDDD", 1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(updated.Players) != 0 {
		t.Fatalf("expected empty room, got %d players", len(updated.Players))
	}
	if _, err := store.RemovePlayer(ctx, "DDDDDD", 1); !errors.Is(err, domain.ErrNotInRoom) {
		t.Fatalf("expected membership check, got %v", err)
	}
}

func TestRoomStoreSessionLifecycle(t *testing.T) {
	store := memory.NewRoomStore()
	ctx := context.Background()
	if err := store.Create(ctx, waitingRoom("EEEEEE", 4)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.GetSession(ctx, "EEEEEE"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected no session, got %v", err)
	}

	session := &domain.GameSession{
		GameCode:          "EEEEEE",
		QuizID:            1,
		QuestionStartedAt: time.Now(),
		QuestionDuration:  30,
		SharedScores:      map[string]int{"alice": 9},
	}
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}
	loaded, err := store.GetSession(ctx, "EEEEEE")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.SharedScores["alice"] != 9 || loaded.QuestionDuration != 30 {
		t.Fatalf("unexpected session %+v", loaded)
	}

	// Clone isolation for shared score maps.
	loaded.SharedScores["alice"] = 0
	again, _ := store.GetSession(ctx, "EEEEEE")
	if again.SharedScores["alice"] != 9 {
		t.Fatalf("session state leaked through returned clone")
	}

	if err := store.DeleteSession(ctx, "EEEEEE"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.GetSession(ctx, "EEEEEE"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestRoomStoreAddScore(t *testing.T) {
	store := memory.NewRoomStore()
	ctx := context.Background()
	if err := store.Create(ctx, waitingRoom("HHHHHH", 4)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.AddScore(ctx, "HHHHHH", "alice", 9); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected no session, got %v", err)
	}
	if err := store.SaveSession(ctx, &domain.GameSession{GameCode: "HHHHHH", SharedScores: map[string]int{}}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	session, err := store.AddScore(ctx, "HHHHHH", "alice", 9)
	if err != nil {
		t.Fatalf("add score: %v", err)
	}
	if session.SharedScores["alice"] != 9 {
		t.Fatalf("expected 9, got %d", session.SharedScores["alice"])
	}
	session, err = store.AddScore(ctx, "HHHHHH", "alice", 4)
	if err != nil {
		t.Fatalf("add score: %v", err)
	}
	if session.SharedScores["alice"] != 13 {
		t.Fatalf("expected accumulated 13, got %d", session.SharedScores["alice"])
	}

	if _, err := store.AddScore(ctx, "ZZZZZZ", "alice", 1); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected room not found, got %v", err)
	}
}

func TestRoomStoreConcurrentAddScore(t *testing.T) {
	store := memory.NewRoomStore()
	ctx := context.Background()
	if err := store.Create(ctx, waitingRoom("IIIIII", 4)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SaveSession(ctx, &domain.GameSession{GameCode: "IIIIII", SharedScores: map[string]int{}}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "alice"
			if i%2 == 1 {
				name = "bob"
			}
			if _, err := store.AddScore(ctx, "IIIIII", name, 1); err != nil {
				t.Errorf("add score: %v", err)
			}
		}(i)
	}
	wg.Wait()

	session, err := store.GetSession(ctx, "IIIIII")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.SharedScores["alice"] != writers/2 || session.SharedScores["bob"] != writers/2 {
		t.Fatalf("lost updates: %+v", session.SharedScores)
	}
}

func TestRoomStoreAdvanceQuestionCAS(t *testing.T) {
	store := memory.NewRoomStore()
	ctx := context.Background()
	if err := store.Create(ctx, waitingRoom("FFFFFF", 4)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SaveSession(ctx, &domain.GameSession{
		GameCode:          "FFFFFF",
		QuestionStartedAt: time.Now(),
		QuestionDuration:  30,
		SharedScores:      map[string]int{},
	}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	session, err := store.AdvanceQuestion(ctx, "FFFFFF", 0)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if session.QuestionIndex != 1 {
		t.Fatalf("expected index 1, got %d", session.QuestionIndex)
	}
	if !session.QuestionStartedAt.IsZero() || session.QuestionDuration != 0 {
		t.Fatalf("expected timing cleared, got %+v", session)
	}

	if _, err := store.AdvanceQuestion(ctx, "FFFFFF", 0); !errors.Is(err, domain.ErrStaleTransition) {
		t.Fatalf("expected stale transition, got %v", err)
	}
}

func TestRoomStoreConcurrentAdvance(t *testing.T) {
	store := memory.NewRoomStore()
	ctx := context.Background()
	if err := store.Create(ctx, waitingRoom("GGGGGG", 4)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SaveSession(ctx, &domain.GameSession{GameCode: "GGGGGG", SharedScores: map[string]int{}}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AdvanceQuestion(ctx, "GGGGGG", 0)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var winners int
	for err := range errs {
		if err == nil {
			winners++
		} else if !errors.Is(err, domain.ErrStaleTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected a single winning transition, got %d", winners)
	}
	session, _ := store.GetSession(ctx, "GGGGGG")
	if session.QuestionIndex != 1 {
		t.Fatalf("expected index advanced once, got %d", session.QuestionIndex)
	}
}
