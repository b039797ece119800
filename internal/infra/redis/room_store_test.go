package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizroom-service/internal/domain"
	redisstore "quizroom-service/internal/infra/redis"
)

func TestRoomStoreLivenessKeys(t *testing.T) {
	client := newTestClient(t)
	store := redisstore.NewRoomStore(client, time.Minute)
	ctx := context.Background()

	room := &domain.Room{
		Code:       "AAAAAA",
		QuizID:     1,
		CreatorID:  1,
		MaxPlayers: 4,
		Status:     domain.RoomWaiting,
		Players:    []*domain.RoomPlayer{{RoomCode: "AAAAAA", UserID: 1, Creator: true}},
	}
	if err := store.Create(ctx, room); err != nil {
		t.Fatalf("create: %v", err)
	}
	if live, err := client.Exists(ctx, "room:live:AAAAAA").Result(); err != nil || live != 1 {
		t.Fatalf("expected liveness marker, got %d %v", live, err)
	}

	loaded, err := store.GetByCode(ctx, "AAAAAA")
	if err != nil || loaded.Code != "AAAAAA" {
		t.Fatalf("get: %+v %v", loaded, err)
	}

	if err := store.Delete(ctx, "AAAAAA"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if live, _ := client.Exists(ctx, "room:live:AAAAAA").Result(); live != 0 {
		t.Fatalf("expected marker removed, got %d", live)
	}
	if _, err := store.GetByCode(ctx, "AAAAAA"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected room gone, got %v", err)
	}
}
