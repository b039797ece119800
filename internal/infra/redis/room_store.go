package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
)

// RoomStore is a Redis-aware room store.
// Notes:
//   - It keeps the local in-memory store for the atomic check-then-mutate
//     operations the engine relies on.
//   - Redis marks room liveness (and could be extended to share snapshots or
//     route cross-instance lookups).
//   - For true distribution you'd pair this with the NATS publisher so other
//     instances observe room events.
type RoomStore struct {
	*memory.RoomStore
	client *redis.Client
	ttl    time.Duration
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		RoomStore: memory.NewRoomStore(),
		client:    client,
		ttl:       ttl,
	}
}

func (s *RoomStore) Create(ctx context.Context, room *domain.Room) error {
	if err := s.RoomStore.Create(ctx, room); err != nil {
		return err
	}
	// best-effort liveness marker
	_ = s.client.Set(ctx, s.key(room.Code), "1", s.ttl).Err()
	return nil
}

func (s *RoomStore) Update(ctx context.Context, room *domain.Room) error {
	if err := s.RoomStore.Update(ctx, room); err != nil {
		return err
	}
	_ = s.client.Expire(ctx, s.key(room.Code), s.ttl).Err()
	return nil
}

func (s *RoomStore) Delete(ctx context.Context, code string) error {
	if err := s.RoomStore.Delete(ctx, code); err != nil {
		return err
	}
	_ = s.client.Del(ctx, s.key(code)).Err()
	return nil
}

func (s *RoomStore) key(code string) string {
	return "room:live:" + code
}
