package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"quizroom-service/internal/domain"
)

// AnswerStore keeps accepted answers in Redis so horizontally scaled
// instances share one system of record. Layout:
//
//	HSETNX game:{code}:answers:{userID} {questionID} {record json}
//	SADD   game:{code}:answer-keys      game:{code}:answers:{userID}
//
// HSetNX gives the atomic record-if-absent the duplicate-answer contract
// needs; the key set makes clearing a game a scoped delete.
type AnswerStore struct {
	client *redis.Client
}

func NewAnswerStore(client *redis.Client) *AnswerStore {
	return &AnswerStore{client: client}
}

func (s *AnswerStore) Record(ctx context.Context, gameCode string, userID int64, record domain.AnswerRecord) (bool, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("marshal answer: %w", err)
	}
	key := s.userKey(gameCode, userID)
	inserted, err := s.client.HSetNX(ctx, key, strconv.FormatInt(record.QuestionID, 10), payload).Result()
	if err != nil {
		return false, fmt.Errorf("record answer: %w", err)
	}
	if inserted {
		if err := s.client.SAdd(ctx, s.indexKey(gameCode), key).Err(); err != nil {
			return false, fmt.Errorf("index answer key: %w", err)
		}
	}
	return inserted, nil
}

func (s *AnswerStore) Remove(ctx context.Context, gameCode string, userID int64, questionID int64) error {
	if err := s.client.HDel(ctx, s.userKey(gameCode, userID), strconv.FormatInt(questionID, 10)).Err(); err != nil {
		return fmt.Errorf("remove answer: %w", err)
	}
	return nil
}

func (s *AnswerStore) Total(ctx context.Context, gameCode string, userID int64) (int, error) {
	raw, err := s.client.HGetAll(ctx, s.userKey(gameCode, userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("load answers: %w", err)
	}
	total := 0
	for _, value := range raw {
		var record domain.AnswerRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			return 0, fmt.Errorf("unmarshal answer: %w", err)
		}
		total += record.Points
	}
	return total, nil
}

func (s *AnswerStore) Clear(ctx context.Context, gameCode string) error {
	index := s.indexKey(gameCode)
	keys, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("list answer keys: %w", err)
	}
	keys = append(keys, index)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	return nil
}

func (s *AnswerStore) userKey(gameCode string, userID int64) string {
	return "game:" + gameCode + ":answers:" + strconv.FormatInt(userID, 10)
}

func (s *AnswerStore) indexKey(gameCode string) string {
	return "game:" + gameCode + ":answer-keys"
}
