package memory_test

import (
	"context"
	"sync"
	"testing"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
)

func TestAnswerStoreRecordOnce(t *testing.T) {
	store := memory.NewAnswerStore()
	ctx := context.Background()

	inserted, err := store.Record(ctx, "GAME", 1, domain.AnswerRecord{QuestionID: 1, Points: 9})
	if err != nil || !inserted {
		t.Fatalf("expected first record accepted, got %v %v", inserted, err)
	}
	inserted, err = store.Record(ctx, "GAME", 1, domain.AnswerRecord{QuestionID: 1, Points: 1})
	if err != nil || inserted {
		t.Fatalf("expected duplicate rejected, got %v %v", inserted, err)
	}

	total, err := store.Total(ctx, "GAME", 1)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 9 {
		t.Fatalf("expected the first record kept, got total %d", total)
	}
}

func TestAnswerStoreTotalsAcrossQuestions(t *testing.T) {
	store := memory.NewAnswerStore()
	ctx := context.Background()

	for _, record := range []domain.AnswerRecord{
		{QuestionID: 1, Points: 9},
		{QuestionID: 2, Points: 0},
		{QuestionID: 3, Points: 4},
	} {
		if _, err := store.Record(ctx, "GAME", 1, record); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	total, _ := store.Total(ctx, "GAME", 1)
	if total != 13 {
		t.Fatalf("expected 13, got %d", total)
	}

	// Other users and games stay at zero.
	if total, _ := store.Total(ctx, "GAME", 2); total != 0 {
		t.Fatalf("expected 0 for other user, got %d", total)
	}
	if total, _ := store.Total(ctx, "OTHER", 1); total != 0 {
		t.Fatalf("expected 0 for other game, got %d", total)
	}
}

func TestAnswerStoreRemoveFreesQuestion(t *testing.T) {
	store := memory.NewAnswerStore()
	ctx := context.Background()

	if _, err := store.Record(ctx, "GAME", 1, domain.AnswerRecord{QuestionID: 1, Points: 9}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Remove(ctx, "GAME", 1, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if total, _ := store.Total(ctx, "GAME", 1); total != 0 {
		t.Fatalf("expected removed answer gone, got %d", total)
	}

	// The question is answerable again after removal.
	inserted, err := store.Record(ctx, "GAME", 1, domain.AnswerRecord{QuestionID: 1, Points: 4})
	if err != nil || !inserted {
		t.Fatalf("expected re-record accepted, got %v %v", inserted, err)
	}

	// Removing an absent answer is a no-op.
	if err := store.Remove(ctx, "GAME", 9, 9); err != nil {
		t.Fatalf("remove unknown: %v", err)
	}
}

func TestAnswerStoreClearScopedToGame(t *testing.T) {
	store := memory.NewAnswerStore()
	ctx := context.Background()

	if _, err := store.Record(ctx, "G1", 1, domain.AnswerRecord{QuestionID: 1, Points: 5}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := store.Record(ctx, "G2", 1, domain.AnswerRecord{QuestionID: 1, Points: 7}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := store.Clear(ctx, "G1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if total, _ := store.Total(ctx, "G1", 1); total != 0 {
		t.Fatalf("expected G1 cleared, got %d", total)
	}
	if total, _ := store.Total(ctx, "G2", 1); total != 7 {
		t.Fatalf("expected G2 untouched, got %d", total)
	}

	// Clearing an unknown game is a no-op.
	if err := store.Clear(ctx, "NOPE"); err != nil {
		t.Fatalf("clear unknown: %v", err)
	}
}

func TestAnswerStoreConcurrentRecord(t *testing.T) {
	store := memory.NewAnswerStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	accepted := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := store.Record(ctx, "GAME", 1, domain.AnswerRecord{QuestionID: 1, Points: 10})
			if err != nil {
				t.Errorf("record: %v", err)
				return
			}
			accepted <- inserted
		}()
	}
	wg.Wait()
	close(accepted)

	var wins int
	for inserted := range accepted {
		if inserted {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one accepted record, got %d", wins)
	}
	if total, _ := store.Total(ctx, "GAME", 1); total != 10 {
		t.Fatalf("expected a single scored answer, got %d", total)
	}
}
