package app_test

import (
	"testing"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

func TestValidateCreateRoomAggregatesAllViolations(t *testing.T) {
	validation := app.NewValidationService()

	err := validation.ValidateCreateRoom(app.CreateRoomRequest{
		QuizID:     0,
		MaxPlayers: 1,
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	verr, ok := domain.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected both violations reported, got %v", verr.Fields)
	}
	if _, ok := verr.Fields["quizID"]; !ok {
		t.Fatalf("expected quizID violation, got %v", verr.Fields)
	}
	if _, ok := verr.Fields["maxPlayers"]; !ok {
		t.Fatalf("expected maxPlayers violation, got %v", verr.Fields)
	}
}

func TestValidateCreateRoomAccepts(t *testing.T) {
	validation := app.NewValidationService()

	if err := validation.ValidateCreateRoom(app.CreateRoomRequest{QuizID: 1}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if err := validation.ValidateCreateRoom(app.CreateRoomRequest{QuizID: 1, MaxPlayers: 10, Name: "friday quiz"}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestValidateJoinRoom(t *testing.T) {
	validation := app.NewValidationService()

	if err := validation.ValidateJoinRoom(app.JoinRoomRequest{}); err == nil {
		t.Fatalf("expected missing room code to fail")
	}
	if err := validation.ValidateJoinRoom(app.JoinRoomRequest{RoomCode: "ABC123", Team: "red"}); err != nil {
		t.Fatalf("expected valid join, got %v", err)
	}
}

func TestValidateSubmitAnswer(t *testing.T) {
	validation := app.NewValidationService()

	negative := -1
	err := validation.ValidateSubmitAnswer(app.SubmitAnswerRequest{
		RoomCode:       "ABC123",
		QuestionID:     1,
		OptionID:       2,
		ElapsedSeconds: &negative,
	})
	if err == nil {
		t.Fatalf("expected negative elapsed to fail")
	}

	five := 5
	err = validation.ValidateSubmitAnswer(app.SubmitAnswerRequest{
		RoomCode:       "ABC123",
		QuestionID:     1,
		OptionID:       2,
		ElapsedSeconds: &five,
	})
	if err != nil {
		t.Fatalf("expected valid answer, got %v", err)
	}

	// Elapsed is optional.
	err = validation.ValidateSubmitAnswer(app.SubmitAnswerRequest{RoomCode: "ABC123", QuestionID: 1, OptionID: 2})
	if err != nil {
		t.Fatalf("expected valid answer without elapsed, got %v", err)
	}
}

func TestValidateInvite(t *testing.T) {
	validation := app.NewValidationService()

	if err := validation.ValidateInvite(app.InviteRequest{RoomCode: "ABC123", Email: "not-an-email"}); err == nil {
		t.Fatalf("expected malformed email to fail")
	}
	if err := validation.ValidateInvite(app.InviteRequest{RoomCode: "ABC123", Email: "friend@example.com"}); err != nil {
		t.Fatalf("expected valid invite, got %v", err)
	}
}
