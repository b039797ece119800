package app

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"quizroom-service/internal/domain"
)

// CreateRoomRequest carries the caller-supplied room settings.
type CreateRoomRequest struct {
	QuizID     int64  `json:"quizId" validate:"required,gt=0"`
	MaxPlayers int    `json:"maxPlayers" validate:"omitempty,gte=2,lte=10"`
	TeamMode   bool   `json:"teamMode"`
	Name       string `json:"name" validate:"omitempty,max=50"`
}

// JoinRoomRequest identifies the room and optional player presentation.
type JoinRoomRequest struct {
	RoomCode   string `json:"room" validate:"required,max=12"`
	PlayerName string `json:"playerName" validate:"omitempty,max=50"`
	Team       string `json:"team" validate:"omitempty,max=50"`
}

// SubmitAnswerRequest carries one answer for the active question.
// ElapsedSeconds is optional; when absent the engine derives it from the
// question timer.
type SubmitAnswerRequest struct {
	RoomCode       string `json:"room" validate:"required,max=12"`
	QuestionID     int64  `json:"questionId" validate:"required,gt=0"`
	OptionID       int64  `json:"optionId" validate:"required,gt=0"`
	ElapsedSeconds *int   `json:"elapsedSeconds" validate:"omitempty,gte=0"`
}

// InviteRequest asks to invite someone into a room by email.
type InviteRequest struct {
	RoomCode string `json:"room" validate:"required,max=12"`
	Email    string `json:"email" validate:"required,email"`
}

// ValidationService rejects malformed input before any engine state is
// touched. Every violated field is reported, not just the first.
type ValidationService struct {
	validate *validator.Validate
}

func NewValidationService() *ValidationService {
	return &ValidationService{validate: validator.New()}
}

func (v *ValidationService) ValidateCreateRoom(req CreateRoomRequest) error {
	return v.check(req)
}

func (v *ValidationService) ValidateJoinRoom(req JoinRoomRequest) error {
	return v.check(req)
}

func (v *ValidationService) ValidateSubmitAnswer(req SubmitAnswerRequest) error {
	return v.check(req)
}

func (v *ValidationService) ValidateInvite(req InviteRequest) error {
	return v.check(req)
}

func (v *ValidationService) check(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = fieldMessage(fe)
	}
	return &domain.ValidationError{Fields: fields}
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	return strings.ToLower(name[:1]) + name[1:]
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be no longer than %s", fe.Param())
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
