package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrRoomNotFound is returned when no room matches the given code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrUserNotFound indicates the user identity could not be resolved.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when a room has no active game session.
	ErrSessionNotFound = errors.New("game session not found")

	// ErrRoomCodeTaken is returned by stores when a generated code collides.
	ErrRoomCodeTaken = errors.New("room code already taken")
	// ErrRoomFull rejects joins once the player count reached max players.
	ErrRoomFull = errors.New("room is full")
	// ErrAlreadyInRoom rejects a second membership for the same user.
	ErrAlreadyInRoom = errors.New("user already in room")
	// ErrNotInRoom is returned when a user acts on a room they never joined.
	ErrNotInRoom = errors.New("user not in room")
	// ErrRoomAlreadyStarted rejects operations requiring a waiting room.
	ErrRoomAlreadyStarted = errors.New("room already started")
	// ErrGameNotStarted rejects play operations before the game began.
	ErrGameNotStarted = errors.New("game not started")
	// ErrNotCreator rejects start attempts by anyone but the room creator.
	ErrNotCreator = errors.New("only the room creator may start the game")
	// ErrNotEnoughPlayers rejects starting below the minimum player count.
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	// ErrDuplicateAnswer rejects a second submission for the same question.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrQuestionNotActive rejects submissions against a past or future question.
	ErrQuestionNotActive = errors.New("question is not the active one")
	// ErrTimeExpired rejects submissions after the question timer ran out.
	ErrTimeExpired = errors.New("time expired for this question")
	// ErrTransitionTooSoon rejects advancing before the display cooldown passed.
	ErrTransitionTooSoon = errors.New("question transition cooldown not elapsed")
	// ErrStaleTransition is returned when a concurrent trigger already advanced.
	ErrStaleTransition = errors.New("question already advanced")
)

// ValidationError aggregates every violated field of a request so callers can
// surface the complete list in one round trip.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, field := range keys {
		msgs = append(msgs, fmt.Sprintf("%s %s", field, e.Fields[field]))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
