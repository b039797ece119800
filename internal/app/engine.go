package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/metrics"
	"quizroom-service/internal/pubsub"
)

// RoomStore abstracts room and session persistence. Capacity checks,
// membership uniqueness and question advancement are atomic inside the store
// so concurrent requests cannot over-fill a room or double-advance a
// question.
type RoomStore interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByCode(ctx context.Context, code string) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, code string) error

	// AddPlayer inserts the player iff the room is waiting, has a free slot
	// and the user is not already a member. Returns the updated room.
	AddPlayer(ctx context.Context, code string, player *domain.RoomPlayer) (*domain.Room, error)
	// RemovePlayer removes the user's membership and returns the updated room.
	RemovePlayer(ctx context.Context, code string, userID int64) (*domain.Room, error)

	SaveSession(ctx context.Context, session *domain.GameSession) error
	GetSession(ctx context.Context, gameCode string) (*domain.GameSession, error)
	DeleteSession(ctx context.Context, gameCode string) error
	// AdvanceQuestion increments the question index iff it still equals
	// fromIndex, clearing the question timing. Returns the updated session.
	AdvanceQuestion(ctx context.Context, gameCode string, fromIndex int) (*domain.GameSession, error)
	// AddScore atomically adds points to the player's shared score against the
	// stored session, never a caller-held copy, so concurrent submissions for
	// the same question cannot lose each other's update. Returns the updated
	// session.
	AddScore(ctx context.Context, gameCode string, displayName string, points int) (*domain.GameSession, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// UserStore resolves user identity and display-name fields.
type UserStore interface {
	GetUser(ctx context.Context, userID int64) (domain.User, error)
}

// Settings is the engine's tuning surface; zero values fall back to the
// documented defaults.
type Settings struct {
	QuestionDuration   int // seconds per question, default 30
	TransitionCooldown int // minimum display seconds before advancing, default 3
	DefaultMaxPlayers  int // max players when the creator does not choose, default 4
	MinPlayers         int // minimum players to start, default 2
}

func (s Settings) withDefaults() Settings {
	if s.QuestionDuration <= 0 {
		s.QuestionDuration = 30
	}
	if s.TransitionCooldown <= 0 {
		s.TransitionCooldown = 3
	}
	if s.DefaultMaxPlayers <= 0 {
		s.DefaultMaxPlayers = 4
	}
	if s.MinPlayers <= 0 {
		s.MinPlayers = 2
	}
	return s
}

// Topic derives the per-room publish topic from the room code.
func Topic(code string) string {
	return "game-" + code
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6

// RoomEngine owns the room lifecycle state machine and orchestrates timing,
// scoring and validation. Every committed mutation publishes an event on the
// room's topic, after the store write, never before.
type RoomEngine struct {
	rooms     RoomStore
	quizzes   QuizRepository
	timing    *TimingService
	scoring   *ScoringService
	validate  *ValidationService
	publisher pubsub.Publisher
	settings  Settings
	clock     func() time.Time
	log       *logrus.Entry
}

func NewRoomEngine(rooms RoomStore, quizzes QuizRepository, timing *TimingService, scoring *ScoringService, validate *ValidationService, publisher pubsub.Publisher, settings Settings) *RoomEngine {
	return &RoomEngine{
		rooms:     rooms,
		quizzes:   quizzes,
		timing:    timing,
		scoring:   scoring,
		validate:  validate,
		publisher: publisher,
		settings:  settings.withDefaults(),
		clock:     time.Now,
		log:       logrus.WithField("component", "room-engine"),
	}
}

// WithClock is test-only for deterministic timestamps.
func (e *RoomEngine) WithClock(clock func() time.Time) *RoomEngine {
	e.clock = clock
	return e
}

// CreateRoom validates the request, resolves the quiz and persists a waiting
// room with the creator as its first player.
func (e *RoomEngine) CreateRoom(ctx context.Context, creator domain.User, req CreateRoomRequest) (*domain.RoomSnapshot, error) {
	if err := e.validate.ValidateCreateRoom(req); err != nil {
		return nil, err
	}
	quiz, err := e.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = e.settings.DefaultMaxPlayers
	}

	now := e.clock()
	room := &domain.Room{
		QuizID:     quiz.ID,
		CreatorID:  creator.ID,
		MaxPlayers: maxPlayers,
		TeamMode:   req.TeamMode,
		Status:     domain.RoomWaiting,
		Name:       req.Name,
		CreatedAt:  now,
	}

	// Regenerate on the rare code collision.
	for attempt := 0; ; attempt++ {
		room.Code = e.newRoomCode()
		room.Players = []*domain.RoomPlayer{{
			RoomCode:    room.Code,
			UserID:      creator.ID,
			DisplayName: creator.DisplayName(),
			Creator:     true,
			JoinedAt:    now,
		}}
		err := e.rooms.Create(ctx, room)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrRoomCodeTaken) && attempt < 4 {
			continue
		}
		e.logInfra("create_room", room.Code, creator.ID, err)
		return nil, fmt.Errorf("create room: %w", err)
	}

	metrics.RoomsCreated.Inc()
	snap := e.snapshot(room, quiz)
	e.publish(room.Code, "room_created", snap)
	return snap, nil
}

// JoinRoom adds the user to a waiting room with a free slot. The capacity and
// membership checks run atomically in the store so the last open slot is
// granted to exactly one of two racing joins.
func (e *RoomEngine) JoinRoom(ctx context.Context, user domain.User, req JoinRoomRequest) (*domain.RoomSnapshot, error) {
	if err := e.validate.ValidateJoinRoom(req); err != nil {
		return nil, err
	}
	room, err := e.rooms.GetByCode(ctx, req.RoomCode)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.RoomWaiting {
		return nil, domain.ErrRoomAlreadyStarted
	}

	displayName := req.PlayerName
	if displayName == "" {
		displayName = user.DisplayName()
	}
	updated, err := e.rooms.AddPlayer(ctx, req.RoomCode, &domain.RoomPlayer{
		RoomCode:    req.RoomCode,
		UserID:      user.ID,
		DisplayName: displayName,
		Team:        req.Team,
		JoinedAt:    e.clock(),
	})
	if err != nil {
		return nil, err
	}

	quiz, err := e.quizzes.GetQuiz(ctx, updated.QuizID)
	if err != nil {
		return nil, err
	}
	metrics.PlayersJoined.Inc()
	snap := e.snapshot(updated, quiz)
	e.publish(updated.Code, "player_joined", snap)
	return snap, nil
}

// StartGame transitions a waiting room to in_progress. Only the creator may
// start, and only with the minimum player count reached.
func (e *RoomEngine) StartGame(ctx context.Context, roomCode string, user domain.User) (*domain.RoomSnapshot, error) {
	room, err := e.rooms.GetByCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != user.ID {
		return nil, domain.ErrNotCreator
	}
	if room.Status != domain.RoomWaiting {
		return nil, domain.ErrRoomAlreadyStarted
	}
	if len(room.Players) < e.settings.MinPlayers {
		return nil, domain.ErrNotEnoughPlayers
	}
	quiz, err := e.quizzes.GetQuiz(ctx, room.QuizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrQuestionNotFound
	}

	now := e.clock()
	room.Status = domain.RoomInProgress
	room.StartedAt = now
	room.Session = &domain.GameSession{
		GameCode:     room.Code,
		QuizID:       room.QuizID,
		SharedScores: make(map[string]int),
	}
	if err := e.rooms.Update(ctx, room); err != nil {
		e.logInfra("start_game", roomCode, user.ID, err)
		return nil, fmt.Errorf("start game: %w", err)
	}
	if err := e.timing.StartQuestion(ctx, room.Session, e.settings.QuestionDuration); err != nil {
		e.logInfra("start_game", roomCode, user.ID, err)
		return nil, fmt.Errorf("start question timing: %w", err)
	}

	metrics.GamesStarted.Inc()
	snap := e.snapshot(room, quiz)
	e.publish(room.Code, "game_started", snap)
	return snap, nil
}

// SubmitAnswer scores one answer against the active question. Stale
// questions, expired timers and duplicate submissions are rejected; the
// duplicate check is the store's atomic record-if-absent, so two racing
// submissions score exactly once.
func (e *RoomEngine) SubmitAnswer(ctx context.Context, user domain.User, req SubmitAnswerRequest) (*domain.AnswerResult, error) {
	if err := e.validate.ValidateSubmitAnswer(req); err != nil {
		return nil, err
	}
	room, err := e.rooms.GetByCode(ctx, req.RoomCode)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.RoomInProgress || room.Session == nil {
		return nil, domain.ErrGameNotStarted
	}
	player := room.Player(user.ID)
	if player == nil {
		return nil, domain.ErrNotInRoom
	}

	session := room.Session
	quiz, err := e.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}
	if session.QuestionIndex >= len(quiz.Questions) {
		return nil, domain.ErrQuestionNotActive
	}
	current := quiz.Questions[session.QuestionIndex]
	if current.ID != req.QuestionID {
		metrics.AnswersRejected.Inc()
		return nil, domain.ErrQuestionNotActive
	}
	if !current.HasOption(req.OptionID) {
		return nil, domain.ErrOptionNotFound
	}

	if err := e.timing.EnsureTiming(ctx, session); err != nil {
		e.logInfra("submit_answer", req.RoomCode, user.ID, err)
		return nil, fmt.Errorf("ensure timing: %w", err)
	}
	if e.timing.Expired(session) {
		metrics.AnswersRejected.Inc()
		return nil, domain.ErrTimeExpired
	}

	elapsed := e.timing.Elapsed(session)
	if req.ElapsedSeconds != nil {
		elapsed = *req.ElapsedSeconds
	}
	correct := current.IsCorrect(req.OptionID)
	points := e.scoring.Points(correct, elapsed)

	inserted, err := e.scoring.RecordAnswer(ctx, session.GameCode, user.ID, domain.AnswerRecord{
		QuestionID:     current.ID,
		OptionID:       req.OptionID,
		Correct:        correct,
		Points:         points,
		ElapsedSeconds: elapsed,
		AnsweredAt:     e.clock(),
	})
	if err != nil {
		e.logInfra("submit_answer", req.RoomCode, user.ID, err)
		return nil, fmt.Errorf("record answer: %w", err)
	}
	if !inserted {
		metrics.AnswersRejected.Inc()
		return nil, domain.ErrDuplicateAnswer
	}

	updated, err := e.rooms.AddScore(ctx, session.GameCode, player.DisplayName, points)
	if err != nil {
		// The answer was recorded but the score cannot be applied: compensate
		// so a retry is not rejected as a duplicate of half-applied state.
		if derr := e.scoring.DiscardAnswer(ctx, session.GameCode, user.ID, current.ID); derr != nil {
			e.logInfra("submit_answer", req.RoomCode, user.ID, derr)
		}
		e.logInfra("submit_answer", req.RoomCode, user.ID, err)
		return nil, fmt.Errorf("apply score: %w", err)
	}
	session = updated

	total, err := e.scoring.TotalScore(ctx, session.GameCode, user.ID)
	if err != nil {
		e.logInfra("submit_answer", req.RoomCode, user.ID, err)
		return nil, fmt.Errorf("total score: %w", err)
	}

	metrics.AnswersAccepted.Inc()
	e.publish(room.Code, "answer_submitted", map[string]any{
		"userId":      user.ID,
		"questionId":  current.ID,
		"correct":     correct,
		"points":      points,
		"leaderboard": e.scoring.Leaderboard(room, session),
	})
	return &domain.AnswerResult{
		QuestionID: current.ID,
		Correct:    correct,
		Awarded:    points,
		TotalScore: total,
	}, nil
}

// AdvanceQuestion moves the game to the next question, or finishes it past
// the last one. The store's compare-and-set guarantees two near-simultaneous
// triggers advance the index exactly once; the cooldown keeps questions on
// screen for a minimum display time.
func (e *RoomEngine) AdvanceQuestion(ctx context.Context, roomCode string, fromIndex int) (*domain.RoomSnapshot, error) {
	room, err := e.rooms.GetByCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.RoomInProgress || room.Session == nil {
		return nil, domain.ErrGameNotStarted
	}
	if !e.timing.CanTransition(room.Session, e.settings.TransitionCooldown) {
		return nil, domain.ErrTransitionTooSoon
	}
	quiz, err := e.quizzes.GetQuiz(ctx, room.Session.QuizID)
	if err != nil {
		return nil, err
	}

	session, err := e.rooms.AdvanceQuestion(ctx, roomCode, fromIndex)
	if err != nil {
		return nil, err
	}
	if session.QuestionIndex >= len(quiz.Questions) {
		return e.finishGame(ctx, room, quiz, session)
	}

	if err := e.timing.StartQuestion(ctx, session, e.settings.QuestionDuration); err != nil {
		e.logInfra("advance_question", roomCode, 0, err)
		return nil, fmt.Errorf("start question timing: %w", err)
	}
	room.Session = session
	snap := e.snapshot(room, quiz)
	e.publish(roomCode, "question_advanced", snap)
	return snap, nil
}

// finishGame marks the room finished, drops the session and clears the
// recorded answers for this game code only. The final leaderboard is taken
// before the scores are purged.
func (e *RoomEngine) finishGame(ctx context.Context, room *domain.Room, quiz domain.Quiz, session *domain.GameSession) (*domain.RoomSnapshot, error) {
	final := e.scoring.Leaderboard(room, session)

	room.Status = domain.RoomFinished
	room.Session = nil
	if err := e.rooms.Update(ctx, room); err != nil {
		e.logInfra("finish_game", room.Code, 0, err)
		return nil, fmt.Errorf("finish game: %w", err)
	}
	if err := e.rooms.DeleteSession(ctx, room.Code); err != nil {
		e.logInfra("finish_game", room.Code, 0, err)
		return nil, fmt.Errorf("delete session: %w", err)
	}
	if err := e.scoring.ClearGame(ctx, room.Code); err != nil {
		e.logInfra("finish_game", room.Code, 0, err)
		return nil, fmt.Errorf("clear answers: %w", err)
	}

	metrics.GamesFinished.Inc()
	snap := e.snapshot(room, quiz)
	snap.Leaderboard = final

	percentages := make(map[string]int, len(final))
	for _, entry := range final {
		percentages[entry.Username] = e.scoring.Percentage(entry.Score, len(quiz.Questions))
	}
	e.publish(room.Code, "game_finished", map[string]any{
		"room":        snap,
		"percentages": percentages,
	})
	return snap, nil
}

// LeaveRoom removes the user's membership. When the last player leaves, the
// room and any per-game state are deleted and the result reports deleted.
func (e *RoomEngine) LeaveRoom(ctx context.Context, roomCode string, user domain.User) (*domain.LeaveResult, error) {
	if _, err := e.rooms.GetByCode(ctx, roomCode); err != nil {
		return nil, err
	}
	updated, err := e.rooms.RemovePlayer(ctx, roomCode, user.ID)
	if err != nil {
		return nil, err
	}

	if len(updated.Players) == 0 {
		if err := e.rooms.Delete(ctx, roomCode); err != nil {
			e.logInfra("leave_room", roomCode, user.ID, err)
			return nil, fmt.Errorf("delete room: %w", err)
		}
		if err := e.scoring.ClearGame(ctx, roomCode); err != nil {
			e.logInfra("leave_room", roomCode, user.ID, err)
			return nil, fmt.Errorf("clear answers: %w", err)
		}
		e.publish(roomCode, "room_deleted", map[string]any{"code": roomCode})
		return &domain.LeaveResult{Deleted: true}, nil
	}

	quiz, err := e.quizzes.GetQuiz(ctx, updated.QuizID)
	if err != nil {
		return nil, err
	}
	snap := e.snapshot(updated, quiz)
	e.publish(roomCode, "player_left", snap)
	return &domain.LeaveResult{Room: snap}, nil
}

// GetRoomStatus assembles a read-only snapshot of the room. No mutation.
func (e *RoomEngine) GetRoomStatus(ctx context.Context, roomCode string) (*domain.RoomSnapshot, error) {
	room, err := e.rooms.GetByCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	quiz, err := e.quizzes.GetQuiz(ctx, room.QuizID)
	if err != nil {
		return nil, err
	}
	return e.snapshot(room, quiz), nil
}

// InvitePlayer validates the invitation and publishes it on the room topic so
// the outer notification layer can deliver the email.
func (e *RoomEngine) InvitePlayer(ctx context.Context, req InviteRequest) error {
	if err := e.validate.ValidateInvite(req); err != nil {
		return err
	}
	room, err := e.rooms.GetByCode(ctx, req.RoomCode)
	if err != nil {
		return err
	}
	e.publish(room.Code, "player_invited", map[string]any{
		"room":  room.Code,
		"email": req.Email,
	})
	return nil
}

func (e *RoomEngine) snapshot(room *domain.Room, quiz domain.Quiz) *domain.RoomSnapshot {
	players := make([]domain.PlayerSnapshot, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, domain.PlayerSnapshot{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Creator:     p.Creator,
			Team:        p.Team,
		})
	}
	snap := &domain.RoomSnapshot{
		Code:        room.Code,
		Status:      room.Status,
		Name:        room.Name,
		Quiz:        domain.QuizSummary{ID: quiz.ID, Title: quiz.Title, QuestionCount: len(quiz.Questions)},
		CreatorID:   room.CreatorID,
		MaxPlayers:  room.MaxPlayers,
		TeamMode:    room.TeamMode,
		CreatedAt:   room.CreatedAt,
		Players:     players,
		PlayerCount: len(players),
	}
	if !room.StartedAt.IsZero() {
		startedAt := room.StartedAt
		snap.StartedAt = &startedAt
	}
	if room.Session != nil {
		index := room.Session.QuestionIndex
		timeLeft := e.timing.TimeLeft(room.Session)
		snap.QuestionIndex = &index
		snap.TimeLeft = &timeLeft
		snap.Leaderboard = e.scoring.Leaderboard(room, room.Session)
	}
	return snap
}

func (e *RoomEngine) publish(code, eventType string, payload any) {
	event := domain.Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Room:    code,
		At:      e.clock(),
		Payload: payload,
	}
	if err := e.publisher.Publish(Topic(code), event); err != nil {
		e.log.WithFields(logrus.Fields{"room": code, "event": eventType}).Warnf("publish failed: %v", err)
	}
}

// newRoomCode draws from the global locked source; create requests may run
// concurrently.
func (e *RoomEngine) newRoomCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(code)
}

func (e *RoomEngine) logInfra(op, room string, userID int64, err error) {
	e.log.WithFields(logrus.Fields{"op": op, "room": room, "user": userID}).Errorf("operation failed: %v", err)
}
