package domain

import (
	"fmt"
	"strings"
	"time"
)

// RoomStatus is the lifecycle state of a room. Transitions only move
// forward: waiting -> in_progress -> finished.
type RoomStatus string

const (
	RoomWaiting    RoomStatus = "waiting"
	RoomInProgress RoomStatus = "in_progress"
	RoomFinished   RoomStatus = "finished"
)

// User carries the identity fields the engine needs for display-name
// resolution and ownership checks.
type User struct {
	ID        int64  `json:"id"`
	Pseudo    string `json:"pseudo"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// DisplayName resolves a presentable name: pseudo first, then the non-empty
// parts of "first last", then a numeric fallback.
func (u User) DisplayName() string {
	if pseudo := strings.TrimSpace(u.Pseudo); pseudo != "" {
		return pseudo
	}
	parts := make([]string, 0, 2)
	if first := strings.TrimSpace(u.FirstName); first != "" {
		parts = append(parts, first)
	}
	if last := strings.TrimSpace(u.LastName); last != "" {
		parts = append(parts, last)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return fmt.Sprintf("Player %d", u.ID)
}

// RoomPlayer is a user's membership in a room. A (room, user) pair exists at
// most once.
type RoomPlayer struct {
	RoomCode    string    `json:"roomCode"`
	UserID      int64     `json:"userId"`
	DisplayName string    `json:"displayName"`
	Team        string    `json:"team,omitempty"`
	Creator     bool      `json:"creator"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// GameSession is the live-play state of a started room. It exists only while
// the room is in progress, one per room at a time.
type GameSession struct {
	GameCode          string         `json:"gameCode"`
	QuizID            int64          `json:"quizId"`
	QuestionIndex     int            `json:"questionIndex"`
	QuestionStartedAt time.Time      `json:"questionStartedAt"`
	QuestionDuration  int            `json:"questionDuration"`
	SharedScores      map[string]int `json:"sharedScores"`
}

// Clone returns a deep copy so stores can hand out sessions without sharing
// the scores map.
func (s *GameSession) Clone() *GameSession {
	if s == nil {
		return nil
	}
	dup := *s
	dup.SharedScores = make(map[string]int, len(s.SharedScores))
	for name, score := range s.SharedScores {
		dup.SharedScores[name] = score
	}
	return &dup
}

// Room is a lobby for one quiz. It owns its player list and, while in
// progress, exactly one game session.
type Room struct {
	Code       string        `json:"code"`
	QuizID     int64         `json:"quizId"`
	CreatorID  int64         `json:"creatorId"`
	MaxPlayers int           `json:"maxPlayers"`
	TeamMode   bool          `json:"teamMode"`
	Status     RoomStatus    `json:"status"`
	Name       string        `json:"name,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	StartedAt  time.Time     `json:"startedAt,omitempty"`
	Players    []*RoomPlayer `json:"players"`
	Session    *GameSession  `json:"session,omitempty"`
}

// Clone deep-copies the room including players and session.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	dup := *r
	dup.Players = make([]*RoomPlayer, len(r.Players))
	for i, p := range r.Players {
		player := *p
		dup.Players[i] = &player
	}
	dup.Session = r.Session.Clone()
	return &dup
}

// Player returns the membership record for a user, or nil.
func (r *Room) Player(userID int64) *RoomPlayer {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *Room) HasPlayer(userID int64) bool {
	return r.Player(userID) != nil
}

func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// Option represents a possible answer for a question.
type Option struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question; one or more options may be correct.
type Question struct {
	ID      int64    `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// HasOption reports whether the option id belongs to this question.
func (q Question) HasOption(optionID int64) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// IsCorrect reports whether the option id is one of the designated correct
// answers.
func (q Question) IsCorrect(optionID int64) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt.Correct
		}
	}
	return false
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// AnswerRecord tracks one accepted answer for a (game, user, question).
type AnswerRecord struct {
	QuestionID     int64     `json:"questionId"`
	OptionID       int64     `json:"optionId"`
	Correct        bool      `json:"correct"`
	Points         int       `json:"points"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// AnswerResult summarizes the outcome of one submission for the caller.
type AnswerResult struct {
	QuestionID int64 `json:"questionId"`
	Correct    bool  `json:"correct"`
	Awarded    int   `json:"awarded"`
	TotalScore int   `json:"totalScore"`
}

// LeaderboardEntry is one ranked row of the in-game scoreboard.
type LeaderboardEntry struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Position int    `json:"position"`
	Team     string `json:"team,omitempty"`
}

// QuizSummary is the quiz view embedded in room snapshots.
type QuizSummary struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"questionCount"`
}

// PlayerSnapshot is the player view embedded in room snapshots.
type PlayerSnapshot struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
	Creator     bool   `json:"creator"`
	Team        string `json:"team,omitempty"`
}

// RoomSnapshot is the read-only status payload returned by engine operations
// and published to subscribed clients.
type RoomSnapshot struct {
	Code          string             `json:"code"`
	Status        RoomStatus         `json:"status"`
	Name          string             `json:"name,omitempty"`
	Quiz          QuizSummary        `json:"quiz"`
	CreatorID     int64              `json:"creatorId"`
	MaxPlayers    int                `json:"maxPlayers"`
	TeamMode      bool               `json:"teamMode"`
	CreatedAt     time.Time          `json:"createdAt"`
	StartedAt     *time.Time         `json:"startedAt,omitempty"`
	Players       []PlayerSnapshot   `json:"players"`
	PlayerCount   int                `json:"playerCount"`
	QuestionIndex *int               `json:"questionIndex,omitempty"`
	TimeLeft      *int               `json:"timeLeft,omitempty"`
	Leaderboard   []LeaderboardEntry `json:"leaderboard,omitempty"`
}

// LeaveResult reports the outcome of leaving a room. Deleted is true when the
// last player left and the room was removed.
type LeaveResult struct {
	Deleted bool          `json:"deleted"`
	Room    *RoomSnapshot `json:"room,omitempty"`
}

// Event is the envelope published on the per-room topic after every committed
// mutation.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Room    string    `json:"room"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}
