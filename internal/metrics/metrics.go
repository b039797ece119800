// Package metrics exposes the service's prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizroom_rooms_created_total",
		Help: "Number of rooms created.",
	})
	PlayersJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizroom_players_joined_total",
		Help: "Number of successful room joins.",
	})
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizroom_games_started_total",
		Help: "Number of games started.",
	})
	GamesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizroom_games_finished_total",
		Help: "Number of games that ran to completion.",
	})
	AnswersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizroom_answers_accepted_total",
		Help: "Number of answer submissions accepted and scored.",
	})
	AnswersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizroom_answers_rejected_total",
		Help: "Number of answer submissions rejected (duplicate, stale or expired).",
	})
)
