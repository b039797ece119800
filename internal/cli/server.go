package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quizroom-service/internal/app"
	"quizroom-service/internal/config"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
	natspub "quizroom-service/internal/infra/nats"
	pgstore "quizroom-service/internal/infra/postgres"
	redisstore "quizroom-service/internal/infra/redis"
	"quizroom-service/internal/pubsub"
	transport "quizroom-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var roomStore app.RoomStore
	var answerStore app.AnswerStore
	if redisClient != nil {
		roomStore = redisstore.NewRoomStore(redisClient, redisTTL)
		answerStore = redisstore.NewAnswerStore(redisClient)
	} else {
		roomStore = memory.NewRoomStore()
		answerStore = memory.NewAnswerStore()
	}

	var userStore app.UserStore = memory.NewUserStore(sampleUsers())
	if pool != nil {
		userStore = pgstore.NewUserStore(pool)
	}

	hub := pubsub.NewHub()
	var publisher pubsub.Publisher = hub
	if cfg.Nats.URL != "" {
		np, err := natspub.Connect(cfg.Nats.URL, cfg.Nats.Token)
		if err != nil {
			return err
		}
		defer np.Close()
		publisher = pubsub.NewFanout(hub, np)
	}

	timing := app.NewTimingService(roomStore, cfg.Game.QuestionDuration)
	scoring := app.NewScoringService(answerStore, cfg.Game.ScoreBase, cfg.Game.ScorePenaltyStep)
	validation := app.NewValidationService()
	engine := app.NewRoomEngine(roomStore, quizRepo, timing, scoring, validation, publisher, app.Settings{
		QuestionDuration:   cfg.Game.QuestionDuration,
		TransitionCooldown: cfg.Game.TransitionCooldown,
		DefaultMaxPlayers:  cfg.Game.MaxPlayers,
		MinPlayers:         cfg.Game.MinPlayers,
	})
	wsHandler := transport.NewWSHandler(engine, userStore, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logrus.Infof("starting quiz room service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logrus.Info("shutting down server...")
	case <-ctx.Done():
		logrus.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides minimal quiz data for running without postgres.
func sampleQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID:    1,
			Title: "General knowledge",
			Questions: []domain.Question{
				{
					ID:     1,
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: 1, Text: "3", Correct: false},
						{ID: 2, Text: "4", Correct: true},
						{ID: 3, Text: "5", Correct: false},
					},
				},
				{
					ID:     2,
					Prompt: "Which planet is closest to the sun?",
					Options: []domain.Option{
						{ID: 4, Text: "Venus", Correct: false},
						{ID: 5, Text: "Mercury", Correct: true},
						{ID: 6, Text: "Mars", Correct: false},
					},
				},
			},
		},
	}
}

// sampleUsers lets the websocket handler resolve identities without a user
// database.
func sampleUsers() map[int64]domain.User {
	return map[int64]domain.User{
		1: {ID: 1, Pseudo: "alice"},
		2: {ID: 2, FirstName: "Bob", LastName: "Martin"},
		3: {ID: 3},
	}
}
