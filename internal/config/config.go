package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Nats struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"nats"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Game Game `yaml:"game"`
}

// Game tunes the room engine. Zero values fall back to the defaults below.
type Game struct {
	QuestionDuration   int `yaml:"question_duration"`   // seconds, default 30
	FeedbackDuration   int `yaml:"feedback_duration"`   // seconds, default 3
	TransitionCooldown int `yaml:"transition_cooldown"` // seconds, default 3
	MaxPlayers         int `yaml:"max_players"`         // default 4
	MinPlayers         int `yaml:"min_players"`         // default 2
	ScoreBase          int `yaml:"score_base"`          // default 10
	ScorePenaltyStep   int `yaml:"score_penalty_step"`  // seconds per point lost, default 3
}

// WithDefaults fills unset game settings.
func (g Game) WithDefaults() Game {
	if g.QuestionDuration <= 0 {
		g.QuestionDuration = 30
	}
	if g.FeedbackDuration <= 0 {
		g.FeedbackDuration = 3
	}
	if g.TransitionCooldown <= 0 {
		g.TransitionCooldown = 3
	}
	if g.MaxPlayers <= 0 {
		g.MaxPlayers = 4
	}
	if g.MinPlayers <= 0 {
		g.MinPlayers = 2
	}
	if g.ScoreBase <= 0 {
		g.ScoreBase = 10
	}
	if g.ScorePenaltyStep <= 0 {
		g.ScorePenaltyStep = 3
	}
	return g
}

// Load reads YAML config from path. A missing file is not an error: the
// service starts on defaults (in-memory stores, local hub only).
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.Game = cfg.Game.WithDefaults()
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.Game = cfg.Game.WithDefaults()
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
