package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"quizroom-service/internal/config"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected defaults without a config file, got %v", err)
	}
	if cfg.Game.QuestionDuration != 30 || cfg.Game.TransitionCooldown != 3 {
		t.Fatalf("expected game defaults, got %+v", cfg.Game)
	}
	if cfg.Game.MaxPlayers != 4 || cfg.Game.MinPlayers != 2 {
		t.Fatalf("expected player defaults, got %+v", cfg.Game)
	}
	if cfg.Redis.Addr != "" || cfg.Postgres.URL != "" {
		t.Fatalf("expected empty infrastructure config, got %+v", cfg)
	}
}

func TestLoadFillsUnsetGameSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "server:\n  port: \"9090\"\ngame:\n  question_duration: 45\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Game.QuestionDuration != 45 {
		t.Fatalf("expected configured duration, got %d", cfg.Game.QuestionDuration)
	}
	if cfg.Game.MinPlayers != 2 || cfg.Game.ScoreBase != 10 {
		t.Fatalf("expected unset settings defaulted, got %+v", cfg.Game)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [broken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := config.TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := config.TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected parsed value, got %v", got)
	}
	if got := config.TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on parse error, got %v", got)
	}
}
