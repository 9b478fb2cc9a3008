package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/config"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.BroadcastScope = "room"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "app.db")

	if _, err := New(context.Background(), &cfg, &logger); err == nil {
		t.Fatalf("expected error for unknown broadcast scope")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "app.db")

	application, err := New(context.Background(), &cfg, &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := application.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if application.hub.Len() != 0 {
		t.Fatalf("hub must be drained")
	}
}
