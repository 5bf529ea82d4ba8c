package bootstrap

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"bazaar/internal/platform/config"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":      ":8080",
		" 9000": ":9000",
		":7000": ":7000",
	}
	for input, want := range cases {
		if got := normalizeAddr(input); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBuildAPIWithMemoryBackendAndSnapshots(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("SNAPSHOT_PATH", filepath.Join(t.TempDir(), "ledger.db"))

	app, err := BuildAPI(context.Background())
	if err != nil {
		t.Fatalf("build api: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	if app.relay == nil {
		t.Fatalf("expected in-process outbox relay")
	}
	if app.snapshotter == nil || app.snapshots == nil {
		t.Fatalf("expected snapshot writer to be wired")
	}
	if err := app.snapshotter.RunOnce(context.Background()); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
}

func TestBuildAPIRelayCanBeDisabled(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("API_OUTBOX_RELAY", "false")

	app, err := BuildAPI(context.Background())
	if err != nil {
		t.Fatalf("build api: %v", err)
	}
	defer app.Close()

	if app.relay != nil {
		t.Fatalf("expected relay disabled")
	}
}

func TestBuildWorkerRequiresPostgres(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("OTEL_ENABLED", "false")

	if _, err := BuildWorker(context.Background()); err == nil {
		t.Fatalf("expected worker to reject the memory backend")
	}
}

func TestMemoryBackendCloseIsNoop(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	backend, err := buildBackend(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("build backend: %v", err)
	}
	if backend.postgres != nil {
		t.Fatalf("expected no postgres handle for the memory backend")
	}
	if err := backend.close(); err != nil {
		t.Fatalf("close memory backend: %v", err)
	}
}
