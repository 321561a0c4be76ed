package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataBackend = "postgres"
	cfg.DatabaseURL = "postgres://localhost/fintrack"

	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bc.Type != PostgresBackend || bc.DatabaseURL != cfg.DatabaseURL {
		t.Fatalf("unexpected backend config %+v", bc)
	}

	cfg.DataBackend = "sheets"
	_, err = FromAppConfig(cfg)
	if err == nil || !strings.Contains(err.Error(), "valid: sqlite,postgres,memory") {
		t.Fatalf("expected error listing valid backends, got %v", err)
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"postgres without url", Config{Type: PostgresBackend}, "database URL is required"},
		{"unknown", Config{Type: "redis"}, `invalid backend type: "redis" (valid: sqlite,postgres,memory)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "fintrack.db")},
	} {
		res, err := f.CreateBackend(ctx, cfg)
		if err != nil {
			t.Fatalf("%s: %v", cfg.Type, err)
		}
		if err := res.Store.Ping(ctx); err != nil {
			t.Fatalf("%s: ping: %v", cfg.Type, err)
		}
		if err := res.Cleanup(); err != nil {
			t.Fatalf("%s: cleanup: %v", cfg.Type, err)
		}
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := strings.Join(GetBackendTypeStrings(), ",")
	if got != "sqlite,postgres,memory" {
		t.Fatalf("unexpected types %s", got)
	}
}
