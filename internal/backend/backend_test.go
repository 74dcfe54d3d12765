package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"childcare/internal/config"
	"childcare/internal/core"
	"childcare/internal/log"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: log.NewHandler(io.Discard, "text", slog.LevelInfo)})
}

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		want    Type
		wantErr bool
	}{
		{"nil", nil, "", true},
		{"memory", &config.Config{DataBackend: "memory", SeedDir: "seed"}, Memory, false},
		{"sqlite", &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"}, SQLite, false},
		{"sheets no longer supported", &config.Config{DataBackend: "sheets"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Type != tt.want {
				t.Errorf("type = %q, want %q", got.Type, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (Config{Type: SQLite}).Validate(); err == nil {
		t.Error("expected error for sqlite without path")
	}
	if err := (Config{Type: "postgres"}).Validate(); err == nil {
		t.Error("expected error for unknown type")
	}
	if err := (Config{Type: Memory}).Validate(); err != nil {
		t.Errorf("memory Validate() = %v", err)
	}
}

func TestFactory_Open(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(quietLogger())

	for _, cfg := range []Config{
		{Type: Memory, DataDirectory: t.TempDir()},
		{Type: SQLite, SQLiteDBPath: filepath.Join(t.TempDir(), "childcare.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			repo, err := f.Open(ctx, cfg)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer repo.Close()

			if err := repo.Ping(ctx); err != nil {
				t.Fatalf("Ping() error = %v", err)
			}
			c, err := repo.EnsureCentre(ctx, core.Centre{Name: "Aroha"})
			if err != nil || c.ID == 0 {
				t.Fatalf("EnsureCentre() = %+v, %v", c, err)
			}
		})
	}
}
