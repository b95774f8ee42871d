package config

import (
	"errors"
	"fmt"
	"testing"
)

var storageVars = []string{"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET"}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "CLICKHOUSE_HOST", "CLICKHOUSE_PORT", "POSTGRES_DSN"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.ClickHouseHost != "localhost" || cfg.ClickHousePort != "9000" {
		t.Errorf("ClickHouse address = %s:%s, want localhost:9000", cfg.ClickHouseHost, cfg.ClickHousePort)
	}
	if cfg.PostgresDSN == "" {
		t.Error("expected default PostgresDSN")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("POSTGRES_DSN", "postgres://catalog")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.PostgresDSN != "postgres://catalog" {
		t.Errorf("PostgresDSN = %q", cfg.PostgresDSN)
	}
}

func TestLoadStorage_RequiredVarsMissing(t *testing.T) {
	for _, missing := range storageVars {
		t.Run(missing, func(t *testing.T) {
			for _, key := range storageVars {
				t.Setenv(key, "test-value")
			}
			t.Setenv(missing, "")

			_, err := LoadStorage()
			var errMissing *ErrMissingRequiredEnvVar
			if !errors.As(err, &errMissing) {
				t.Fatalf("expected ErrMissingRequiredEnvVar, got %v", err)
			}
			var varName string
			c, _ := fmt.Sscanf(
				err.Error(),
				"required environment variable %q is not set",
				&varName,
			)
			if c != 1 || varName != missing {
				t.Fatalf("expected ErrMissingRequiredEnvVar to be set to %q, got %q", missing, varName)
			}
		})
	}
}

func TestLoadStorage_ValidConfig(t *testing.T) {
	for _, key := range storageVars {
		t.Setenv(key, "test-value")
	}
	t.Setenv("MINIO_USE_SSL", "")

	cfg, err := LoadStorage()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.MinIOEndpoint != "test-value" || cfg.MinIOAccessKey != "test-value" ||
		cfg.MinIOSecretKey != "test-value" || cfg.MinIOBucket != "test-value" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MinIOUseSSL {
		t.Fatal("expected MinIOUseSSL to be false by default")
	}
}

func TestLoadStorage_SSL(t *testing.T) {
	for _, key := range storageVars {
		t.Setenv(key, "test-value")
	}
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := LoadStorage()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !cfg.MinIOUseSSL {
		t.Fatal("expected MinIOUseSSL to be true")
	}
}
