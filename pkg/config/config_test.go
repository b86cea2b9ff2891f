package config

import (
	"strings"
	"testing"
)

func TestEnsureDSNPrefersExplicitValue(t *testing.T) {
	t.Parallel()

	cfg := DBConfig{DSN: "postgres://app:secret@db:5432/storefront"}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	if cfg.DSN != "postgres://app:secret@db:5432/storefront" {
		t.Fatalf("dsn should be untouched, got %q", cfg.DSN)
	}
}

func TestEnsureDSNBuildsFromLegacyParts(t *testing.T) {
	t.Parallel()

	cfg := DBConfig{
		LegacyHost:     "localhost",
		LegacyPort:     5433,
		LegacyUser:     "store",
		LegacyPassword: "p@ss word",
		LegacyName:     "storefront",
		LegacySSLMode:  "disable",
	}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	if !strings.HasPrefix(cfg.DSN, "postgres://store:") {
		t.Fatalf("unexpected dsn: %q", cfg.DSN)
	}
	if !strings.Contains(cfg.DSN, "localhost:5433") || !strings.Contains(cfg.DSN, "sslmode=disable") {
		t.Fatalf("dsn missing host or sslmode: %q", cfg.DSN)
	}
}

func TestEnsureDSNReportsMissingParts(t *testing.T) {
	t.Parallel()

	cfg := DBConfig{LegacyHost: "localhost"}
	err := cfg.ensureDSN()
	if err == nil {
		t.Fatal("expected error for missing legacy values")
	}
	if !strings.Contains(err.Error(), EnvDBUser) || !strings.Contains(err.Error(), EnvDBName) {
		t.Fatalf("error should name missing vars, got %v", err)
	}
}

func TestAppEnvHelpers(t *testing.T) {
	t.Parallel()

	if !(AppConfig{Env: "DEV"}).IsDev() {
		t.Fatal("IsDev should be case-insensitive")
	}
	if (AppConfig{Env: "dev"}).IsProd() {
		t.Fatal("dev must not be prod")
	}
}
