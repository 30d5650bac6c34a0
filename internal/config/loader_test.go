package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

var portalVariables = []string{
	"PORTAL_HTTP_PORT",
	"PORTAL_DATABASE_DSN",
	"PORTAL_JWT_SECRET",
	"PORTAL_TOKEN_TTL",
	"PORTAL_COOKIE_SECURE",
	"PORTAL_UPLOAD_DIR",
	"PORTAL_PUBLIC_URL",
	"PORTAL_LOG_LEVEL",
	"PORTAL_RECENT_SESSIONS",
	"PORTAL_SMTP_HOST",
	"PORTAL_SMTP_PORT",
	"PORTAL_SMTP_USERNAME",
	"PORTAL_SMTP_PASSWORD",
	"PORTAL_SMTP_FROM",
	"PORTAL_SMTP_USE_TLS",
}

// clearEnvironment unsets every portal variable for the duration of the test.
func clearEnvironment(t *testing.T) {
	t.Helper()
	for _, key := range portalVariables {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnvironment(t)
		const secret = "super-secret"
		t.Setenv("PORTAL_JWT_SECRET", secret)

		cfg, err := Parse()
		if err != nil {
			t.Fatalf("Parse returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.DatabaseDSN != "file:council.db?_pragma=foreign_keys(1)" {
			t.Fatalf("unexpected default DSN: %q", cfg.DatabaseDSN)
		}
		if cfg.JWTSecret != secret {
			t.Fatalf("expected jwt secret to be %q, got %q", secret, cfg.JWTSecret)
		}
		if cfg.TokenTTL != 7*24*time.Hour {
			t.Fatalf("expected default token TTL of seven days, got %s", cfg.TokenTTL)
		}
		if !cfg.CookieSecure {
			t.Fatalf("expected secure cookies by default")
		}
		if cfg.UploadDir != "public/uploads" {
			t.Fatalf("unexpected upload dir: %q", cfg.UploadDir)
		}
		if cfg.RecentSessions != 5 {
			t.Fatalf("expected 5 recent sessions, got %d", cfg.RecentSessions)
		}
		if cfg.SMTP.Host != "" || cfg.SMTP.Port != 587 || cfg.SMTP.UseTLS {
			t.Fatalf("unexpected smtp defaults: %+v", cfg.SMTP)
		}
		if cfg.SlogLevel() != slog.LevelInfo {
			t.Fatalf("expected info level, got %s", cfg.SlogLevel())
		}
		if cfg.Addr() != ":8080" {
			t.Fatalf("unexpected addr %q", cfg.Addr())
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnvironment(t)

		_, err := Parse()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "variables d'environnement obligatoires manquantes: PORTAL_JWT_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("treats an empty secret as missing", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_JWT_SECRET", "")

		_, err := Parse()
		if err == nil || !strings.Contains(err.Error(), "PORTAL_JWT_SECRET") {
			t.Fatalf("expected missing secret error, got %v", err)
		}
	})

	t.Run("parses duration, numeric and smtp fields", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_JWT_SECRET", "secret-value")
		t.Setenv("PORTAL_HTTP_PORT", "9090")
		t.Setenv("PORTAL_DATABASE_DSN", "postgres://council@localhost/council")
		t.Setenv("PORTAL_TOKEN_TTL", "24h")
		t.Setenv("PORTAL_COOKIE_SECURE", "false")
		t.Setenv("PORTAL_PUBLIC_URL", "https://portail.example.org/")
		t.Setenv("PORTAL_LOG_LEVEL", "debug")
		t.Setenv("PORTAL_RECENT_SESSIONS", "10")
		t.Setenv("PORTAL_SMTP_HOST", "smtp.example.org")
		t.Setenv("PORTAL_SMTP_PORT", "465")
		t.Setenv("PORTAL_SMTP_FROM", "secretariat@example.org")
		t.Setenv("PORTAL_SMTP_USE_TLS", "true")

		cfg, err := Parse()
		if err != nil {
			t.Fatalf("Parse returned error: %v", err)
		}

		if cfg.TokenTTL != 24*time.Hour {
			t.Fatalf("expected token TTL 24h, got %s", cfg.TokenTTL)
		}
		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.DatabaseDSN != "postgres://council@localhost/council" {
			t.Fatalf("unexpected DSN: %q", cfg.DatabaseDSN)
		}
		if cfg.CookieSecure {
			t.Fatalf("expected insecure cookies when disabled")
		}
		if cfg.PublicURL != "https://portail.example.org" {
			t.Fatalf("expected trailing slash to be trimmed, got %q", cfg.PublicURL)
		}
		if cfg.SlogLevel() != slog.LevelDebug {
			t.Fatalf("expected debug level, got %s", cfg.SlogLevel())
		}
		if cfg.RecentSessions != 10 {
			t.Fatalf("expected 10 recent sessions, got %d", cfg.RecentSessions)
		}
		if cfg.SMTP.Host != "smtp.example.org" || cfg.SMTP.Port != 465 || !cfg.SMTP.UseTLS {
			t.Fatalf("unexpected smtp config: %+v", cfg.SMTP)
		}
	})

	t.Run("reports malformed values", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_JWT_SECRET", "secret-value")
		t.Setenv("PORTAL_HTTP_PORT", "not-a-number")
		t.Setenv("PORTAL_TOKEN_TTL", "-1h")

		_, err := Parse()
		if err == nil {
			t.Fatalf("expected error for malformed values")
		}
		if !strings.HasPrefix(err.Error(), "valeur invalide pour les variables d'environnement") {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
		if !strings.Contains(err.Error(), "PORTAL_HTTP_PORT") {
			t.Fatalf("expected PORTAL_HTTP_PORT to be named, got %q", err.Error())
		}
	})

	t.Run("rejects out of range values", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("PORTAL_JWT_SECRET", "secret-value")
		t.Setenv("PORTAL_TOKEN_TTL", "0s")
		t.Setenv("PORTAL_LOG_LEVEL", "verbose")

		_, err := Parse()
		if err == nil {
			t.Fatalf("expected error for out of range values")
		}
		expected := "valeur invalide pour les variables d'environnement: PORTAL_LOG_LEVEL, PORTAL_TOKEN_TTL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})
}
