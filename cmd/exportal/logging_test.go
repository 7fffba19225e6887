package main

import (
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    slog.Level
		wantErr bool
	}{
		{name: "default info", raw: "", want: slog.LevelInfo},
		{name: "debug", raw: "debug", want: slog.LevelDebug},
		{name: "info", raw: "info", want: slog.LevelInfo},
		{name: "warn", raw: "warn", want: slog.LevelWarn},
		{name: "warning alias", raw: "warning", want: slog.LevelWarn},
		{name: "error", raw: "error", want: slog.LevelError},
		{name: "numeric", raw: "-4", want: slog.LevelDebug},
		{name: "invalid", raw: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse level: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSelectedLogLevel(t *testing.T) {
	raw, source := selectedLogLevel("debug", "error", "warn")
	if raw != "debug" || source != "flag" {
		t.Fatalf("expected flag precedence, got raw=%q source=%q", raw, source)
	}

	raw, source = selectedLogLevel("", "warn", "info")
	if raw != "warn" || source != "env" {
		t.Fatalf("expected env fallback, got raw=%q source=%q", raw, source)
	}

	raw, source = selectedLogLevel("", "", "error")
	if raw != "error" || source != "config" {
		t.Fatalf("expected config fallback, got raw=%q source=%q", raw, source)
	}

	raw, source = selectedLogLevel("", "", "")
	if raw != "" || source != "default" {
		t.Fatalf("expected default fallback, got raw=%q source=%q", raw, source)
	}
}

func TestConfigureLoggerForCLI(t *testing.T) {
	t.Run("flag overrides invalid env", func(t *testing.T) {
		t.Setenv(logLevelEnvKey, "invalid")
		warning, err := configureLoggerForCLI("debug", "info")
		if err != nil {
			t.Fatalf("configure: %v", err)
		}
		if warning != "" {
			t.Fatalf("unexpected warning %q", warning)
		}
	})

	t.Run("invalid flag errors", func(t *testing.T) {
		if _, err := configureLoggerForCLI("verbose", "info"); err == nil {
			t.Fatal("expected error for invalid flag level")
		}
	})

	t.Run("invalid env warns and falls back", func(t *testing.T) {
		t.Setenv(logLevelEnvKey, "chatty")
		warning, err := configureLoggerForCLI("", "info")
		if err != nil {
			t.Fatalf("configure: %v", err)
		}
		if !strings.Contains(warning, logLevelEnvKey) {
			t.Fatalf("expected warning naming %s, got %q", logLevelEnvKey, warning)
		}
	})

	t.Run("invalid config warns and falls back", func(t *testing.T) {
		t.Setenv(logLevelEnvKey, "")
		warning, err := configureLoggerForCLI("", "chatty")
		if err != nil {
			t.Fatalf("configure: %v", err)
		}
		if !strings.Contains(warning, "log_level") {
			t.Fatalf("expected warning naming log_level, got %q", warning)
		}
	})
}

func TestConfigPathFromArgs(t *testing.T) {
	if got := configPathFromArgs([]string{"srv", "--config", "/etc/exportal.toml"}); got != "/etc/exportal.toml" {
		t.Fatalf("expected split form to win, got %q", got)
	}
	if got := configPathFromArgs([]string{"--config=/tmp/e.toml", "migrate"}); got != "/tmp/e.toml" {
		t.Fatalf("expected joined form to win, got %q", got)
	}
	if got := configPathFromArgs([]string{"srv"}); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}
