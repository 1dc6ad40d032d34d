package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ASK_ENDPOINT", "ASK_TIMEOUT", "ASK_STOP_ON_FINAL", "ASK_APOLOGY_TEXT", "QA_PORT", "QA_STEP_DELAY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected server addr %q", cfg.Server.Addr)
	}
	if cfg.Ask.Endpoint != defaultAskEndpoint {
		t.Fatalf("unexpected endpoint %q", cfg.Ask.Endpoint)
	}
	if !cfg.Ask.StopOnFinal {
		t.Fatal("expected stop-on-final by default")
	}
	if cfg.Ask.Timeout != 0 {
		t.Fatalf("expected no timeout, got %s", cfg.Ask.Timeout)
	}
	if cfg.Widget.ApologyText != defaultApology {
		t.Fatalf("unexpected apology %q", cfg.Widget.ApologyText)
	}
	if cfg.Stub.Server.Addr != ":8000" {
		t.Fatalf("unexpected stub addr %q", cfg.Stub.Server.Addr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("ASK_ENDPOINT", "https://qa.example.com/")
	t.Setenv("ASK_TIMEOUT", "45s")
	t.Setenv("ASK_STOP_ON_FINAL", "false")
	t.Setenv("WIDGET_GREETING", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Fatalf("unexpected server addr %q", cfg.Server.Addr)
	}
	if cfg.Ask.Endpoint != "https://qa.example.com/" {
		t.Fatalf("unexpected endpoint %q", cfg.Ask.Endpoint)
	}
	if cfg.Ask.Timeout != 45*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Ask.Timeout)
	}
	if cfg.Ask.StopOnFinal {
		t.Fatal("expected stop-on-final disabled")
	}
	if cfg.Widget.Greeting != "" {
		t.Fatalf("expected greeting disabled, got %q", cfg.Widget.Greeting)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":              "80 80",
		"ASK_TIMEOUT":       "soon",
		"ASK_STOP_ON_FINAL": "maybe",
		"QA_STEP_DELAY":     "-1s",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
