package bootstrap

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"spotlight/app/internal/platform/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		DBPath:     filepath.Join(t.TempDir(), "nested", "spotlight.db"),
		LLMAPIKey:  "test-key",
		LLMModel:   "openai/gpt-4o-mini",
		LLMTimeout: time.Minute,
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             5,
			ClientTTL:         time.Minute,
		},
	}
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestBuildWiresApplication(t *testing.T) {
	t.Parallel()

	result, err := Build(context.Background(), Dependencies{Config: testConfig(t), Logger: silentLogger()})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := result.Cleanup(); err != nil {
			t.Errorf("cleanup returned error: %v", err)
		}
	})

	if result.DiscoveryService == nil || result.HTTPServer == nil || result.Database == nil {
		t.Fatalf("expected all components to be built, got %#v", result)
	}

	usage, err := result.DiscoveryService.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}
	if usage.Discoveries != 0 {
		t.Fatalf("expected empty store, got %d discoveries", usage.Discoveries)
	}

	rec := httptest.NewRecorder()
	result.HTTPServer.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != 200 {
		t.Fatalf("expected healthy server, got status %d", rec.Code)
	}
}

func TestBuildFailsWithoutAPIKey(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.LLMAPIKey = ""

	if _, err := Build(context.Background(), Dependencies{Config: cfg, Logger: silentLogger()}); err == nil {
		t.Fatalf("expected error when api key is missing")
	}
}

func TestNewModelResolvesProvider(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.LLMModel = "deepseek/deepseek-chat"

	model, target, err := NewModel(cfg, silentLogger())
	if err != nil {
		t.Fatalf("NewModel returned error: %v", err)
	}
	if model == nil {
		t.Fatalf("expected model to be built")
	}
	if target.Provider != "deepseek" || target.Model != "deepseek-chat" {
		t.Fatalf("unexpected target %#v", target)
	}
}
