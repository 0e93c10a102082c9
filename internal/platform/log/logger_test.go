package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("")
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}

	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", logger.GetLevel())
	}
}

func TestNewLoggerParsesLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(" DEBUG ")
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}

	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := NewLogger("chatty"); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestWithComponentTagsJSONEntries(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("info")
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	WithComponent(logger, "interest_discovery").Info("hello")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}

	if payload["component"] != "interest_discovery" {
		t.Fatalf("expected component field, got %v", payload["component"])
	}
	if payload["msg"] != "hello" {
		t.Fatalf("expected msg hello, got %v", payload["msg"])
	}
}

func TestWithComponentToleratesNilLogger(t *testing.T) {
	t.Parallel()

	entry := WithComponent(nil, "cli")
	if entry == nil {
		t.Fatalf("expected non-nil entry")
	}
	entry.Info("dropped")
}

func TestInitSentryDisabledWithoutDSN(t *testing.T) {
	t.Parallel()

	hub, flush, err := InitSentry(NewDiscardLogger(), SentrySettings{})
	if err != nil {
		t.Fatalf("InitSentry returned error: %v", err)
	}
	if hub != nil {
		t.Fatalf("expected nil hub when DSN is empty")
	}
	flush()
}
