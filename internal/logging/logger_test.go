package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestHelpersAreNoOpsBeforeInit(t *testing.T) {
	Logger = nil
	Info("ignored", "k", 1)
	Debug("ignored")
	Warn("ignored")
	Error("ignored")
	if WithPrefix("x") != nil {
		t.Error("WithPrefix should return nil before Init")
	}
}

func TestInitWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, log.InfoLevel)
	defer func() { Logger = nil }()

	Debug("hidden_debug")
	Info("stage_complete", "events", 12)

	out := buf.String()
	if strings.Contains(out, "hidden_debug") {
		t.Errorf("debug line should be filtered at info level: %q", out)
	}
	if !strings.Contains(out, "stage_complete") || !strings.Contains(out, "events=12") {
		t.Errorf("expected info line with key/value, got %q", out)
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	if err := Init("shouty", ""); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInitFileDir(t *testing.T) {
	dir := t.TempDir()
	if err := Init("debug", dir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		Close()
		Logger = nil
	}()
	Info("written")
}
