package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetTimestamps(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("loading page %d", 3)

	if got := buf.String(); got != "[DEBUG] loading page 3\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestInfo_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("snapshot created")
	Debug("page loaded")
	Section("Load")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestWarnAndError_AlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Warn("retrying page %d", 2)
	Error("load failed: %s", "boom")

	want := "[WARN] retrying page 2\n[ERROR] load failed: boom\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestTimestamps(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetTimestamps(true)

	Warn("tick")

	got := buf.String()
	if !strings.HasSuffix(got, " [WARN] tick\n") {
		t.Errorf("unexpected output: %q", got)
	}
	if strings.HasPrefix(got, "[WARN]") {
		t.Errorf("expected timestamp prefix, got %q", got)
	}
}

func TestSection_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Create Snapshot")

	if got := buf.String(); got != "\n=== Create Snapshot ===\n" {
		t.Errorf("unexpected output: %q", got)
	}
}
