package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"info":    LevelInfo,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	prev := GetLevel()
	defer func() {
		SetLevel(prev)
		SetOutput(os.Stderr)
	}()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)

	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	Warnf("shown %s", "warn")
	Errorf("shown %s", "error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn were written: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn") {
		t.Errorf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown error") {
		t.Errorf("error message missing: %q", out)
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Errorf("caller file not reported: %q", out)
	}
}
