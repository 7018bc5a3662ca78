package observability

import (
	"bytes"
	"strings"
	"testing"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(ErrorLevel, &buf)

	func() {
		defer RecoverPanic(logger, "background reporter")
		panic("boom")
	}()

	out := buf.String()
	if !strings.Contains(out, "boom") {
		t.Errorf("Expected panic value in log output, got %q", out)
	}
	if !strings.Contains(out, "background reporter") {
		t.Errorf("Expected scope in log output, got %q", out)
	}
	if !strings.Contains(out, "stack") {
		t.Errorf("Expected stack trace in log output, got %q", out)
	}
}

func TestRecoverPanic_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(ErrorLevel, &buf)

	func() {
		defer RecoverPanic(logger, "quiet goroutine")
	}()

	if buf.Len() != 0 {
		t.Errorf("Expected no log output without a panic, got %q", buf.String())
	}
}
