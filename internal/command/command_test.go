package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Success(t *testing.T) {
	requireShell(t)

	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "printf '{\"ok\":true}'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"ok":true}` {
		t.Errorf("expected JSON output, got %q", out)
	}
}

// TestExecRunner_NonZeroExitKeepsOutput verifies stdout is returned together
// with the exit error so callers can still use it.
func TestExecRunner_NonZeroExitKeepsOutput(t *testing.T) {
	requireShell(t)

	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo data; echo oops >&2; exit 4")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	var cmdErr *Error
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cmdErr.ExitCode != 4 {
		t.Errorf("expected exit code 4, got %d", cmdErr.ExitCode)
	}
	if cmdErr.Stderr != "oops" {
		t.Errorf("expected stderr %q, got %q", "oops", cmdErr.Stderr)
	}
	if strings.TrimSpace(string(out)) != "data" {
		t.Errorf("expected stdout to be kept, got %q", out)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	start := time.Now()
	_, err := ExecRunner{Timeout: 50 * time.Millisecond}.Run(context.Background(), "sleep", "5")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("runner did not honour the timeout")
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var cmdErr *Error
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cmdErr.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", cmdErr.ExitCode)
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{Command: "smartctl -a", ExitCode: 2, Stderr: "open failed"}
	msg := err.Error()
	for _, want := range []string{`"smartctl -a"`, "exit code 2", "open failed"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abc", 5); got != "abc" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("expected truncated string, got %q", got)
	}
}
