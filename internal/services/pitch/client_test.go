package pitch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestShiftBuildsCentsArg(t *testing.T) {
	var captured []string
	setHelper(t, "ok", &captured)

	cli := NewCLI()
	output := filepath.Join(t.TempDir(), "song_Instrumental_p-2.wav")
	if err := cli.Shift(context.Background(), "/in.wav", output, -2); err != nil {
		t.Fatalf("shift: %v", err)
	}
	if idx := findArg(captured, "pitch"); idx == -1 || captured[idx+1] != "-200" {
		t.Fatalf("expected pitch -200 in args %v", captured)
	}
}

func TestShiftNoopWhenOutputExists(t *testing.T) {
	invoked := false
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		invoked = true
		return exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
	}
	t.Cleanup(func() { commandContext = original })

	output := filepath.Join(t.TempDir(), "already.wav")
	if err := os.WriteFile(output, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cli := NewCLI()
	if err := cli.Shift(context.Background(), "/in.wav", output, 1); err != nil {
		t.Fatalf("shift: %v", err)
	}
	if invoked {
		t.Fatal("sox should not run when output exists")
	}
}

func TestShiftFailure(t *testing.T) {
	setHelper(t, "failure", nil)

	cli := NewCLI()
	output := filepath.Join(t.TempDir(), "out.wav")
	if err := cli.Shift(context.Background(), "/in.wav", output, 1); err == nil {
		t.Fatal("expected shift failure")
	}
}

func setHelper(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string(nil), args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("SOX_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("SOX_HELPER_MODE") {
	case "ok":
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "sox FAIL formats: can't open input")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func findArg(args []string, target string) int {
	for i, arg := range args {
		if arg == target {
			return i
		}
	}
	return -1
}
