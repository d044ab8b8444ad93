package ytdlp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
)

func TestNewCLIWithOptions(t *testing.T) {
	cli := NewCLI(WithBinary("/opt/yt-dlp"), WithCookies("/etc/cookies.txt"))
	if cli.binary != "/opt/yt-dlp" {
		t.Fatalf("binary override not applied: %q", cli.binary)
	}
	if cli.cookies != "/etc/cookies.txt" {
		t.Fatalf("cookies option not applied: %q", cli.cookies)
	}
}

func TestFetchRequiresURLAndDest(t *testing.T) {
	cli := NewCLI()
	if _, err := cli.Fetch(context.Background(), "", "/tmp"); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := cli.Fetch(context.Background(), "https://youtu.be/abc", ""); err == nil {
		t.Fatal("expected error for empty destination")
	}
}

func TestFetchReturnsPrintedPath(t *testing.T) {
	var captured []string
	setHelper(t, "success", &captured)

	cli := NewCLI(WithCookies("/etc/cookies.txt"))
	path, err := cli.Fetch(context.Background(), "https://youtu.be/abc", t.TempDir())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if path != "/downloads/Song Title.mp3" {
		t.Fatalf("unexpected path: %q", path)
	}
	if findArg(captured, "--cookies") == -1 {
		t.Fatalf("expected --cookies in args %v", captured)
	}
	if findArg(captured, "--extract-audio") == -1 {
		t.Fatalf("expected --extract-audio in args %v", captured)
	}
}

func TestFetchFailureIncludesStderr(t *testing.T) {
	setHelper(t, "failure", nil)

	cli := NewCLI()
	_, err := cli.Fetch(context.Background(), "https://youtu.be/abc", t.TempDir())
	if err == nil {
		t.Fatal("expected fetch failure")
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
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("YTDLP_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("YTDLP_HELPER_MODE") {
	case "success":
		fmt.Println("/downloads/Song Title.mp3")
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "ERROR: unable to download video data")
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
