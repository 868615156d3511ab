package runner_test

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"vidrelay/internal/config"
	"vidrelay/internal/errs"
	"vidrelay/internal/runner"
)

func newRunnerWithScript(t *testing.T, script string) *runner.Runner {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake tool helper uses shell scripts")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "yt-dlp")

	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}

	cfg := &config.Config{}
	cfg.Tool.Path = path
	cfg.Tool.BinsDir = dir

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return runner.New(log, cfg)
}

func TestRunJSON(t *testing.T) {
	tests := []struct {
		name      string
		script    string
		wantErr   error
		wantTitle string
	}{
		{
			name:      "valid json on exit 0",
			script:    `echo '{"title":"hello"}'`,
			wantTitle: "hello",
		},
		{
			name:    "non-zero exit surfaces stderr",
			script:  "echo 'ERROR: unavailable' >&2\nexit 1",
			wantErr: errors.New("unavailable"),
		},
		{
			name:    "malformed json",
			script:  `echo 'not json at all'`,
			wantErr: errs.ErrUnparsableOutput,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRunnerWithScript(t, tc.script)

			var out struct {
				Title string `json:"title"`
			}

			err := r.RunJSON(t.Context(), nil, &out)

			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("RunJSON() failed: %v", err)
				}

				if out.Title != tc.wantTitle {
					t.Errorf("got title %q, want %q", out.Title, tc.wantTitle)
				}

				return
			}

			if err == nil {
				t.Fatal("RunJSON() succeeded unexpectedly")
			}

			if errors.Is(tc.wantErr, errs.ErrUnparsableOutput) {
				if !errors.Is(err, errs.ErrUnparsableOutput) {
					t.Errorf("got error %v, want ErrUnparsableOutput", err)
				}

				return
			}

			if !strings.Contains(err.Error(), tc.wantErr.Error()) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestRunStream(t *testing.T) {
	script := `echo 'line one'
echo 'line two'
echo 'ignored stderr' >&2
echo 'line three'`

	r := newRunnerWithScript(t, script)

	var lines []string

	err := r.RunStream(t.Context(), nil, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("RunStream() failed: %v", err)
	}

	want := []string{"line one", "line two", "line three"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}

	for i, line := range lines {
		if line != want[i] {
			t.Errorf("line %d = %q, want %q", i, line, want[i])
		}
	}
}

func TestRunStreamNonZeroExit(t *testing.T) {
	r := newRunnerWithScript(t, "echo 'partial'\necho 'boom' >&2\nexit 2")

	var lines []string

	err := r.RunStream(t.Context(), nil, func(line string) {
		lines = append(lines, line)
	})

	if err == nil {
		t.Fatal("RunStream() succeeded unexpectedly")
	}

	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q does not carry stderr", err)
	}

	if len(lines) != 1 || lines[0] != "partial" {
		t.Errorf("lines before failure not delivered: %v", lines)
	}
}

func TestBinaryPathOrderedLookup(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake tool helper uses shell scripts")
	}

	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit-tool")
	managed := filepath.Join(dir, "yt-dlp")

	for _, path := range []string{explicit, managed} {
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatalf("write stub: %v", err)
		}
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("explicit path wins", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Tool.Path = explicit
		cfg.Tool.BinsDir = dir

		got, err := runner.New(log, cfg).BinaryPath()
		if err != nil {
			t.Fatalf("BinaryPath() failed: %v", err)
		}

		if got != explicit {
			t.Errorf("got %q, want %q", got, explicit)
		}
	})

	t.Run("bins dir when explicit path missing", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Tool.Path = filepath.Join(dir, "does-not-exist")
		cfg.Tool.BinsDir = dir

		got, err := runner.New(log, cfg).BinaryPath()
		if err != nil {
			t.Fatalf("BinaryPath() failed: %v", err)
		}

		if got != managed {
			t.Errorf("got %q, want %q", got, managed)
		}
	})

	t.Run("not found anywhere", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Tool.BinsDir = filepath.Join(dir, "empty")

		t.Setenv("PATH", filepath.Join(dir, "empty"))

		_, err := runner.New(log, cfg).BinaryPath()
		if !errors.Is(err, errs.ErrBinaryNotFound) {
			t.Errorf("got error %v, want ErrBinaryNotFound", err)
		}
	})
}
