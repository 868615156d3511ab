// Package runner spawns the external media tool and captures its output.
package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"vidrelay/internal/config"
	"vidrelay/internal/errs"
	"vidrelay/pkg/shellquote"
)

const (
	// maxJSONSize bounds the stdout scanner buffer; metadata documents for
	// long videos routinely exceed the bufio default.
	maxJSONSize = 10 * 1024 * 1024
	bufSize     = 4096
	// stderrTailSize bounds how much captured stderr ends up in error values.
	stderrTailSize = 4 * 1024
)

// Runner launches the external media tool as a child process.
type Runner struct {
	log *slog.Logger
	cfg *config.Config
}

// New creates a Runner.
func New(log *slog.Logger, cfg *config.Config) *Runner {
	return &Runner{
		log: log.With(slog.String("package", "runner")),
		cfg: cfg,
	}
}

// RunJSON executes the tool, buffers its stdout and, on exit code 0,
// unmarshals the buffer into out. A non-zero exit fails with the captured
// stderr as the reason; a parse failure fails with errs.ErrUnparsableOutput.
func (r *Runner) RunJSON(ctx context.Context, args []string, out any) error {
	bin, err := r.BinaryPath()
	if err != nil {
		return err
	}

	r.log.DebugContext(ctx, "spawning tool", slog.String("cmd", shellquote.Join(bin, args)))

	var stdout, stderr strings.Builder

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		r.log.ErrorContext(ctx, "tool failed",
			slog.Any("error", err),
			slog.String("stderr", tail(stderr.String())))

		return runError(err, stderr.String())
	}

	r.log.DebugContext(ctx, "tool exited", slog.Int("exit_code", 0), slog.Int("stdout_bytes", stdout.Len()))

	if err := json.Unmarshal([]byte(stdout.String()), out); err != nil {
		return fmt.Errorf("parse tool output: %w: %w", errs.ErrUnparsableOutput, err)
	}

	return nil
}

// RunStream executes the tool, handing each stdout line to onLine as it
// arrives, and resolves on process exit. stderr is captured for the error
// reason on non-zero exit.
func (r *Runner) RunStream(ctx context.Context, args []string, onLine func(string)) error {
	bin, err := r.BinaryPath()
	if err != nil {
		return err
	}

	r.log.DebugContext(ctx, "spawning tool", slog.String("cmd", shellquote.Join(bin, args)))

	cmd := exec.CommandContext(ctx, bin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start tool: %w", err)
	}

	var (
		stderrBuf strings.Builder
		wg        sync.WaitGroup
	)

	wg.Go(func() {
		r.scanLines(ctx, stdout, onLine)
	})

	wg.Go(func() {
		io.Copy(&stderrBuf, stderr) //nolint:errcheck
	})

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		r.log.ErrorContext(ctx, "tool failed",
			slog.Any("error", err),
			slog.String("stderr", tail(stderrBuf.String())))

		return runError(err, stderrBuf.String())
	}

	r.log.DebugContext(ctx, "tool exited", slog.Int("exit_code", 0))

	return nil
}

// scanLines feeds each stdout line to onLine, logging it for diagnostics.
func (r *Runner) scanLines(ctx context.Context, reader io.Reader, onLine func(string)) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	for scanner.Scan() {
		line := scanner.Text()
		r.log.DebugContext(ctx, "tool output", slog.String("line", line))
		onLine(line)
	}
}

// runError builds the failure reason for a non-zero exit, preferring the
// captured stderr over the generic exec error.
func runError(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Errorf("tool process: %w", err)
	}

	return fmt.Errorf("tool process: %w: %s", err, tail(stderr))
}

// tail returns at most the last stderrTailSize bytes of s.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrTailSize {
		return s
	}

	return s[len(s)-stderrTailSize:]
}
