package ffmpeg

import (
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"

	"rondo/internal/log"
	"rondo/internal/procgroup"
)

// Runner executes one-shot ffmpeg invocations with a hard wall-clock bound.
// Unlike a streaming supervisor there is no restart loop: a batch encode
// either completes, fails, or times out.
type Runner struct {
	BinPath   string
	Timeout   time.Duration
	KillGrace time.Duration // SIGTERM to SIGKILL escalation window
}

// NewRunner returns a runner for the given ffmpeg binary.
func NewRunner(binPath string, timeout time.Duration) *Runner {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &Runner{
		BinPath:   binPath,
		Timeout:   timeout,
		KillGrace: 5 * time.Second,
	}
}

// Run executes ffmpeg with the given argv. It returns nil on a clean exit,
// ErrTimeout when the wall-clock bound elapsed, or an *ExitError carrying
// the stderr tail on a nonzero exit.
func (r *Runner) Run(ctx context.Context, args []string) error {
	logger := log.WithComponentFromContext(ctx, "ffmpeg")

	runCtx := ctx
	var cancel context.CancelFunc
	if r.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.Command(r.BinPath, args...) // #nosec G204 -- argv built internally
	procgroup.Set(cmd)

	// exec copies stderr into the ring itself; Wait drains the stream
	// before returning, so the tail is complete when the exit code is.
	ring := newLineRing(64)
	cmd.Stderr = ring

	start := time.Now()
	logger.Debug().Str("command", cmd.String()).Msg("starting ffmpeg run")
	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		// Cut the whole group: ffmpeg forks helpers on some builds.
		_ = procgroup.Kill(cmd, syscall.SIGTERM)
		select {
		case waitErr = <-done:
		case <-time.After(r.killGrace()):
			_ = procgroup.Kill(cmd, syscall.SIGKILL)
			waitErr = <-done
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn().Dur("elapsed", time.Since(start)).Msg("ffmpeg run timed out")
		return ErrTimeout
	}

	if waitErr == nil {
		logger.Debug().Dur("elapsed", time.Since(start)).Msg("ffmpeg run finished")
		return nil
	}

	code := 1
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ExitError{Code: code, Stderr: ring.String()}
}

func (r *Runner) killGrace() time.Duration {
	if r.KillGrace > 0 {
		return r.KillGrace
	}
	return 5 * time.Second
}
