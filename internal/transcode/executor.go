// Package transcode runs the square-note encode protocol: a copy-audio
// attempt, one audio-codec fallback retry, and a size-constrained
// corrective re-encode of the produced artifact.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"

	"rondo/internal/ffmpeg"
	"rondo/internal/log"
	"rondo/internal/model"
)

// Executor produces square note artifacts from arbitrary video sources.
type Executor struct {
	prober *ffmpeg.Prober
	runner *ffmpeg.Runner

	// SizeLimitBytes is the output byte ceiling; <= 0 disables the
	// size-fit pass entirely.
	SizeLimitBytes int64
}

// NewExecutor wires an executor from its probe and run halves.
func NewExecutor(prober *ffmpeg.Prober, runner *ffmpeg.Runner, sizeLimitBytes int64) *Executor {
	return &Executor{
		prober:         prober,
		runner:         runner,
		SizeLimitBytes: sizeLimitBytes,
	}
}

// Run encodes src into a square note artifact at dst. The first attempt
// stream-copies audio; a nonzero exit triggers exactly one retry with AAC
// re-encoding (sources whose audio cannot be carried in MP4). Timeouts are
// fatal immediately. A successful encode may still be followed by the
// size-fit pass.
func (e *Executor) Run(ctx context.Context, src, dst string, spec model.TranscodeSpec) (model.Artifact, error) {
	logger := log.WithComponentFromContext(ctx, "transcode")

	colors := e.prober.Colors(ctx, src)
	logger.Debug().
		Str("primaries", colors.Primaries).
		Str("transfer", colors.Transfer).
		Str("matrix", colors.Matrix).
		Bool("hdr", ffmpeg.IsHDR(colors)).
		Msg("probed source color metadata")

	spec.AudioMode = model.AudioCopy
	err := e.runner.Run(ctx, ffmpeg.BuildArgs(src, dst, spec, colors))
	if err != nil {
		var exitErr *ffmpeg.ExitError
		if !errors.As(err, &exitErr) {
			// Timeout or context cancellation: no retry, no trusted output.
			return model.Artifact{}, err
		}
		logger.Info().Int("exit_code", exitErr.Code).
			Msg("copy-audio attempt failed, retrying with aac re-encode")

		spec.AudioMode = model.AudioReencode
		if err := e.runner.Run(ctx, ffmpeg.BuildArgs(src, dst, spec, colors)); err != nil {
			return model.Artifact{}, err
		}
	}

	if err := e.fitToSize(ctx, src, dst, spec); err != nil {
		return model.Artifact{}, err
	}

	// Re-measure: the size-fix path replaced the file, and even the happy
	// path should report actual bytes rather than assumptions.
	info, err := os.Stat(dst)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("transcode: output missing after encode: %w", err)
	}
	return model.Artifact{Path: dst, Size: info.Size()}, nil
}

// fitToSize shrinks the artifact under the configured byte ceiling by
// re-encoding the already-square output (not the original source) at a
// recomputed bitrate. Failure here is fatal for the job.
func (e *Executor) fitToSize(ctx context.Context, src, dst string, spec model.TranscodeSpec) error {
	if e.SizeLimitBytes <= 0 {
		return nil
	}
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("transcode: cannot stat output: %w", err)
	}
	if info.Size() <= e.SizeLimitBytes {
		return nil
	}

	logger := log.WithComponentFromContext(ctx, "transcode")

	// Prefer the artifact's own duration; fall back to the source when the
	// output container does not report one.
	duration := e.prober.Duration(ctx, dst)
	if duration <= 0 {
		duration = e.prober.Duration(ctx, src)
	}
	videoKbit := TargetVideoBitrateK(e.SizeLimitBytes, duration)

	logger.Info().
		Int64("size", info.Size()).
		Int64("limit", e.SizeLimitBytes).
		Float64("duration", duration).
		Int("video_kbit", videoKbit).
		Msg("artifact over byte ceiling, running size-fix pass")

	scratch := dst + ".sizefix.mp4"
	defer os.Remove(scratch)

	if err := e.runner.Run(ctx, ffmpeg.BuildSizeFixArgs(dst, scratch, spec.CRF, videoKbit)); err != nil {
		return fmt.Errorf("%w: %w", ErrSizeFixFailed, err)
	}
	// Same-directory rename keeps the replacement atomic.
	if err := os.Rename(scratch, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrSizeFixFailed, err)
	}
	return nil
}
