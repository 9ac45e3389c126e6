package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"rondo/internal/admission"
	"rondo/internal/delivery"
	"rondo/internal/log"
	"rondo/internal/metrics"
	"rondo/internal/model"
	"rondo/internal/transcode"
)

func (p *Pipeline) handleRequest(ctx context.Context, req model.Request) {
	logger := log.WithComponentFromContext(ctx, "pipeline")
	start := time.Now()

	// Known-too-long clips fail the note format regardless of transcoding,
	// so reject before spending a download or an encode slot.
	if p.cfg.NoteMaxSeconds > 0 && req.DeclaredDur > p.cfg.NoteMaxSeconds {
		p.reply(ctx, req.ChatID, fmt.Sprintf(
			"The clip is too long for a video note (limit %d seconds). Trim it and try again.",
			p.cfg.NoteMaxSeconds))
		p.stats.RecordError(ctx, req.UserID, "too_long")
		metrics.RecordJob("rejected", time.Since(start))
		return
	}

	permit, rej := p.admitter.Admit(ctx, req)
	if rej != nil {
		p.replyRejection(ctx, req.ChatID, rej)
		metrics.RecordJob("rejected", time.Since(start))
		return
	}
	defer permit.Close()

	logger.Info().Str("kind", string(req.Kind)).Int64("declared_size", req.DeclaredSize).
		Msg("job admitted")
	p.stats.RecordKind(ctx, req.UserID, string(req.Kind))
	metrics.RecordMediaKind(string(req.Kind))

	outcome := p.runJob(ctx, req)
	metrics.RecordJob(outcome, time.Since(start))

	if outcome == "delivered" {
		p.stats.RecordConversion(ctx, req.UserID)
		p.stats.RecordMetric(ctx, req.UserID, "processing_ms", float64(time.Since(start).Milliseconds()))
	}
}

// runJob does download, transcode and delivery inside a per-job temp dir
// that is removed on every exit path.
func (p *Pipeline) runJob(ctx context.Context, req model.Request) string {
	logger := log.WithComponentFromContext(ctx, "pipeline")

	tmpDir, err := os.MkdirTemp(p.cfg.WorkDir, "rondo-job-")
	if err != nil {
		logger.Error().Err(err).Msg("temp dir creation failed")
		p.reply(ctx, req.ChatID, "Something went wrong while processing your video. Please try again.")
		p.stats.RecordError(ctx, req.UserID, "internal")
		return "internal"
	}
	defer os.RemoveAll(tmpDir)

	src := filepath.Join(tmpDir, "input")
	dst := filepath.Join(tmpDir, "output.mp4")

	// Best effort progress hint; expires server-side on its own.
	_ = p.transport.SendChatAction(ctx, req.ChatID, "upload_video_note")

	if err := p.transport.Download(ctx, req.FileID, src); err != nil {
		logger.Error().Err(err).Str("file_id", req.FileID).Msg("download failed")
		p.reply(ctx, req.ChatID, "Could not fetch that video from Telegram. Please try again.")
		p.stats.RecordError(ctx, req.UserID, "download_failed")
		return "download_failed"
	}

	encodeStart := time.Now()
	art, err := p.encoder.Run(ctx, src, dst, specFromConfig(p.cfg))
	metrics.RecordTranscode(time.Since(encodeStart))
	if err != nil {
		code := transcode.Classify(err)
		logger.Error().Err(err).Str("code", code).Msg("transcode failed")
		metrics.RecordTranscodeFailure(code)
		p.stats.RecordError(ctx, req.UserID, code)
		p.reply(ctx, req.ChatID, transcodeFailureText(code))
		return "transcode_failed"
	}
	metrics.RecordArtifact(art.Size)
	p.stats.RecordMetric(ctx, req.UserID, "output_size_bytes", float64(art.Size))

	mode, err := p.deliverer.Deliver(ctx, req.ChatID, art)
	if err != nil {
		logger.Error().Err(err).Msg("delivery failed")
		p.stats.RecordError(ctx, req.UserID, "delivery_failed")
		// The negotiator already explained the over-length case to the user.
		if !errors.Is(err, delivery.ErrTooLong) {
			p.reply(ctx, req.ChatID, "Converted the video but could not send it here.")
		}
		return "delivery_failed"
	}

	logger.Info().Str("mode", string(mode)).Int64("size", art.Size).Msg("job delivered")
	return "delivered"
}

func (p *Pipeline) replyRejection(ctx context.Context, chatID int64, rej *admission.Rejection) {
	if rej.Silent {
		return
	}
	var text string
	switch rej.Reason {
	case admission.ReasonDuplicateGroup:
		text = "I take one clip per album; processing the first one only."
	case admission.ReasonSizeLimit:
		text = "That file is too large for me to process."
	case admission.ReasonRateLimited:
		wait := int(math.Ceil(rej.Wait.Seconds()))
		text = fmt.Sprintf("One video at a time, please. Try again in %d seconds.", wait)
	case admission.ReasonNoCapacity:
		text = "I'm at capacity right now. Please try again in a minute."
	default:
		return
	}
	p.reply(ctx, chatID, text)
}

func transcodeFailureText(code string) string {
	switch code {
	case "timeout":
		return "Converting that video took too long and was cancelled. Try a shorter clip."
	case "size_fix":
		return "Could not shrink the result under the size limit. Try a shorter clip."
	default:
		return "Something went wrong while converting your video. Please try again."
	}
}
