// Package pipeline drives a request from inbound update to delivered
// artifact: extract, admit, download, transcode, deliver. Each update is
// handled on its own goroutine; the global transcode cap lives in the
// admission controller, not here.
package pipeline

import (
	"context"
	"sync"

	"rondo/internal/admission"
	"rondo/internal/config"
	"rondo/internal/delivery"
	"rondo/internal/model"
	"rondo/internal/telegram"
)

// Transport is the bot-API surface the pipeline consumes. The delivery
// negotiator sees the same object through its own narrower interface.
type Transport interface {
	delivery.Sender
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
	Download(ctx context.Context, fileID, dst string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// Transcoder produces the square artifact for one source file.
type Transcoder interface {
	Run(ctx context.Context, src, dst string, spec model.TranscodeSpec) (model.Artifact, error)
}

// Deliverer walks the fallback ladder for a finished artifact.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, art model.Artifact) (delivery.Mode, error)
}

// Recorder is the fire-and-forget usage counter collaborator.
type Recorder interface {
	RecordStart(ctx context.Context, userID int64)
	RecordKind(ctx context.Context, userID int64, kind string)
	RecordConversion(ctx context.Context, userID int64)
	RecordError(ctx context.Context, userID int64, code string)
	RecordMetric(ctx context.Context, userID int64, metric string, value float64)
}

// Pipeline owns the intake loop and per-job orchestration.
type Pipeline struct {
	cfg       config.Config
	transport Transport
	admitter  *admission.Controller
	encoder   Transcoder
	deliverer Deliverer
	stats     Recorder
	offsets   *telegram.OffsetStore

	wg sync.WaitGroup
}

// New wires the pipeline. offsets may be nil to start from a zero cursor
// without persistence.
func New(cfg config.Config, transport Transport, admitter *admission.Controller,
	encoder Transcoder, deliverer Deliverer, stats Recorder, offsets *telegram.OffsetStore) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		transport: transport,
		admitter:  admitter,
		encoder:   encoder,
		deliverer: deliverer,
		stats:     stats,
		offsets:   offsets,
	}
}

func specFromConfig(cfg config.Config) model.TranscodeSpec {
	return model.TranscodeSpec{
		Size:      cfg.NoteSize,
		CRF:       cfg.CRF,
		Preset:    cfg.Preset,
		Tune:      cfg.Tune,
		AudioMode: model.AudioCopy,

		Enhance:    cfg.Enhance,
		Saturation: cfg.Saturation,
		Contrast:   cfg.Contrast,
		Brightness: cfg.Brightness,
		Gamma:      cfg.Gamma,

		// Compatibility profile for the note path: some mobile clients
		// mis-render color-tagged square clips, so the tag stamp stays off.
		Compat:            true,
		ApplyColorTags:    true,
		ForceLimitedRange: cfg.ForceLimitedRange,
	}
}
