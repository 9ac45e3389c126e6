// Package delivery walks the fallback ladder for a finished artifact:
// video note first, then regular video, then document. Each step down the
// ladder is driven by a classified transport failure, never by guessing.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rondo/internal/log"
	"rondo/internal/model"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rondo",
		Name:      "delivery_attempts_total",
		Help:      "Send attempts by mode and outcome",
	}, []string{"mode", "outcome"})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rondo",
		Name:      "delivery_fallbacks_total",
		Help:      "Ladder transitions after a classified send failure",
	}, []string{"from", "to"})
)

// ErrTooLong marks the terminal over-length case. The negotiator has
// already explained it to the user when this comes back.
var ErrTooLong = errors.New("delivery: clip exceeds the note duration ceiling")

// Mode is a delivery format on the ladder.
type Mode string

const (
	ModeNote     Mode = "note"
	ModeVideo    Mode = "video"
	ModeDocument Mode = "document"
)

// Sender is the transport side of delivery. Implemented by the Telegram
// client; tests substitute a scripted fake.
type Sender interface {
	SendVideoNote(ctx context.Context, chatID int64, path string, length int) error
	SendVideo(ctx context.Context, chatID int64, path, caption string) error
	SendDocument(ctx context.Context, chatID int64, path, caption string) error
	SendMessage(ctx context.Context, chatID int64, text string) error
	// CanSendVideoNotes reports the chat's note capability. known is false
	// when the transport does not expose the flag for this chat.
	CanSendVideoNotes(ctx context.Context, chatID int64) (allowed, known bool)
}

// Config tunes the negotiator's user-facing messages.
type Config struct {
	NoteLength     int // side length hint passed with note sends
	NoteMaxSeconds int // quoted in the too-long explanation
}

// Negotiator runs the ladder for one artifact at a time. Stateless between
// calls; safe for concurrent use.
type Negotiator struct {
	sender Sender
	cfg    Config
}

// New builds a negotiator over the given transport.
func New(sender Sender, cfg Config) *Negotiator {
	return &Negotiator{sender: sender, cfg: cfg}
}

// Deliver sends the artifact to the chat, descending the ladder on
// classified failures. It returns the mode that succeeded, or the terminal
// transport error.
func (n *Negotiator) Deliver(ctx context.Context, chatID int64, art model.Artifact) (Mode, error) {
	logger := log.WithComponentFromContext(ctx, "delivery")

	mode := ModeNote
	if allowed, known := n.sender.CanSendVideoNotes(ctx, chatID); known && !allowed {
		logger.Info().Int64("chat_id", chatID).Msg("chat forbids video notes, skipping note attempt")
		n.notify(ctx, chatID, "This chat does not allow video notes, sending a regular video instead.")
		fallbacksTotal.WithLabelValues(string(ModeNote), string(ModeVideo)).Inc()
		mode = ModeVideo
	}

	if mode == ModeNote {
		err := n.sender.SendVideoNote(ctx, chatID, art.Path, n.cfg.NoteLength)
		if err == nil {
			attemptsTotal.WithLabelValues(string(ModeNote), "ok").Inc()
			return ModeNote, nil
		}
		attemptsTotal.WithLabelValues(string(ModeNote), "error").Inc()

		switch classifySendError(err) {
		case failureTooLong:
			// The clip itself breaks the note duration ceiling. No other
			// mode fixes that, so stop here.
			n.notify(ctx, chatID,
				fmt.Sprintf("The clip is too long for a video note (limit %d seconds). Trim it and try again.", n.cfg.NoteMaxSeconds))
			return "", fmt.Errorf("%w: %v", ErrTooLong, err)
		case failureForbidden:
			logger.Info().Int64("chat_id", chatID).Str("cause", err.Error()).
				Msg("note delivery forbidden, falling back to video")
			n.notify(ctx, chatID, "Video notes are not allowed here, sending a regular video instead.")
		default:
			logger.Warn().Int64("chat_id", chatID).Err(err).
				Msg("note delivery failed, falling back to video")
		}
		fallbacksTotal.WithLabelValues(string(ModeNote), string(ModeVideo)).Inc()
		mode = ModeVideo
	}

	err := n.sender.SendVideo(ctx, chatID, art.Path, "")
	if err == nil {
		attemptsTotal.WithLabelValues(string(ModeVideo), "ok").Inc()
		return ModeVideo, nil
	}
	attemptsTotal.WithLabelValues(string(ModeVideo), "error").Inc()

	// Only a forbidden-video failure earns the document fallback. Anything
	// else at this stage is a real fault and must surface, not be masked as
	// a routine downgrade.
	if classifySendError(err) != failureForbidden {
		return "", fmt.Errorf("delivery: video send failed: %w", err)
	}
	logger.Info().Int64("chat_id", chatID).Str("cause", err.Error()).
		Msg("video delivery forbidden, falling back to document")
	n.notify(ctx, chatID, "Videos are not allowed here, sending the result as a file instead.")
	fallbacksTotal.WithLabelValues(string(ModeVideo), string(ModeDocument)).Inc()

	if err := n.sender.SendDocument(ctx, chatID, art.Path, ""); err != nil {
		attemptsTotal.WithLabelValues(string(ModeDocument), "error").Inc()
		return "", fmt.Errorf("delivery: document send failed: %w", err)
	}
	attemptsTotal.WithLabelValues(string(ModeDocument), "ok").Inc()
	return ModeDocument, nil
}

// notify sends a user-facing explanation. Failures here never affect the
// ladder; the artifact still gets its remaining attempts.
func (n *Negotiator) notify(ctx context.Context, chatID int64, text string) {
	if err := n.sender.SendMessage(ctx, chatID, text); err != nil {
		logger := log.WithComponentFromContext(ctx, "delivery")
		logger.Debug().Err(err).
			Int64("chat_id", chatID).Msg("notice send failed")
	}
}
