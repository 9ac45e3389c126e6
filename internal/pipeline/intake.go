package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"rondo/internal/log"
	"rondo/internal/telegram"
)

// pollRetryDelay spaces out retries after a failed getUpdates call so a
// broken network or API outage does not spin the loop.
const pollRetryDelay = 3 * time.Second

// Run long-polls for updates until ctx is cancelled, dispatching each
// update onto its own goroutine. It returns after all in-flight jobs have
// finished.
func (p *Pipeline) Run(ctx context.Context) error {
	logger := log.WithComponent("intake")

	var offset int64
	if p.offsets != nil {
		saved, err := p.offsets.Load()
		if err != nil {
			logger.Warn().Err(err).Msg("offset load failed, starting from zero")
		} else {
			offset = saved
		}
	}

	for {
		updates, err := p.transport.GetUpdates(ctx, offset, p.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn().Err(err).Msg("getUpdates failed, retrying")
			select {
			case <-time.After(pollRetryDelay):
				continue
			case <-ctx.Done():
			}
			break
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			p.dispatch(ctx, upd)
		}
		if len(updates) > 0 && p.offsets != nil {
			if err := p.offsets.Save(offset); err != nil {
				logger.Warn().Err(err).Int64("offset", offset).Msg("offset save failed")
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	logger.Info().Msg("intake stopped, draining jobs")
	p.wg.Wait()
	return ctx.Err()
}

func (p *Pipeline) dispatch(ctx context.Context, upd telegram.Update) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.handleUpdate(ctx, upd)
	}()
}

func (p *Pipeline) handleUpdate(ctx context.Context, upd telegram.Update) {
	msg := upd.Message
	if msg == nil || (msg.From != nil && msg.From.IsBot) {
		return
	}

	if cmd, ok := command(msg.Text); ok {
		p.handleCommand(ctx, msg, cmd)
		return
	}

	req, result := extractRequest(msg)
	switch result {
	case extractNotVideo:
		p.reply(ctx, msg.Chat.ID,
			"That document is not a video. Send a video, a video note, or a video file (video/*).")
		return
	case extractNoMedia:
		return
	}

	ctx = log.ContextWithJobID(ctx, uuid.NewString())
	ctx = log.ContextWithUserID(ctx, req.UserID)
	p.handleRequest(ctx, req)
}

// command parses a leading bot command, tolerating the @botname suffix
// Telegram appends in groups.
func command(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0]
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return cmd, true
}

func (p *Pipeline) reply(ctx context.Context, chatID int64, text string) {
	if err := p.transport.SendMessage(ctx, chatID, text); err != nil {
		logger := log.WithComponentFromContext(ctx, "pipeline")
		logger.Debug().Err(err).
			Int64("chat_id", chatID).Msg("reply failed")
	}
}
