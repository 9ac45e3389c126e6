package pipeline

import (
	"context"
	"fmt"
	"strings"

	"rondo/internal/analytics"
	"rondo/internal/log"
	"rondo/internal/telegram"
)

const welcomeText = "Send me a video and I'll turn it into a round video note. " +
	"Videos, video notes and video files (video/*) all work."

func (p *Pipeline) handleCommand(ctx context.Context, msg *telegram.Message, cmd string) {
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}

	switch cmd {
	case "/start":
		p.stats.RecordStart(ctx, userID)
		p.reply(ctx, msg.Chat.ID, welcomeText)
	case "/stats":
		if p.cfg.AdminUserID == 0 || userID != p.cfg.AdminUserID {
			return
		}
		p.replyStats(ctx, msg.Chat.ID)
	}
}

// statser is satisfied by the analytics store; the plain Recorder interface
// stays write-only so fakes in tests do not have to aggregate anything.
type statser interface {
	Stats(ctx context.Context) (analytics.Stats, error)
	DetailedStats(ctx context.Context) (analytics.DetailedStats, error)
}

func (p *Pipeline) replyStats(ctx context.Context, chatID int64) {
	source, ok := p.stats.(statser)
	if !ok {
		p.reply(ctx, chatID, "Statistics are not enabled.")
		return
	}
	logger := log.WithComponentFromContext(ctx, "pipeline")
	stats, err := source.Stats(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("stats query failed")
		p.reply(ctx, chatID, "Statistics are unavailable right now.")
		return
	}
	detailed, err := source.DetailedStats(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("stats query failed")
		p.reply(ctx, chatID, "Statistics are unavailable right now.")
		return
	}
	p.reply(ctx, chatID, formatStats(stats, detailed))
}

func formatStats(stats analytics.Stats, detailed analytics.DetailedStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Users: %d\n", stats.TotalUsers)
	fmt.Fprintf(&b, "Conversions: %d\n", stats.TotalConversions)
	fmt.Fprintf(&b, "Errors: %d\n", detailed.TotalErrors)
	if detailed.AvgProcessingMS > 0 {
		fmt.Fprintf(&b, "Avg processing: %.0f ms\n", detailed.AvgProcessingMS)
	}
	if detailed.AvgOutputBytes > 0 {
		fmt.Fprintf(&b, "Avg output: %.0f KiB\n", detailed.AvgOutputBytes/1024)
	}
	if len(stats.TopUsers) > 0 {
		b.WriteString("Top users:\n")
		for _, uc := range stats.TopUsers {
			fmt.Fprintf(&b, "  %d: %d\n", uc.UserID, uc.Count)
		}
	}
	if len(detailed.Kinds) > 0 {
		b.WriteString("Media kinds:\n")
		for _, kc := range detailed.Kinds {
			fmt.Fprintf(&b, "  %s: %d\n", kc.Code, kc.Count)
		}
	}
	if len(detailed.TopErrors) > 0 {
		b.WriteString("Top errors:\n")
		for _, cc := range detailed.TopErrors {
			fmt.Fprintf(&b, "  %s: %d\n", cc.Code, cc.Count)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
