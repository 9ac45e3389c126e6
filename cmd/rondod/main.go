// rondod is the video-note conversion daemon: it long-polls Telegram for
// inbound videos, squares them through ffmpeg and sends them back as round
// video notes, with an ops HTTP endpoint on the side.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rondo/internal/admission"
	"rondo/internal/analytics"
	"rondo/internal/api"
	"rondo/internal/config"
	"rondo/internal/delivery"
	"rondo/internal/ffmpeg"
	"rondo/internal/health"
	"rondo/internal/log"
	"rondo/internal/pipeline"
	"rondo/internal/telegram"
	"rondo/internal/transcode"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rondod %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{Service: "rondo"})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration invalid")
	}
	log.SetLevel(cfg.LogLevel)

	if cfg.BotToken == "" {
		logger.Fatal().Msg("RONDO_BOT_TOKEN is required")
	}

	// Fail fast when the encode toolchain is missing; readiness would catch
	// it too, but a bot that can never convert should not start.
	for _, bin := range []string{cfg.FFmpegPath, cfg.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			logger.Fatal().Err(err).Str("binary", bin).Msg("required binary not found")
		}
	}

	bot := telegram.New(cfg.BotToken, cfg.APIBaseURL)
	meCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	me, err := bot.GetMe(meCtx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram token rejected")
	}
	logger.Info().Str("username", me.Username).Int64("bot_id", me.ID).Msg("authenticated")

	var stats pipeline.Recorder = pipeline.NopRecorder{}
	store, err := analytics.Open(filepath.Join(cfg.DataDir, "bot.db"))
	if err != nil {
		logger.Warn().Err(err).Msg("analytics disabled, database unavailable")
	} else {
		defer store.Close()
		stats = store
	}

	admitter, err := admission.New(admission.Config{
		Concurrency:     cfg.Concurrency,
		UserCooldown:    cfg.UserCooldown,
		MaxDeclaredSize: cfg.MaxDeclaredSize,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("admission controller init failed")
	}
	defer admitter.Close()

	executor := transcode.NewExecutor(
		ffmpeg.NewProber(cfg.FFprobePath),
		ffmpeg.NewRunner(cfg.FFmpegPath, cfg.EncodeTimeout),
		cfg.SizeLimitBytes(),
	)
	negotiator := delivery.New(bot, delivery.Config{
		NoteLength:     cfg.NoteSize,
		NoteMaxSeconds: cfg.NoteMaxSeconds,
	})
	offsets := telegram.NewOffsetStore(filepath.Join(cfg.DataDir, "updates.offset"))

	manager := health.NewManager(version)
	manager.RegisterChecker(health.NewExecChecker("ffmpeg", cfg.FFmpegPath))
	manager.RegisterChecker(health.NewExecChecker("ffprobe", cfg.FFprobePath))
	if store != nil {
		manager.RegisterChecker(health.NewPingChecker("analytics", 5*time.Second, store.Ping))
	}
	manager.RegisterChecker(health.NewPingChecker("telegram", 10*time.Second, func(ctx context.Context) error {
		_, err := bot.GetMe(ctx)
		return err
	}))

	ops := api.New(cfg.Listen, manager, store)
	pipe := pipeline.New(cfg, bot, admitter, executor, negotiator, stats, offsets)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipe.Run(gctx) })
	g.Go(ops.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ops.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("daemon exited with error")
	}
	logger.Info().Msg("shutdown complete")
}
