// Package config loads the daemon configuration. Values come from an
// optional YAML file overridden by RONDO_* environment variables; every
// field has a default so an empty environment still yields a runnable
// (if token-less) configuration.
package config

import (
	"time"
)

// Config is the complete runtime configuration, read once at startup.
type Config struct {
	// Telegram transport
	BotToken    string `yaml:"bot_token"`
	APIBaseURL  string `yaml:"api_base_url"`
	PollTimeout int    `yaml:"poll_timeout"` // getUpdates long-poll timeout, seconds
	AdminUserID int64  `yaml:"admin_user_id"`

	// External binaries
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	// Filesystem
	WorkDir string `yaml:"work_dir"` // per-job temp dirs
	DataDir string `yaml:"data_dir"` // analytics database

	// Ops HTTP server
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	// Admission
	Concurrency     int           `yaml:"concurrency"`       // global transcode cap
	UserCooldown    time.Duration `yaml:"user_cooldown"`     // per-user gate window
	MaxDeclaredSize int64         `yaml:"max_declared_size"` // bytes, 0 disables

	// Transcode
	NoteSize       int           `yaml:"note_size"`     // square side length
	NoteMaxSeconds int           `yaml:"note_max_secs"` // duration ceiling hint
	CRF            int           `yaml:"crf"`
	Preset         string        `yaml:"preset"`
	Tune           string        `yaml:"tune"`
	EncodeTimeout  time.Duration `yaml:"encode_timeout"`
	SizeLimitMiB   float64       `yaml:"size_limit_mib"` // <=0 disables size-fix

	// Cosmetic enhancement
	Enhance           bool    `yaml:"enhance"`
	Saturation        float64 `yaml:"saturation"`
	Contrast          float64 `yaml:"contrast"`
	Brightness        float64 `yaml:"brightness"`
	Gamma             float64 `yaml:"gamma"`
	ForceLimitedRange bool    `yaml:"force_limited_range"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		APIBaseURL:  "https://api.telegram.org",
		PollTimeout: 50,

		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",

		WorkDir: "",
		DataDir: "data",

		Listen:   ":8088",
		LogLevel: "info",

		Concurrency:     2,
		UserCooldown:    20 * time.Second,
		MaxDeclaredSize: 0,

		NoteSize:       640,
		NoteMaxSeconds: 60,
		CRF:            14,
		Preset:         "slow",
		EncodeTimeout:  600 * time.Second,
		SizeLimitMiB:   12,

		Saturation: 1.12,
		Contrast:   1.02,
		Brightness: 0.0,
		Gamma:      1.0,
	}
}

// Load builds the effective configuration: defaults, then the optional
// YAML file named by RONDO_CONFIG_FILE, then environment overrides.
func Load() (Config, error) {
	cfg := Defaults()

	if path := ParseString("RONDO_CONFIG_FILE", ""); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	mergeEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func mergeEnv(cfg *Config) {
	cfg.BotToken = ParseString("RONDO_BOT_TOKEN", cfg.BotToken)
	cfg.APIBaseURL = ParseString("RONDO_TELEGRAM_API", cfg.APIBaseURL)
	cfg.PollTimeout = ParseInt("RONDO_POLL_TIMEOUT", cfg.PollTimeout)
	cfg.AdminUserID = ParseInt64("RONDO_ADMIN_USER_ID", cfg.AdminUserID)

	cfg.FFmpegPath = ParseString("RONDO_FFMPEG_PATH", cfg.FFmpegPath)
	cfg.FFprobePath = ParseString("RONDO_FFPROBE_PATH", cfg.FFprobePath)

	cfg.WorkDir = ParseString("RONDO_WORK_DIR", cfg.WorkDir)
	cfg.DataDir = ParseString("RONDO_DATA_DIR", cfg.DataDir)

	cfg.Listen = ParseString("RONDO_LISTEN", cfg.Listen)
	cfg.LogLevel = ParseString("RONDO_LOG_LEVEL", cfg.LogLevel)

	cfg.Concurrency = ParseInt("RONDO_CONCURRENCY", cfg.Concurrency)
	cfg.UserCooldown = ParseDuration("RONDO_USER_COOLDOWN", cfg.UserCooldown)
	cfg.MaxDeclaredSize = ParseInt64("RONDO_MAX_INPUT_BYTES", cfg.MaxDeclaredSize)

	cfg.NoteSize = ParseInt("RONDO_NOTE_SIZE", cfg.NoteSize)
	cfg.NoteMaxSeconds = ParseInt("RONDO_NOTE_MAX_SECONDS", cfg.NoteMaxSeconds)
	cfg.CRF = ParseInt("RONDO_CRF", cfg.CRF)
	cfg.Preset = ParseString("RONDO_PRESET", cfg.Preset)
	cfg.Tune = ParseString("RONDO_TUNE", cfg.Tune)
	cfg.EncodeTimeout = ParseDuration("RONDO_FFMPEG_TIMEOUT", cfg.EncodeTimeout)
	cfg.SizeLimitMiB = ParseFloat("RONDO_NOTE_LIMIT_MIB", cfg.SizeLimitMiB)

	cfg.Enhance = ParseBool("RONDO_ENHANCE", cfg.Enhance)
	cfg.Saturation = ParseFloat("RONDO_SATURATION", cfg.Saturation)
	cfg.Contrast = ParseFloat("RONDO_CONTRAST", cfg.Contrast)
	cfg.Brightness = ParseFloat("RONDO_BRIGHTNESS", cfg.Brightness)
	cfg.Gamma = ParseFloat("RONDO_GAMMA", cfg.Gamma)
	cfg.ForceLimitedRange = ParseBool("RONDO_FORCE_LIMITED_RANGE", cfg.ForceLimitedRange)
}
