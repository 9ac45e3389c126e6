package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 20*time.Second, cfg.UserCooldown)
	assert.Equal(t, 640, cfg.NoteSize)
	assert.InDelta(t, 12.0, cfg.SizeLimitMiB, 0.001)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RONDO_CONCURRENCY", "4")
	t.Setenv("RONDO_USER_COOLDOWN", "45s")
	t.Setenv("RONDO_NOTE_LIMIT_MIB", "8")
	t.Setenv("RONDO_ENHANCE", "yes")
	t.Setenv("RONDO_FFMPEG_TIMEOUT", "120") // bare seconds

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.UserCooldown)
	assert.InDelta(t, 8.0, cfg.SizeLimitMiB, 0.001)
	assert.True(t, cfg.Enhance)
	assert.Equal(t, 120*time.Second, cfg.EncodeTimeout)
}

func TestFileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rondo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: 8\npreset: medium\n"), 0o600))

	t.Setenv("RONDO_CONFIG_FILE", path)
	t.Setenv("RONDO_CONCURRENCY", "3")

	cfg, err := Load()
	require.NoError(t, err)
	// env wins over file, file wins over defaults
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, "medium", cfg.Preset)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Concurrency = 0
	assert.ErrorIs(t, cfg.Validate(), ErrNoConcurrency)

	cfg = Defaults()
	cfg.NoteSize = 641
	assert.ErrorIs(t, cfg.Validate(), ErrBadNoteSize)

	cfg = Defaults()
	cfg.CRF = 99
	assert.ErrorIs(t, cfg.Validate(), ErrBadCRF)

	cfg = Defaults()
	cfg.EncodeTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), ErrBadTimeout)
}

func TestSizeLimitBytes(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, int64(12*1024*1024), cfg.SizeLimitBytes())

	cfg.SizeLimitMiB = 0
	assert.Equal(t, int64(0), cfg.SizeLimitBytes())

	cfg.SizeLimitMiB = -3
	assert.Equal(t, int64(0), cfg.SizeLimitBytes())
}

func TestParseBoolSpellings(t *testing.T) {
	t.Setenv("RONDO_TEST_BOOL", "on")
	assert.True(t, ParseBool("RONDO_TEST_BOOL", false))
	t.Setenv("RONDO_TEST_BOOL", "off")
	assert.False(t, ParseBool("RONDO_TEST_BOOL", true))
	t.Setenv("RONDO_TEST_BOOL", "nonsense")
	assert.True(t, ParseBool("RONDO_TEST_BOOL", true))
}
