//go:build unix && !windows

package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStub creates an executable shell script standing in for ffmpeg.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg-stub")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755)) // #nosec G306
	return path
}

func TestRunCleanExit(t *testing.T) {
	r := NewRunner(writeStub(t, "exit 0"), time.Minute)
	assert.NoError(t, r.Run(context.Background(), nil))
}

func TestRunNonzeroExitCapturesStderr(t *testing.T) {
	r := NewRunner(writeStub(t, "echo 'Decoder not found' >&2; exit 3"), time.Minute)
	err := r.Run(context.Background(), nil)
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "Decoder not found")
}

func TestRunFastExitKeepsStderrTail(t *testing.T) {
	// A process that writes and exits immediately must still have its full
	// diagnostic tail in the error; Wait drains stderr into the ring before
	// reporting the exit code.
	script := `i=0; while [ $i -lt 50 ]; do echo "line $i" >&2; i=$((i+1)); done; exit 1`
	r := NewRunner(writeStub(t, script), time.Minute)

	for run := 0; run < 10; run++ {
		err := r.Run(context.Background(), nil)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Stderr, "line 49")
	}
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner(writeStub(t, "sleep 30"), 200*time.Millisecond)
	r.KillGrace = 500 * time.Millisecond

	start := time.Now()
	err := r.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunParentCancellationIsNotTimeout(t *testing.T) {
	r := NewRunner(writeStub(t, "sleep 30"), time.Minute)
	r.KillGrace = 500 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	err := r.Run(ctx, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLineRingKeepsTail(t *testing.T) {
	ring := newLineRing(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		_, _ = ring.Write([]byte(line + "\n"))
	}
	assert.Equal(t, []string{"c", "d", "e"}, ring.Tail(3))
	assert.Equal(t, []string{"d", "e"}, ring.Tail(2))
}

func TestLineRingChunkedWrites(t *testing.T) {
	// Writers hand the ring arbitrary chunks, not whole lines.
	ring := newLineRing(8)
	_, _ = ring.Write([]byte("first line\nsec"))
	_, _ = ring.Write([]byte("ond\nthird line\n"))

	out := ring.String()
	assert.Contains(t, out, "first line")
	assert.Contains(t, out, "third line")
}
