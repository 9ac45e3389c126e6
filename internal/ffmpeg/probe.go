package ffmpeg

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"rondo/internal/log"
	"rondo/internal/model"
)

// Prober wraps ffprobe for read-only source inspection.
type Prober struct {
	BinPath string
	Timeout time.Duration
}

// NewProber returns a prober using the given ffprobe binary.
func NewProber(binPath string) *Prober {
	if binPath == "" {
		binPath = "ffprobe"
	}
	return &Prober{BinPath: binPath, Timeout: 30 * time.Second}
}

type probeStream struct {
	ColorSpace     string `json:"color_space"`
	ColorTransfer  string `json:"color_transfer"`
	ColorPrimaries string `json:"color_primaries"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

func (p *Prober) run(ctx context.Context, args []string) ([]byte, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, p.BinPath, args...) // #nosec G204 -- binary path from config
	return cmd.Output()
}

// Colors inspects the first video stream's color metadata. It never fails
// the caller: any I/O or parse error yields an all-unknown ColorInfo.
func (p *Prober) Colors(ctx context.Context, path string) model.ColorInfo {
	out, err := p.run(ctx, []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=color_space,color_transfer,color_primaries",
		"-of", "json",
		path,
	})
	if err != nil {
		logger := log.WithComponentFromContext(ctx, "probe")
		logger.Debug().Err(err).Str("path", path).
			Msg("color probe failed, treating as unknown")
		return model.ColorInfo{}
	}
	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil || len(parsed.Streams) == 0 {
		return model.ColorInfo{}
	}
	s := parsed.Streams[0]
	return model.ColorInfo{
		Primaries: s.ColorPrimaries,
		Transfer:  s.ColorTransfer,
		Matrix:    s.ColorSpace,
	}
}

// Duration returns the container duration in seconds, or 0 when it cannot
// be determined.
func (p *Prober) Duration(ctx context.Context, path string) float64 {
	out, err := p.run(ctx, []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	})
	if err != nil {
		return 0
	}
	s := strings.TrimSpace(string(out))
	if s == "" {
		return 0
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
