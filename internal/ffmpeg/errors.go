package ffmpeg

import (
	"errors"
	"fmt"
)

// ErrTimeout reports an encode attempt that exceeded its wall-clock bound.
// Partial output from a timed-out run is never trusted.
var ErrTimeout = errors.New("ffmpeg: encode exceeded time limit")

// ExitError reports a nonzero ffmpeg exit together with the captured
// diagnostic tail.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg: exit code %d", e.Code)
	}
	return fmt.Sprintf("ffmpeg: exit code %d: %s", e.Code, e.Stderr)
}
