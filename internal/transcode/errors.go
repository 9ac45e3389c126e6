package transcode

import (
	"errors"

	"rondo/internal/ffmpeg"
)

// ErrSizeFixFailed reports a failed corrective re-encode. Fatal for the
// job; no further shrink attempts are made.
var ErrSizeFixFailed = errors.New("transcode: size-fix re-encode failed")

// Classify maps a transcode error to a short code for analytics/metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ffmpeg.ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrSizeFixFailed):
		return "size_fix"
	default:
		var exitErr *ffmpeg.ExitError
		if errors.As(err, &exitErr) {
			return "encode_failed"
		}
		return "internal"
	}
}
