package transcode

// Rate targets for the corrective re-encode.
const (
	// payloadShare reserves headroom for container overhead: 95% of the
	// byte ceiling is budgeted for actual stream data.
	payloadShare = 0.95

	// audioReserveK is the fixed AAC bitrate of the size-fix pass.
	audioReserveK = 96

	// minVideoKbit floors the recomputed video bitrate; below this the
	// encode degenerates into unusable output.
	minVideoKbit = 300

	// fallbackVideoKbit is used when the duration cannot be measured at
	// all, instead of dividing by zero.
	fallbackVideoKbit = 1800
)

// TargetVideoBitrateK derives the video bitrate (kbit/s) that fits a clip
// of the given duration under the byte ceiling, after reserving the audio
// track. Pure; duration <= 0 selects the fixed fallback rate.
func TargetVideoBitrateK(limitBytes int64, durationSeconds float64) int {
	if durationSeconds <= 0 {
		return fallbackVideoKbit
	}
	totalBits := float64(limitBytes) * 8 * payloadShare
	v := int(totalBits/durationSeconds/1000) - audioReserveK
	if v < minVideoKbit {
		return minVideoKbit
	}
	return v
}
