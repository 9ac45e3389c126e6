// Package model holds the shared value types that flow through the
// transcode pipeline. All types are plain data; they carry no behaviour
// beyond small constructors and predicates.
package model

// MediaKind tags the source of an inbound media item.
type MediaKind string

const (
	KindVideo     MediaKind = "video"
	KindVideoNote MediaKind = "video_note"
	KindDocument  MediaKind = "document"
	KindURL       MediaKind = "url"
)

// Request identifies one inbound media item. Immutable once constructed;
// created at ingestion, consumed once by the pipeline, never persisted.
type Request struct {
	ChatID       int64
	MessageID    int
	UserID       int64  // 0 when unknown
	MediaGroupID string // empty when the message is not part of an album
	FileID       string // reference used to fetch the source bytes
	Kind         MediaKind
	DeclaredSize int64 // bytes, 0 when the transport did not declare one
	DeclaredDur  int   // seconds, 0 when unknown
}

// ColorInfo describes the color metadata of a source video stream as
// reported by ffprobe. Empty fields mean "unknown".
type ColorInfo struct {
	Primaries string
	Transfer  string
	Matrix    string
}

// AudioMode selects how the audio track is carried into the output.
type AudioMode string

const (
	AudioCopy     AudioMode = "copy"
	AudioReencode AudioMode = "aac"
)

// TranscodeSpec parameterises a single encode attempt. A retried attempt
// (audio fallback, size-fix) produces a new spec.
type TranscodeSpec struct {
	Size      int    // target square side length in pixels
	CRF       int    // libx264 quality parameter
	Preset    string // libx264 speed/quality preset
	Tune      string // optional encoder tuning hint
	AudioMode AudioMode

	// Cosmetic enhancement (eq filter); applied only when Enhance is set.
	Enhance    bool
	Saturation float64
	Contrast   float64
	Brightness float64
	Gamma      float64

	// Compat selects the maximum-compatibility note profile (baseline/3.1,
	// no color tags). ApplyColorTags stamps the bt709 triple when Compat is
	// off. ForceLimitedRange normalises output to TV range.
	Compat            bool
	ApplyColorTags    bool
	ForceLimitedRange bool
}

// Artifact is the encoded output file produced by one transcode run,
// owned by the pipeline until handed to delivery or discarded.
type Artifact struct {
	Path string
	Size int64 // bytes
}
