package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"rondo/internal/model"
)

// scaleFlags selects the resampling kernel for the square downscale.
// Lanczos with accurate rounding and full-resolution chroma keeps text and
// fine detail readable at note sizes.
const scaleFlags = "lanczos+accurate_rnd+full_chroma_int"

// IsHDR classifies the source as high dynamic range: PQ or HLG transfer,
// or a wide-gamut (BT.2020) primaries/matrix tag.
func IsHDR(colors model.ColorInfo) bool {
	trc := strings.ToLower(colors.Transfer)
	prim := strings.ToLower(colors.Primaries)
	mtx := strings.ToLower(colors.Matrix)
	if trc == "smpte2084" || trc == "arib-std-b67" {
		return true
	}
	return strings.Contains(prim, "2020") || strings.Contains(mtx, "2020")
}

// filterChain builds the ordered -vf pipeline:
// crop -> (HDR tone-map) -> scale -> setsar -> (range normalise) ->
// (eq enhancement) -> format -> (color tags).
func filterChain(spec model.TranscodeSpec, colors model.ColorInfo) string {
	chain := []string{"crop='min(in_w,in_h)':'min(in_w,in_h)'"}

	hdr := IsHDR(colors)
	if hdr {
		prim := strings.ToLower(colors.Primaries)
		mtx := strings.ToLower(colors.Matrix)
		trcIn := strings.ToLower(colors.Transfer)
		primIn := "bt709"
		if strings.Contains(prim, "2020") {
			primIn = "bt2020"
		} else if prim != "" {
			primIn = prim
		}
		mtxIn := "bt709"
		if strings.Contains(mtx, "2020") {
			mtxIn = "bt2020nc"
		} else if mtx != "" {
			mtxIn = mtx
		}
		if trcIn == "" {
			trcIn = "arib-std-b67"
		}
		chain = append(chain,
			fmt.Sprintf("zscale=transferin=%s:primariesin=%s:matrixin=%s", trcIn, primIn, mtxIn),
			"tonemap=hable:param=0.5:desat=0",
			"zscale=transfer=bt709:primaries=bt709:matrix=bt709:range=tv",
		)
	}

	chain = append(chain,
		fmt.Sprintf("scale=%d:%d:flags=%s", spec.Size, spec.Size, scaleFlags),
		"setsar=1",
	)

	// HDR sources already arrive in bt709/tv via the tone-map stage; running
	// the colorspace filter again would double-convert them.
	if spec.ForceLimitedRange && !hdr {
		chain = append(chain, "colorspace=all=bt709:range=tv:fast=1")
	}

	if spec.Enhance {
		eq := []string{
			fmt.Sprintf("saturation=%.3f", max(0.0, spec.Saturation)),
			fmt.Sprintf("contrast=%.3f", max(0.0, spec.Contrast)),
			fmt.Sprintf("brightness=%.3f", spec.Brightness),
			fmt.Sprintf("gamma=%.3f", max(0.1, spec.Gamma)),
		}
		chain = append(chain, "eq="+strings.Join(eq, ":"))
	}

	chain = append(chain, "format=yuv420p")

	// Compat mode deliberately ships untagged output: several mobile clients
	// mis-render tagged square clips.
	if !spec.Compat && spec.ApplyColorTags {
		chain = append(chain, "setparams=range=tv:color_primaries=bt709:color_trc=bt709:colorspace=bt709")
	}

	return strings.Join(chain, ",")
}

// BuildArgs constructs the full ffmpeg argv for one encode attempt.
// Deterministic: identical (spec, colors) inputs produce an identical plan.
func BuildArgs(input, output string, spec model.TranscodeSpec, colors model.ColorInfo) []string {
	args := []string{
		"-y",
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vf", filterChain(spec, colors),
		"-movflags", "+faststart",
	}

	args = append(args, "-c:v", "libx264")
	if spec.Compat {
		// Baseline at a constrained level for maximum device support.
		args = append(args, "-profile:v", "baseline", "-level", "3.1")
	} else {
		args = append(args, "-profile:v", "high")
	}
	args = append(args, "-preset", spec.Preset, "-crf", strconv.Itoa(spec.CRF))
	if spec.Tune != "" {
		args = append(args, "-tune", spec.Tune)
	}
	if spec.ForceLimitedRange {
		args = append(args,
			"-color_primaries", "bt709",
			"-color_trc", "bt709",
			"-colorspace", "bt709",
			"-color_range", "tv",
		)
	}

	if spec.AudioMode == model.AudioCopy {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	}

	return append(args, output)
}

// BuildSizeFixArgs constructs the argv for the corrective re-encode of an
// already-square artifact: fixed frame rate, capped CRF, rate-controlled
// bitrate/buffer, fixed-bitrate AAC.
func BuildSizeFixArgs(input, output string, crf, videoKbit int) []string {
	if crf < 22 {
		crf = 22
	}
	return []string{
		"-y",
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-r", "24",
		"-c:v", "libx264",
		"-profile:v", "baseline",
		"-level", "3.1",
		"-preset", "medium",
		"-crf", strconv.Itoa(crf),
		"-maxrate", fmt.Sprintf("%dk", videoKbit),
		"-bufsize", fmt.Sprintf("%dk", videoKbit*2),
		"-movflags", "+faststart",
		"-c:a", "aac",
		"-b:a", "96k",
		output,
	}
}
