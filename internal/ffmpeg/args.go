// Package ffmpeg builds ffmpeg/ffprobe command lines for the merge pipeline,
// runs them as child processes and parses their diagnostic output.
package ffmpeg

import "fmt"

const (
	// DefaultHeight is the common height both video inputs are scaled to.
	DefaultHeight     = 720
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// ComposeInput describes one video composition: intro once, body looped,
// merged audio as the soundtrack and stop condition.
type ComposeInput struct {
	Intro      string
	Body       string
	Audio      string
	Output     string
	Height     int
	VideoCodec string
	AudioCodec string
}

// ConcatAudioArgs returns the stream-copy concat invocation for a manifest.
func ConcatAudioArgs(manifestPath, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		"-y",
		outputPath,
	}
}

// FilterGraph scales both video inputs to height and concatenates them in time.
func FilterGraph(height int) string {
	if height <= 0 {
		height = DefaultHeight
	}
	return fmt.Sprintf("[0:v]scale=-1:%[1]d[v0];[1:v]scale=-1:%[1]d[v1];[v0][v1]concat=n=2:v=1:a=0[v]", height)
}

// ComposeArgs returns the three-input composition invocation. The body input
// loops forever, so -shortest with the audio input bounds the output length.
func ComposeArgs(in ComposeInput) []string {
	body := in.Body
	if body == "" {
		body = in.Intro
	}
	videoCodec := in.VideoCodec
	if videoCodec == "" {
		videoCodec = DefaultVideoCodec
	}
	audioCodec := in.AudioCodec
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	return []string{
		"-hide_banner",
		"-nostdin",
		"-stats",
		"-i", in.Intro,
		"-stream_loop", "-1",
		"-i", body,
		"-i", in.Audio,
		"-filter_complex", FilterGraph(in.Height),
		"-map", "[v]",
		"-map", "2:a",
		"-c:v", videoCodec,
		"-c:a", audioCodec,
		"-shortest",
		"-y",
		in.Output,
	}
}

// ProbeDurationArgs returns the ffprobe invocation printing only the
// container duration in seconds.
func ProbeDurationArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// FormatSeconds renders seconds as HH:MM:SS.ss, the form ffmpeg prints.
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	rest := seconds - float64(whole-whole%60)
	return fmt.Sprintf("%02d:%02d:%05.2f", whole/3600, (whole%3600)/60, rest)
}
