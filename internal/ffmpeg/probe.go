package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidDuration is returned when ffprobe reports no positive duration.
var ErrInvalidDuration = errors.New("invalid duration")

// Prober reads media durations with ffprobe.
type Prober struct {
	Binary string
	Runner Runner
}

// Duration returns the container duration of path in seconds. Anything other
// than a single positive number on stdout is an error.
func (p Prober) Duration(ctx context.Context, path string) (float64, error) {
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	runner := p.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	out, err := runner.Output(ctx, binary, ProbeDurationArgs(path)...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	return ParseDuration(string(out))
}

// ParseDuration parses ffprobe's bare duration output.
func ParseDuration(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty output", ErrInvalidDuration)
	}
	seconds, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, cleaned)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, cleaned)
	}
	return seconds, nil
}
