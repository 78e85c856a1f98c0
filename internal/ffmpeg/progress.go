package ffmpeg

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strconv"
)

const maxLineSize = 1 << 20

var reElapsed = regexp.MustCompile(`time=\s*(\d+):(\d{1,2}):(\d{1,2}(?:\.\d+)?)`)

// ParseElapsed extracts the time=HH:MM:SS[.fraction] field from an ffmpeg
// stats line. It reports false for lines without a usable time field,
// including time=N/A and negative times.
func ParseElapsed(line string) (float64, bool) {
	m := reElapsed.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60) + seconds, true
}

// NewLineScanner returns a scanner over r that yields one token per line,
// treating both \n and \r as terminators; ffmpeg rewrites its stats line
// with \r.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanLinesOrCR)
	return scanner
}

func scanLinesOrCR(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
