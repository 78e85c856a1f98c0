package ffmpeg

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	fileutil "clipmerge/internal/file"
)

// ManifestLine renders one concat demuxer entry for path. Single quotes in
// the path are closed, escaped and reopened as the demuxer expects.
func ManifestLine(path string) string {
	return "file '" + strings.ReplaceAll(path, "'", `'\''`) + "'\n"
}

// WriteManifest writes the concat manifest for paths, in order, using
// absolute paths.
func WriteManifest(manifestPath string, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("write manifest: no inputs")
	}
	var buf bytes.Buffer
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		buf.WriteString(ManifestLine(abs))
	}
	if err := fileutil.WriteAtomic(manifestPath, &buf); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
