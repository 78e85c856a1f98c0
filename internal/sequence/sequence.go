// Package sequence orders media file paths for concatenation.
//
// Names are compared naturally: digit runs compare as numbers and the rest
// compares case-insensitively, so "clip2" sorts before "clip10". A file named
// opening.<ext> is always first and closing.<ext> always last.
package sequence

import (
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// PadWidth is the width digit runs are zero-padded to before comparison.
// Runs of up to PadWidth digits compare numerically; longer runs only
// compare correctly against runs of the same length.
const PadWidth = 8

const (
	openingStem = "opening"
	closingStem = "closing"
)

type rank int

const (
	rankOpening rank = iota
	rankRegular
	rankClosing
)

// Key is the comparable sort key of a single file name.
type Key struct {
	rank  rank
	parts []string
}

// KeyOf builds the sort key for the base name of path.
func KeyOf(path string) Key {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext != "" {
		// cases.Caser is stateful; one per call keeps KeyOf goroutine-safe.
		switch cases.Fold().String(strings.TrimSuffix(base, ext)) {
		case openingStem:
			return Key{rank: rankOpening}
		case closingStem:
			return Key{rank: rankClosing}
		}
	}
	return Key{rank: rankRegular, parts: splitRuns(base)}
}

// Pin returns "opening" or "closing" for names pinned to either end, and ""
// for regular names.
func (k Key) Pin() string {
	switch k.rank {
	case rankOpening:
		return openingStem
	case rankClosing:
		return closingStem
	}
	return ""
}

// Compare orders two keys, returning -1, 0 or +1.
func (k Key) Compare(other Key) int {
	if k.rank != other.rank {
		if k.rank < other.rank {
			return -1
		}
		return 1
	}
	return slices.Compare(k.parts, other.parts)
}

// Less reports whether path a sorts before path b.
func Less(a, b string) bool {
	return KeyOf(a).Compare(KeyOf(b)) < 0
}

// Sort returns a new slice with paths in sequence order. The sort is stable:
// paths with identical keys keep their relative order.
func Sort(paths []string) []string {
	keyed := make([]keyedPath, len(paths))
	for i, p := range paths {
		keyed[i] = keyedPath{path: p, key: KeyOf(p)}
	}
	slices.SortStableFunc(keyed, func(a, b keyedPath) int {
		return a.key.Compare(b.key)
	})
	out := make([]string, len(keyed))
	for i, k := range keyed {
		out[i] = k.path
	}
	return out
}

type keyedPath struct {
	path string
	key  Key
}

// splitRuns breaks name into alternating non-digit and digit runs. Digit
// runs are left-padded with zeros to PadWidth, other runs are case folded.
// Even indexes always hold non-digit runs; a name starting with a digit gets
// an empty leading run so runs of the same kind line up when compared.
func splitRuns(name string) []string {
	var (
		parts   []string
		current strings.Builder
		inDigit bool
		started bool
	)
	folder := cases.Fold()
	flush := func() {
		if current.Len() == 0 {
			return
		}
		run := current.String()
		if inDigit {
			if pad := PadWidth - len(run); pad > 0 {
				run = strings.Repeat("0", pad) + run
			}
		} else {
			run = folder.String(run)
		}
		parts = append(parts, run)
		current.Reset()
	}
	for _, r := range name {
		digit := r <= unicode.MaxASCII && unicode.IsDigit(r)
		if !started {
			started = true
			if digit {
				parts = append(parts, "")
			}
			inDigit = digit
		} else if digit != inDigit {
			flush()
			inDigit = digit
		}
		current.WriteRune(r)
	}
	flush()
	return parts
}
