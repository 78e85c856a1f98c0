package sequence

import (
	"path/filepath"
	"slices"
	"strings"
)

// MediaSet is an ordered, duplicate-free list of files sharing one extension.
// While AutoSort is on, every Add re-sorts the set; a manual move turns it
// off until Sort is called again.
type MediaSet struct {
	ext      string
	paths    []string
	autoSort bool
}

// NewMediaSet creates an empty set accepting files with extension ext
// ("mp3" or ".mp3", any case). Auto-sort starts enabled.
func NewMediaSet(ext string) *MediaSet {
	return &MediaSet{ext: NormalizeExt(ext), autoSort: true}
}

// NormalizeExt lowercases ext and strips a leading dot.
func NormalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// HasExt reports whether path carries the extension ext, case-insensitively.
func HasExt(path, ext string) bool {
	return NormalizeExt(filepath.Ext(path)) == NormalizeExt(ext)
}

// Ext returns the extension accepted by the set, without the dot.
func (s *MediaSet) Ext() string { return s.ext }

// Add appends paths with the set's extension that are not already present
// and returns how many were added. Paths are stored absolute, so two
// spellings of the same file count as one.
func (s *MediaSet) Add(paths ...string) int {
	added := 0
	for _, p := range paths {
		if strings.TrimSpace(p) == "" || !HasExt(p, s.ext) {
			continue
		}
		p = absPath(p)
		if slices.Contains(s.paths, p) {
			continue
		}
		s.paths = append(s.paths, p)
		added++
	}
	if added > 0 && s.autoSort {
		s.paths = Sort(s.paths)
	}
	return added
}

// Remove deletes the entry at index i. Out-of-range indexes are ignored.
func (s *MediaSet) Remove(i int) bool {
	if i < 0 || i >= len(s.paths) {
		return false
	}
	s.paths = append(s.paths[:i], s.paths[i+1:]...)
	return true
}

// MoveUp swaps entry i with the one before it and disables auto-sort.
func (s *MediaSet) MoveUp(i int) bool {
	return s.Move(i, i-1)
}

// MoveDown swaps entry i with the one after it and disables auto-sort.
func (s *MediaSet) MoveDown(i int) bool {
	return s.Move(i, i+1)
}

// Move swaps entries i and j and disables auto-sort.
func (s *MediaSet) Move(i, j int) bool {
	if i < 0 || j < 0 || i >= len(s.paths) || j >= len(s.paths) || i == j {
		return false
	}
	s.paths[i], s.paths[j] = s.paths[j], s.paths[i]
	s.autoSort = false
	return true
}

// Sort orders the set and re-enables auto-sort.
func (s *MediaSet) Sort() {
	s.paths = Sort(s.paths)
	s.autoSort = true
}

// SetAutoSort toggles re-sorting on Add. Enabling it sorts immediately.
func (s *MediaSet) SetAutoSort(on bool) {
	if on {
		s.Sort()
		return
	}
	s.autoSort = false
}

// AutoSort reports whether Add keeps the set sorted.
func (s *MediaSet) AutoSort() bool { return s.autoSort }

// Len returns the number of entries.
func (s *MediaSet) Len() int { return len(s.paths) }

// Paths returns a copy of the ordered entries.
func (s *MediaSet) Paths() []string {
	return append([]string(nil), s.paths...)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
