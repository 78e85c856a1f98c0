package sequence

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestMediaSetAddFiltersAndSorts(t *testing.T) {
	set := NewMediaSet(".MP3")
	added := set.Add("/a/b10.mp3", "/a/b2.mp3", "/a/cover.jpg", "/a/b2.mp3", "/a/opening.Mp3")
	if added != 3 {
		t.Fatalf("added = %d, want 3", added)
	}
	want := []string{"/a/opening.Mp3", "/a/b2.mp3", "/a/b10.mp3"}
	if got := set.Paths(); !slices.Equal(got, want) {
		t.Fatalf("Paths() = %v, want %v", got, want)
	}
	if set.Ext() != "mp3" {
		t.Fatalf("Ext() = %q", set.Ext())
	}
}

func TestMediaSetManualOrderDisablesAutoSort(t *testing.T) {
	set := NewMediaSet("mp4")
	set.Add("/v/a1.mp4", "/v/a2.mp4")
	if !set.MoveDown(0) {
		t.Fatalf("MoveDown(0) should succeed")
	}
	if set.AutoSort() {
		t.Fatalf("auto-sort should be off after manual move")
	}

	set.Add("/v/a0.mp4")
	want := []string{"/v/a2.mp4", "/v/a1.mp4", "/v/a0.mp4"}
	if got := set.Paths(); !slices.Equal(got, want) {
		t.Fatalf("Paths() = %v, want %v", got, want)
	}

	set.Sort()
	want = []string{"/v/a0.mp4", "/v/a1.mp4", "/v/a2.mp4"}
	if got := set.Paths(); !slices.Equal(got, want) {
		t.Fatalf("after Sort Paths() = %v, want %v", got, want)
	}
	if !set.AutoSort() {
		t.Fatalf("Sort should re-enable auto-sort")
	}
}

func TestMediaSetBoundsChecks(t *testing.T) {
	set := NewMediaSet("mp3")
	set.Add("/a/1.mp3")
	if set.MoveUp(0) || set.MoveDown(0) || set.Remove(3) || set.Remove(-1) {
		t.Fatalf("out of range operations should report false")
	}
	if !set.Remove(0) || set.Len() != 0 {
		t.Fatalf("Remove(0) should empty the set")
	}
}

func TestMediaSetPathsIsCopy(t *testing.T) {
	set := NewMediaSet("mp3")
	set.Add("/a/1.mp3")
	paths := set.Paths()
	paths[0] = "mutated"
	if set.Paths()[0] != "/a/1.mp3" {
		t.Fatalf("Paths() must return a copy")
	}
}

func TestMediaSetAddStoresAbsolutePathsOnce(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	set := NewMediaSet("mp3")
	added := set.Add("a.mp3", "./a.mp3", filepath.Join(dir, "a.mp3"), "sub/../a.mp3", "b.mp3")
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	want := []string{filepath.Join(dir, "a.mp3"), filepath.Join(dir, "b.mp3")}
	if got := set.Paths(); !slices.Equal(got, want) {
		t.Fatalf("Paths() = %v, want %v", got, want)
	}
}
