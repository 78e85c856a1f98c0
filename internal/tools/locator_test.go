package tools

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, binaryName(name))
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestBundledLocatorPrefersConfiguredDir(t *testing.T) {
	toolsDir := t.TempDir()
	exeDir := t.TempDir()
	want := writeExecutable(t, toolsDir, "ffmpeg")
	writeExecutable(t, exeDir, "ffmpeg")

	loc := NewBundledLocator(toolsDir)
	loc.executable = func() (string, error) { return filepath.Join(exeDir, "clipmerge"), nil }

	got, err := loc.Locate("ffmpeg")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != want {
		t.Fatalf("Locate = %q, want %q", got, want)
	}
}

func TestBundledLocatorFallsBackToExecutableDir(t *testing.T) {
	exeDir := t.TempDir()
	want := writeExecutable(t, exeDir, "ffprobe")

	loc := NewBundledLocator("")
	loc.executable = func() (string, error) { return filepath.Join(exeDir, "clipmerge"), nil }

	got, err := loc.Locate("ffprobe")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got != want {
		t.Fatalf("Locate = %q, want %q", got, want)
	}
}

func TestBundledLocatorSkipsNonExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loc := NewBundledLocator(dir)
	loc.executable = func() (string, error) { return "", errors.New("no executable") }
	if _, err := loc.Locate("ffmpeg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChainReturnsFirstHit(t *testing.T) {
	miss := LocatorFunc(func(name string) (string, error) { return "", ErrNotFound })
	hit := LocatorFunc(func(name string) (string, error) { return "/opt/" + name, nil })
	never := LocatorFunc(func(name string) (string, error) {
		t.Fatalf("locator after a hit must not be consulted")
		return "", nil
	})

	got, err := Chain{miss, hit, never}.Locate("ffmpeg")
	if err != nil || got != "/opt/ffmpeg" {
		t.Fatalf("Locate = %q, %v", got, err)
	}

	if _, err := (Chain{miss, miss}).Locate("ffmpeg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from exhausted chain, got %v", err)
	}
}

func TestOverrideUsesExplicitPath(t *testing.T) {
	next := LocatorFunc(func(name string) (string, error) { return "/usr/bin/" + name, nil })
	explicit := filepath.Join(string(filepath.Separator)+"custom", "ffmpeg")
	loc := Override(map[string]string{"ffmpeg": explicit, "ffprobe": " "}, next)

	if got, _ := loc.Locate("ffmpeg"); got != explicit {
		t.Fatalf("override ignored: %q", got)
	}
	if got, _ := loc.Locate("ffprobe"); got != "/usr/bin/ffprobe" {
		t.Fatalf("blank override should defer, got %q", got)
	}
}

func TestCheckReportsAvailability(t *testing.T) {
	loc := LocatorFunc(func(name string) (string, error) {
		if name == "ffmpeg" {
			return "/bin/ffmpeg", nil
		}
		return "", ErrNotFound
	})
	statuses := Check(loc, MediaRequirements())
	if len(statuses) != 2 {
		t.Fatalf("len = %d, want 2", len(statuses))
	}
	if !statuses[0].Available || statuses[0].Path != "/bin/ffmpeg" {
		t.Fatalf("ffmpeg status = %+v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Detail == "" {
		t.Fatalf("ffprobe status = %+v", statuses[1])
	}
	if Ready(statuses) {
		t.Fatalf("Ready should be false when a mandatory tool is missing")
	}
}
