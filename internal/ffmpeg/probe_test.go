package ffmpeg

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type outputRunner struct {
	out  string
	err  error
	name string
	args []string
}

func (r *outputRunner) Start(context.Context, string, ...string) (Process, error) {
	return nil, errors.New("not supported")
}

func (r *outputRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	r.name, r.args = name, args
	return []byte(r.out), r.err
}

func TestProberDuration(t *testing.T) {
	runner := &outputRunner{out: "12.345000\n"}
	p := Prober{Binary: "/opt/ffprobe", Runner: runner}

	got, err := p.Duration(context.Background(), "merged.mp3")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if got != 12.345 {
		t.Fatalf("Duration = %v", got)
	}
	if runner.name != "/opt/ffprobe" || !slices.Equal(runner.args, ProbeDurationArgs("merged.mp3")) {
		t.Fatalf("unexpected invocation %s %v", runner.name, runner.args)
	}
}

func TestProberRejectsNonPositive(t *testing.T) {
	for _, out := range []string{"0", "-1.5", "N/A", "", "nan"} {
		p := Prober{Runner: &outputRunner{out: out}}
		if _, err := p.Duration(context.Background(), "x.mp3"); !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("output %q: expected ErrInvalidDuration, got %v", out, err)
		}
	}
}

func TestProberPropagatesRunError(t *testing.T) {
	boom := errors.New("boom")
	p := Prober{Runner: &outputRunner{err: boom}}
	if _, err := p.Duration(context.Background(), "x.mp3"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped run error, got %v", err)
	}
}
