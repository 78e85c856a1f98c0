package merge

import (
	"context"
	"errors"
	"testing"
)

func TestHandleEmitKeepsLatestValue(t *testing.T) {
	h := newHandle(context.Background(), Job{})
	h.emit(5)
	h.emit(3)
	h.emit(7)

	if got := <-h.Progress(); got != 7 {
		t.Fatalf("progress = %d, want 7", got)
	}
	select {
	case got := <-h.Progress():
		t.Fatalf("unexpected extra value %d", got)
	default:
	}
}

func TestHandleCancelStopsProgressAndBlocksCommit(t *testing.T) {
	h := newHandle(context.Background(), Job{})
	h.emit(10)
	h.Cancel()
	h.Cancel()
	h.emit(50)

	if !h.stopped() {
		t.Fatalf("expected stopped after cancel")
	}
	if h.commit() {
		t.Fatalf("commit must fail after cancel")
	}
	if got := <-h.Progress(); got != 10 {
		t.Fatalf("progress = %d, want 10", got)
	}
}

func TestHandleCommitIgnoresLaterCancel(t *testing.T) {
	h := newHandle(context.Background(), Job{})
	if !h.commit() {
		t.Fatalf("commit failed")
	}
	h.Cancel()
	if h.stopped() {
		t.Fatalf("cancel after commit must be a no-op")
	}
	h.emit(100)
	h.finish(Outcome{State: StateCompleted, Output: "out.mp4"})

	var last int
	for pct := range h.Progress() {
		last = pct
	}
	if last != 100 {
		t.Fatalf("last = %d, want 100", last)
	}
	if out := h.Wait(); !out.Succeeded() {
		t.Fatalf("expected success, got %+v", out)
	}
}

func TestStageErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := error(&StageError{Stage: StageCompose, Kind: ErrProcessFailure, Message: "video composition failed", Err: cause})

	if !errors.Is(err, ErrProcessFailure) || !errors.Is(err, cause) {
		t.Fatalf("errors.Is failed for %v", err)
	}
	if got, want := err.Error(), "compose_video: video composition failed: boom"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
