package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clipmerge/internal/merge"
)

type fakeRun struct {
	job      merge.Job
	progress chan int
	outcome  merge.Outcome

	mu        sync.Mutex
	cancelled bool
}

func newFakeRun(j merge.Job) *fakeRun {
	return &fakeRun{job: j, progress: make(chan int, 8)}
}

func (r *fakeRun) Job() merge.Job       { return r.job }
func (r *fakeRun) Progress() <-chan int { return r.progress }

func (r *fakeRun) Wait() merge.Outcome {
	return r.outcome
}

func (r *fakeRun) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.cancelled {
		r.cancelled = true
		r.finish(merge.Outcome{State: merge.StateCancelled})
	}
}

func (r *fakeRun) finish(out merge.Outcome) {
	r.outcome = out
	close(r.progress)
}

type fakeStarter struct {
	mu   sync.Mutex
	runs []*fakeRun
	err  error
}

func (s *fakeStarter) start(_ context.Context, j merge.Job) (Run, error) {
	if s.err != nil {
		return nil, s.err
	}
	run := newFakeRun(j)
	s.mu.Lock()
	s.runs = append(s.runs, run)
	s.mu.Unlock()
	return run, nil
}

func (s *fakeStarter) last() *fakeRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[len(s.runs)-1]
}

func newTestManager(t *testing.T) (*Manager, *fakeStarter) {
	t.Helper()
	starter := &fakeStarter{}
	m := NewManager(starter.start, Options{DataDir: t.TempDir()})
	t.Cleanup(func() { _ = m.Close() })
	return m, starter
}

func request() Request {
	return Request{Video: []string{"intro.mp4"}, Audio: []string{"1.mp3", "2.mp3"}, Destination: "/out/video.mp4"}
}

func waitFinished(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !m.WaitAll(ctx) {
		t.Fatalf("timeout waiting for jobs")
	}
}

func TestSubmitTracksProgressToCompletion(t *testing.T) {
	m, starter := newTestManager(t)

	j, err := m.Submit(request())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if j.Status != StatusRunning || j.ID == "" {
		t.Fatalf("unexpected job %+v", j)
	}
	if !m.IsBusy() {
		t.Fatalf("expected manager busy while job runs")
	}

	run := starter.last()
	if run.job.ID != j.ID {
		t.Fatalf("run id %q, want %q", run.job.ID, j.ID)
	}
	run.progress <- 2
	run.progress <- 55
	run.progress <- 100
	run.finish(merge.Outcome{State: merge.StateCompleted, Output: "/out/video.mp4"})
	waitFinished(t, m)

	got, ok := m.Get(j.ID)
	if !ok {
		t.Fatalf("job not found")
	}
	if got.Status != StatusCompleted || got.Progress != 100 || got.Output != "/out/video.mp4" {
		t.Fatalf("unexpected final job %+v", got)
	}
	if got.FinishedAt == nil {
		t.Fatalf("finished_at not set")
	}
	if m.IsBusy() {
		t.Fatalf("manager still busy after completion")
	}

	events, err := m.Events(j.ID, 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d: %+v", len(events), events)
	}
	if last := events[len(events)-1]; last.Type != EventTypeResult || last.Status != StatusCompleted {
		t.Fatalf("unexpected last event %+v", last)
	}
	tail, _ := m.Events(j.ID, events[2].Seq)
	if len(tail) != 2 {
		t.Fatalf("expected 2 events after seq %d, got %d", events[2].Seq, len(tail))
	}
}

func TestSubmitRejectsWhileBusy(t *testing.T) {
	m, starter := newTestManager(t)

	if _, err := m.Submit(request()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := m.Submit(request()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if len(m.List()) != 1 {
		t.Fatalf("rejected submission left a record")
	}

	starter.last().finish(merge.Outcome{State: merge.StateCompleted})
	waitFinished(t, m)
	if _, err := m.Submit(request()); err != nil {
		t.Fatalf("submit after completion: %v", err)
	}
	starter.last().finish(merge.Outcome{State: merge.StateCompleted})
	waitFinished(t, m)
}

func TestSubmitInvalidReleasesSlot(t *testing.T) {
	m, starter := newTestManager(t)
	starter.err = merge.ErrInvalidInput

	if _, err := m.Submit(Request{}); !errors.Is(err, merge.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if m.IsBusy() || len(m.List()) != 0 {
		t.Fatalf("invalid submission must not occupy the slot or leave a record")
	}
}

func TestCancel(t *testing.T) {
	m, starter := newTestManager(t)

	if err := m.Cancel("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	j, err := m.Submit(request())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.Cancel(j.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitFinished(t, m)

	if !starter.last().cancelled {
		t.Fatalf("run not cancelled")
	}
	got, _ := m.Get(j.ID)
	if got.Status != StatusCancelled || got.Error != "" {
		t.Fatalf("unexpected job after cancel %+v", got)
	}
	if err := m.Cancel(j.ID); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestFailedOutcomeRecordsError(t *testing.T) {
	m, starter := newTestManager(t)
	j, err := m.Submit(request())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	starter.last().finish(merge.Outcome{State: merge.StateFailed, Err: merge.ErrProbeFailure})
	waitFinished(t, m)

	got, _ := m.Get(j.ID)
	if got.Status != StatusFailed || got.Error != merge.ErrProbeFailure.Error() {
		t.Fatalf("unexpected failed job %+v", got)
	}
	events, _ := m.Events(j.ID, 0)
	if events[len(events)-1].Type != EventTypeError {
		t.Fatalf("expected error event, got %+v", events[len(events)-1])
	}
}

func TestPersistAndLoadFromDisk(t *testing.T) {
	for _, kind := range []string{StoreFile, StoreSQLite} {
		t.Run(kind, func(t *testing.T) {
			dataDir := t.TempDir()
			store, err := OpenStore(kind, dataDir)
			if err != nil {
				t.Fatalf("open store: %v", err)
			}
			now := time.Now().UTC()
			j1 := &Job{ID: "j1", Status: StatusRunning, Progress: 40, CreatedAt: now, UpdatedAt: now}
			j2 := &Job{ID: "j2", Status: StatusCompleted, Progress: 100, Output: "/out.mp4", CreatedAt: now.Add(time.Second), UpdatedAt: now}
			for _, j := range []*Job{j1, j2} {
				if err := store.SaveJob(context.Background(), j); err != nil {
					t.Fatalf("save %s: %v", j.ID, err)
				}
			}
			j2.Progress = 100
			if err := store.SaveJob(context.Background(), j2); err != nil {
				t.Fatalf("resave: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}

			reopened, err := OpenStore(kind, dataDir)
			if err != nil {
				t.Fatalf("reopen store: %v", err)
			}
			m := NewManager(nil, Options{Store: reopened})
			defer m.Close()
			if err := m.LoadFromDisk(); err != nil {
				t.Fatalf("load: %v", err)
			}
			if got, ok := m.Get("j1"); !ok || got.Status != StatusFailed || got.Error == "" {
				t.Fatalf("expected j1 failed after load, got %+v ok=%v", got, ok)
			}
			if got, ok := m.Get("j2"); !ok || got.Status != StatusCompleted || got.Output != "/out.mp4" {
				t.Fatalf("expected j2 completed after load, got %+v ok=%v", got, ok)
			}
			if list := m.List(); len(list) != 2 || list[0].ID != "j1" {
				t.Fatalf("unexpected list %+v", list)
			}
		})
	}
}

func TestOpenStoreRejectsUnknownKind(t *testing.T) {
	if _, err := OpenStore("postgres", t.TempDir()); err == nil {
		t.Fatalf("expected error for unknown store")
	}
}

func TestEventBusTrimsOldEvents(t *testing.T) {
	bus := NewEventBus(2)
	for i := 0; i < 3; i++ {
		bus.Publish(Event{JobID: "a", Type: EventTypeProgress, Progress: i})
	}
	bus.Publish(Event{JobID: "b", Type: EventTypeStatus})

	if got := bus.Since("", 0); len(got) != 2 || got[0].Seq != 3 {
		t.Fatalf("unexpected retained events %+v", got)
	}
	if got := bus.Since("a", 0); len(got) != 1 || got[0].Progress != 2 {
		t.Fatalf("unexpected events for a %+v", got)
	}
	if bus.LastSeq() != 4 {
		t.Fatalf("last seq = %d", bus.LastSeq())
	}
}
