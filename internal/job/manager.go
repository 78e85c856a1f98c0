package job

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clipmerge/internal/merge"
)

// Run is a started merge as seen by the manager.
type Run interface {
	// Job is the job as accepted, with its destination resolved.
	Job() merge.Job
	Progress() <-chan int
	Wait() merge.Outcome
	Cancel()
}

// Starter launches a merge run.
type Starter func(ctx context.Context, j merge.Job) (Run, error)

// PipelineStarter adapts a merge pipeline to Starter.
func PipelineStarter(p *merge.Pipeline) Starter {
	return func(ctx context.Context, j merge.Job) (Run, error) {
		h, err := p.Start(ctx, j)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}

// Manager tracks merge jobs and runs at most one at a time.
type Manager struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	runs      map[string]Run
	semaphore chan struct{}
	start     Starter
	workersWG sync.WaitGroup
	baseCtx   context.Context
	store     JobStore
	events    *EventBus
}

// NewManager creates a manager that runs jobs through start.
func NewManager(start Starter, opts Options) *Manager {
	store := opts.Store
	if store == nil {
		store = NewFileStore(opts.DataDir)
	}
	return &Manager{
		jobs:      make(map[string]*Job),
		runs:      make(map[string]Run),
		semaphore: make(chan struct{}, 1),
		start:     start,
		baseCtx:   context.Background(),
		store:     store,
		events:    NewEventBus(opts.EventBuffer),
	}
}

// IsBusy reports whether a job is running.
func (m *Manager) IsBusy() bool {
	return len(m.semaphore) >= cap(m.semaphore)
}

// Submit starts a new job. It fails with ErrBusy while another job runs and
// with the pipeline's validation error for invalid requests; neither leaves
// a record behind.
func (m *Manager) Submit(req Request) (Job, error) {
	select {
	case m.semaphore <- struct{}{}:
	default:
		return Job{}, ErrBusy
	}

	id := uuid.NewString()
	m.mu.RLock()
	ctx, start := m.baseCtx, m.start
	m.mu.RUnlock()

	run, err := start(ctx, merge.Job{
		ID:          id,
		Video:       req.Video,
		Audio:       req.Audio,
		Destination: req.Destination,
	})
	if err != nil {
		<-m.semaphore
		return Job{}, err
	}

	now := time.Now().UTC()
	j := &Job{
		ID:          id,
		Status:      StatusRunning,
		Video:       append([]string(nil), req.Video...),
		Audio:       append([]string(nil), req.Audio...),
		Destination: run.Job().Destination,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	m.mu.Lock()
	m.jobs[id] = j
	m.runs[id] = run
	snapshot := j.clone()
	m.mu.Unlock()

	m.persist(&snapshot)
	m.events.Publish(Event{JobID: id, Type: EventTypeStatus, Status: StatusRunning})
	log.Info().Str("job_id", id).Int("videos", len(req.Video)).Int("audios", len(req.Audio)).Msg("job started")

	m.workersWG.Add(1)
	go func() {
		defer m.workersWG.Done()
		defer func() { <-m.semaphore }()
		m.track(id, run)
	}()
	return snapshot, nil
}

func (m *Manager) track(id string, run Run) {
	for pct := range run.Progress() {
		m.mu.Lock()
		j := m.jobs[id]
		j.Progress = pct
		j.UpdatedAt = time.Now().UTC()
		m.mu.Unlock()
		m.events.Publish(Event{JobID: id, Type: EventTypeProgress, Status: StatusRunning, Progress: pct})
	}

	outcome := run.Wait()
	finished := time.Now().UTC()

	m.mu.Lock()
	j := m.jobs[id]
	j.Status = statusOf(outcome.State)
	j.UpdatedAt = finished
	j.FinishedAt = &finished
	j.Output = outcome.Output
	if outcome.Err != nil {
		j.Error = outcome.Err.Error()
	}
	delete(m.runs, id)
	snapshot := j.clone()
	m.mu.Unlock()

	m.persist(&snapshot)
	event := Event{JobID: id, Type: EventTypeResult, Status: snapshot.Status, Progress: snapshot.Progress, Message: outcome.Message()}
	if snapshot.Status == StatusFailed {
		event.Type = EventTypeError
	}
	m.events.Publish(event)
	log.Info().Str("job_id", id).Str("status", string(snapshot.Status)).Msg("job finished")
}

// Cancel requests cancellation of a running job.
func (m *Manager) Cancel(id string) error {
	m.mu.RLock()
	_, known := m.jobs[id]
	run, running := m.runs[id]
	m.mu.RUnlock()
	if !known {
		return ErrJobNotFound
	}
	if !running {
		return ErrNotRunning
	}
	m.events.Publish(Event{JobID: id, Type: EventTypeStatus, Status: StatusRunning, Message: "cancel requested"})
	run.Cancel()
	log.Info().Str("job_id", id).Msg("cancel requested")
	return nil
}

// CancelAll requests cancellation of every running job.
func (m *Manager) CancelAll() {
	m.mu.RLock()
	runs := make([]Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	m.mu.RUnlock()
	for _, run := range runs {
		run.Cancel()
	}
}

// Get returns a copy of the job.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return j.clone(), true
}

// List returns all jobs, oldest first.
func (m *Manager) List() []Job {
	m.mu.RLock()
	out := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.clone())
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Events returns the job's retained events after seq.
func (m *Manager) Events(id string, since int64) ([]Event, error) {
	if _, ok := m.Get(id); !ok {
		return nil, ErrJobNotFound
	}
	return m.events.Since(id, since), nil
}

// SetBaseContext sets the parent context of new runs. Cancelling it cancels
// them.
func (m *Manager) SetBaseContext(ctx context.Context) {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
}

// UseStarter replaces the run starter. Intended for test setup only.
func (m *Manager) UseStarter(start Starter) {
	m.mu.Lock()
	m.start = start
	m.mu.Unlock()
}

// WaitAll blocks until all in-flight jobs finish or the context is done.
// Returns true if all jobs finished.
func (m *Manager) WaitAll(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		m.workersWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close releases the store.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

func (m *Manager) persist(j *Job) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveJob(context.Background(), j); err != nil {
		log.Warn().Str("job_id", j.ID).Err(err).Msg("persist job failed")
	}
}
