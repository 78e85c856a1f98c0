package job

import (
	"time"

	"clipmerge/internal/merge"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func statusOf(state merge.State) Status {
	switch state {
	case merge.StateCompleted:
		return StatusCompleted
	case merge.StateCancelled:
		return StatusCancelled
	case merge.StateFailed:
		return StatusFailed
	default:
		return StatusRunning
	}
}

// Job is the tracked record of one merge run.
type Job struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Video       []string   `json:"video"`
	Audio       []string   `json:"audio"`
	Destination string     `json:"destination"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

func (j *Job) clone() Job {
	out := *j
	out.Video = append([]string(nil), j.Video...)
	out.Audio = append([]string(nil), j.Audio...)
	if j.FinishedAt != nil {
		finished := *j.FinishedAt
		out.FinishedAt = &finished
	}
	return out
}

// Request describes a job to submit.
type Request struct {
	Video       []string `json:"video"`
	Audio       []string `json:"audio"`
	Destination string   `json:"destination"`
}

type Options struct {
	DataDir string
	// Store defaults to a file store under DataDir.
	Store       JobStore
	EventBuffer int
}
