package merge

import "fmt"

// Job is one merge request. Video[0] is the intro clip and Video[1] the body
// clip looped under the audio; a single video serves as both. Audio is
// concatenated in order.
type Job struct {
	ID          string
	Video       []string
	Audio       []string
	Destination string
}

func (j Job) clone() Job {
	j.Video = append([]string(nil), j.Video...)
	j.Audio = append([]string(nil), j.Audio...)
	return j
}

// Intro returns the clip played once at the start.
func (j Job) Intro() string {
	if len(j.Video) == 0 {
		return ""
	}
	return j.Video[0]
}

// Body returns the clip looped after the intro.
func (j Job) Body() string {
	if len(j.Video) > 1 {
		return j.Video[1]
	}
	return j.Intro()
}

// State is the lifecycle position of one pipeline run.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Outcome is the single terminal result of a job.
type Outcome struct {
	State  State
	Output string
	Err    error
}

// Succeeded reports whether the job produced its output.
func (o Outcome) Succeeded() bool { return o.State == StateCompleted }

// Message is a human-readable summary of the outcome.
func (o Outcome) Message() string {
	switch o.State {
	case StateCompleted:
		return "video created: " + o.Output
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		if o.Err != nil {
			return o.Err.Error()
		}
		return "failed"
	default:
		return o.State.String()
	}
}
