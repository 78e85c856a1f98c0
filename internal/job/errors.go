package job

import "errors"

var (
	ErrBusy        = errors.New("a merge job is already running")
	ErrJobNotFound = errors.New("job not found")
	ErrNotRunning  = errors.New("job is not running")

	// errInterrupted is recorded on jobs left running by a previous process.
	errInterrupted = errors.New("interrupted by shutdown")
)
