package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	fileutil "clipmerge/internal/file"
)

// JobStore persists job records across restarts.
type JobStore interface {
	SaveJob(ctx context.Context, j *Job) error
	LoadJobs(ctx context.Context) ([]*Job, error)
	Close() error
}

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// OpenStore opens the store named by kind under dataDir.
func OpenStore(kind, dataDir string) (JobStore, error) { //nolint:ireturn
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", StoreFile:
		return NewFileStore(dataDir), nil
	case StoreSQLite:
		return OpenSQLiteStore(filepath.Join(dataDir, "jobs.db"))
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

// fileStore keeps one status.json per job under <dataDir>/jobs/<id>/.
type fileStore struct {
	dataDir string
}

func NewFileStore(dataDir string) JobStore { //nolint:ireturn
	if dataDir == "" {
		dataDir = "data"
	}
	return &fileStore{dataDir: dataDir}
}

func (s *fileStore) jobDir(id string) string {
	return filepath.Join(s.dataDir, "jobs", id)
}

func (s *fileStore) statusPath(id string) string {
	return filepath.Join(s.jobDir(id), "status.json")
}

func (s *fileStore) SaveJob(_ context.Context, j *Job) error {
	if err := fileutil.EnsureDir(s.jobDir(j.ID)); err != nil {
		return fmt.Errorf("ensure job dir: %w", err)
	}
	return fileutil.WriteJSONAtomic(s.statusPath(j.ID), j) //nolint:wrapcheck
}

func (s *fileStore) LoadJobs(_ context.Context) ([]*Job, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, "jobs"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	jobs := make([]*Job, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b, err := os.ReadFile(s.statusPath(e.Name())) //nolint:gosec // path is controlled by application
		if err != nil {
			continue
		}
		var j Job
		if err := json.Unmarshal(b, &j); err != nil {
			continue
		}
		jobs = append(jobs, &j)
	}
	return jobs, nil
}

func (s *fileStore) Close() error { return nil }
