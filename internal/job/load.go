package job

import (
	"context"
	"fmt"
	"time"
)

// LoadFromDisk loads persisted jobs into memory. Jobs still marked running
// belong to a previous process and are marked failed.
func (m *Manager) LoadFromDisk() error {
	if m.store == nil {
		return nil
	}
	loaded, err := m.store.LoadJobs(context.Background())
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	for _, j := range loaded {
		if j.Status == StatusRunning {
			now := time.Now().UTC()
			j.Status = StatusFailed
			j.Error = errInterrupted.Error()
			j.UpdatedAt = now
			j.FinishedAt = &now
			m.persist(j)
		}
		m.mu.Lock()
		m.jobs[j.ID] = j
		m.mu.Unlock()
	}
	return nil
}
