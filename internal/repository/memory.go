package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/addyspiller/prisere/internal/common"
	"github.com/addyspiller/prisere/internal/entity"
)

// MemoryStore is an in-process implementation of both repository interfaces.
// It backs unit tests and local runs without Postgres; the lifecycle guards
// mirror the SQL store exactly.
type MemoryStore struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*entity.AnalysisJob
	results map[uuid.UUID]*entity.AnalysisResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[uuid.UUID]*entity.AnalysisJob),
		results: make(map[uuid.UUID]*entity.AnalysisResult),
	}
}

func (m *MemoryStore) Create(_ context.Context, job *entity.AnalysisJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*entity.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MemoryStore) GetForUser(_ context.Context, id uuid.UUID, userID string) (*entity.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.UserID != userID {
		return nil, common.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MemoryStore) ListForUser(_ context.Context, userID string) ([]entity.ListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]entity.ListItem, 0, 8)
	for _, job := range m.jobs {
		if job.UserID != userID {
			continue
		}
		item := entity.ListItem{
			JobID:            job.ID.String(),
			Status:           string(job.Status),
			CreatedAt:        job.CreatedAt,
			CompletedAt:      job.CompletedAt,
			BaselineFilename: job.BaselineFilename,
			RenewalFilename:  job.RenewalFilename,
			CompanyName:      job.CompanyName,
		}
		if res, ok := m.results[job.ID]; ok {
			tc := res.TotalChanges
			item.TotalChanges = &tc
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (m *MemoryStore) DeleteForUser(_ context.Context, id uuid.UUID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.UserID != userID {
		return common.ErrNotFound
	}
	delete(m.jobs, id)
	delete(m.results, id)
	return nil
}

func (m *MemoryStore) MarkProcessing(_ context.Context, id uuid.UUID, progress int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	if err := job.MarkProcessing(); err != nil {
		return err
	}
	return job.UpdateProgress(progress, message)
}

func (m *MemoryStore) UpdateProgress(_ context.Context, id uuid.UUID, progress int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	return job.UpdateProgress(progress, message)
}

func (m *MemoryStore) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	return job.MarkFailed(errorMessage)
}

func (m *MemoryStore) Complete(_ context.Context, id uuid.UUID, result *entity.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	if err := job.MarkCompleted(); err != nil {
		return err
	}
	job.StatusMessage = "Analysis completed"
	cp := *result
	cp.JobID = id
	if cp.CreatedAt.IsZero() && job.CompletedAt != nil {
		cp.CreatedAt = *job.CompletedAt
	}
	m.results[id] = &cp
	return nil
}

func (m *MemoryStore) GetByJobID(_ context.Context, jobID uuid.UUID) (*entity.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[jobID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *res
	return &cp, nil
}
