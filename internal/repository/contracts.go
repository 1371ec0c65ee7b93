package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/addyspiller/prisere/internal/entity"
)

// AnalysisJobRepository persists analysis jobs and drives their lifecycle
// transitions. The transition methods are guarded: they only apply when the
// row is in the expected source state, so an out-of-order call can never
// corrupt a terminal job.
type AnalysisJobRepository interface {
	Create(ctx context.Context, job *entity.AnalysisJob) error

	// GetByID is owner-unscoped; only the job processor uses it.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.AnalysisJob, error)

	// GetForUser and the methods below are scoped to the owning user.
	GetForUser(ctx context.Context, id uuid.UUID, userID string) (*entity.AnalysisJob, error)
	ListForUser(ctx context.Context, userID string) ([]entity.ListItem, error)

	// DeleteForUser removes the job and, by cascade, its result.
	// Returns common.ErrNotFound when no row matches (idempotent delete).
	DeleteForUser(ctx context.Context, id uuid.UUID, userID string) error

	// MarkProcessing applies pending -> processing with the initial progress.
	MarkProcessing(ctx context.Context, id uuid.UUID, progress int, message string) error

	// UpdateProgress advances progress (monotonic) while processing.
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int, message string) error

	// MarkFailed applies processing -> failed, keeping the last progress.
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error

	// Complete applies processing -> completed and persists the result in
	// the same transaction. A result row must never exist without the
	// completed status, and vice versa.
	Complete(ctx context.Context, id uuid.UUID, result *entity.AnalysisResult) error
}

// AnalysisResultRepository reads persisted results. Results are written only
// through AnalysisJobRepository.Complete.
type AnalysisResultRepository interface {
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*entity.AnalysisResult, error)
}
