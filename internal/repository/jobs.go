package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/addyspiller/prisere/internal/common"
	"github.com/addyspiller/prisere/internal/entity"
)

const jobColumns = `id, user_id, status, progress, status_message,
	baseline_key, renewal_key, baseline_filename, renewal_filename,
	error_message, company_name, policy_type,
	created_at, updated_at, started_at, completed_at`

type pgJobsRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewAnalysisJobRepository(pool *pgxpool.Pool, log *slog.Logger) AnalysisJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &pgJobsRepo{pool: pool, log: log}
}

func (r *pgJobsRepo) Create(ctx context.Context, job *entity.AnalysisJob) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analysis_jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		job.ID, job.UserID, job.Status, job.Progress, job.StatusMessage,
		job.BaselineKey, job.RenewalKey, job.BaselineFilename, job.RenewalFilename,
		job.ErrorMessage, job.CompanyName, job.PolicyType,
		job.CreatedAt, job.UpdatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		r.log.Error("job.create.failed", "job_id", job.ID, "error", err)
		return common.WrapError(err, "create analysis job")
	}
	r.log.Info("job.create.ok", "job_id", job.ID, "user_id", job.UserID)
	return nil
}

func scanJob(row pgx.Row) (*entity.AnalysisJob, error) {
	var j entity.AnalysisJob
	err := row.Scan(
		&j.ID, &j.UserID, &j.Status, &j.Progress, &j.StatusMessage,
		&j.BaselineKey, &j.RenewalKey, &j.BaselineFilename, &j.RenewalFilename,
		&j.ErrorMessage, &j.CompanyName, &j.PolicyType,
		&j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.WrapError(err, "scan analysis job")
	}
	return &j, nil
}

func (r *pgJobsRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.AnalysisJob, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (r *pgJobsRepo) GetForUser(ctx context.Context, id uuid.UUID, userID string) (*entity.AnalysisJob, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1 AND user_id = $2`, id, userID)
	return scanJob(row)
}

func (r *pgJobsRepo) ListForUser(ctx context.Context, userID string) ([]entity.ListItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT j.id, j.status, j.created_at, j.completed_at,
		       j.baseline_filename, j.renewal_filename, j.company_name,
		       r.total_changes
		FROM analysis_jobs j
		LEFT JOIN analysis_results r ON r.job_id = j.id
		WHERE j.user_id = $1
		ORDER BY j.created_at DESC`, userID)
	if err != nil {
		return nil, common.WrapError(err, "list analysis jobs")
	}
	defer rows.Close()

	items := make([]entity.ListItem, 0, 16)
	for rows.Next() {
		var (
			id     uuid.UUID
			item   entity.ListItem
			status string
		)
		if err := rows.Scan(&id, &status, &item.CreatedAt, &item.CompletedAt,
			&item.BaselineFilename, &item.RenewalFilename, &item.CompanyName,
			&item.TotalChanges); err != nil {
			return nil, common.WrapError(err, "scan analysis job list item")
		}
		item.JobID = id.String()
		item.Status = status
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *pgJobsRepo) DeleteForUser(ctx context.Context, id uuid.UUID, userID string) error {
	// The result row goes with the job via ON DELETE CASCADE.
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM analysis_jobs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.log.Error("job.delete.failed", "job_id", id, "error", err)
		return common.WrapError(err, "delete analysis job")
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	r.log.Info("job.delete.ok", "job_id", id, "user_id", userID)
	return nil
}

func (r *pgJobsRepo) MarkProcessing(ctx context.Context, id uuid.UUID, progress int, message string) error {
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE analysis_jobs
		SET status = 'processing', started_at = $2, progress = $3,
		    status_message = $4, updated_at = $2
		WHERE id = $1 AND status = 'pending'`,
		id, now, progress, message)
	if err != nil {
		r.log.Error("job.mark_processing.failed", "job_id", id, "error", err)
		return common.WrapError(err, "mark processing")
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id, "processing")
	}
	r.log.Info("job.mark_processing.ok", "job_id", id)
	return nil
}

func (r *pgJobsRepo) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, message string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE analysis_jobs
		SET progress = GREATEST(progress, LEAST($2, 100)),
		    status_message = CASE WHEN $3 = '' THEN status_message ELSE $3 END,
		    updated_at = $4
		WHERE id = $1 AND status = 'processing'`,
		id, progress, message, time.Now().UTC())
	if err != nil {
		r.log.Error("job.progress.failed", "job_id", id, "error", err)
		return common.WrapError(err, "update progress")
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id, "processing progress")
	}
	r.log.Debug("job.progress.ok", "job_id", id, "progress", progress, "message", message)
	return nil
}

func (r *pgJobsRepo) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	now := time.Now().UTC()
	// Progress deliberately left at its last value.
	tag, err := r.pool.Exec(ctx, `
		UPDATE analysis_jobs
		SET status = 'failed', error_message = $2, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'processing'`,
		id, errorMessage, now)
	if err != nil {
		r.log.Error("job.mark_failed.failed", "job_id", id, "error", err)
		return common.WrapError(err, "mark failed")
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id, "failed")
	}
	r.log.Warn("job.mark_failed.ok", "job_id", id, "error_message", errorMessage)
	return nil
}

func (r *pgJobsRepo) Complete(ctx context.Context, id uuid.UUID, result *entity.AnalysisResult) error {
	now := time.Now().UTC()

	changes, err := json.Marshal(result.Changes)
	if err != nil {
		return common.WrapError(err, "encode changes")
	}
	categories, err := json.Marshal(result.ChangeCategories)
	if err != nil {
		return common.WrapError(err, "encode change categories")
	}
	premium, err := json.Marshal(result.PremiumComparison)
	if err != nil {
		return common.WrapError(err, "encode premium comparison")
	}
	actions, err := json.Marshal(result.SuggestedActions)
	if err != nil {
		return common.WrapError(err, "encode suggested actions")
	}
	insights, err := json.Marshal(result.EducationalInsights)
	if err != nil {
		return common.WrapError(err, "encode educational insights")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return common.WrapError(err, "begin complete")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE analysis_jobs
		SET status = 'completed', progress = 100,
		    status_message = 'Analysis completed', completed_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'processing'`,
		id, now)
	if err != nil {
		r.log.Error("job.complete.failed", "job_id", id, "error", err)
		return common.WrapError(err, "mark completed")
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id, "completed")
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO analysis_results (
			job_id, summary, total_changes, change_categories, changes,
			premium_comparison, suggested_actions, educational_insights,
			confidence_score, analysis_version, model_version,
			processing_time_seconds, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		id, result.Summary, result.TotalChanges, categories, changes,
		premium, actions, insights,
		result.ConfidenceScore, result.AnalysisVersion, result.ModelVersion,
		result.ProcessingTimeSeconds, now,
	); err != nil {
		r.log.Error("result.insert.failed", "job_id", id, "error", err)
		return common.WrapError(err, "insert analysis result")
	}

	if err := tx.Commit(ctx); err != nil {
		return common.WrapError(err, "commit complete")
	}
	r.log.Info("job.complete.ok", "job_id", id, "total_changes", result.TotalChanges)
	return nil
}

// transitionConflict distinguishes a vanished row from an invalid source
// state so callers get an accurate error.
func (r *pgJobsRepo) transitionConflict(ctx context.Context, id uuid.UUID, target string) error {
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM analysis_jobs WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return common.WrapError(err, "inspect job status")
	}
	return fmt.Errorf("invalid transition to %s from %q: %w", target, status, common.ErrConflict)
}
