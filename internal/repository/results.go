package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/addyspiller/prisere/internal/common"
	"github.com/addyspiller/prisere/internal/entity"
)

type pgResultsRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewAnalysisResultRepository(pool *pgxpool.Pool, log *slog.Logger) AnalysisResultRepository {
	if log == nil {
		log = slog.Default()
	}
	return &pgResultsRepo{pool: pool, log: log}
}

func (r *pgResultsRepo) GetByJobID(ctx context.Context, jobID uuid.UUID) (*entity.AnalysisResult, error) {
	var (
		res        entity.AnalysisResult
		categories []byte
		changes    []byte
		premium    []byte
		actions    []byte
		insights   []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT job_id, summary, total_changes, change_categories, changes,
		       premium_comparison, suggested_actions, educational_insights,
		       confidence_score, analysis_version, model_version,
		       processing_time_seconds, created_at
		FROM analysis_results WHERE job_id = $1`, jobID,
	).Scan(
		&res.JobID, &res.Summary, &res.TotalChanges, &categories, &changes,
		&premium, &actions, &insights,
		&res.ConfidenceScore, &res.AnalysisVersion, &res.ModelVersion,
		&res.ProcessingTimeSeconds, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.WrapError(err, "get analysis result")
	}

	if err := decodeJSON(categories, &res.ChangeCategories); err != nil {
		return nil, common.WrapError(err, "decode change categories")
	}
	if err := decodeJSON(changes, &res.Changes); err != nil {
		return nil, common.WrapError(err, "decode changes")
	}
	if err := decodeJSON(premium, &res.PremiumComparison); err != nil {
		return nil, common.WrapError(err, "decode premium comparison")
	}
	if err := decodeJSON(actions, &res.SuggestedActions); err != nil {
		return nil, common.WrapError(err, "decode suggested actions")
	}
	if err := decodeJSON(insights, &res.EducationalInsights); err != nil {
		return nil, common.WrapError(err, "decode educational insights")
	}
	return &res, nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
