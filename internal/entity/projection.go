package entity

import (
	"time"

	"github.com/addyspiller/prisere/constants"
)

// JobProjection is the JSON shape returned by the create and status
// endpoints. error_message is populated only for failed jobs.
type JobProjection struct {
	JobID                   string     `json:"job_id"`
	Status                  string     `json:"status"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
	BaselineFilename        string     `json:"baseline_filename"`
	RenewalFilename         string     `json:"renewal_filename"`
	Progress                int        `json:"progress"`
	Message                 string     `json:"message"`
	EstimatedCompletionTime *time.Time `json:"estimated_completion_time"`
	ErrorMessage            *string    `json:"error_message"`
}

// ListItem is the per-job shape returned by the listing endpoint.
// TotalChanges stays null unless the job completed.
type ListItem struct {
	JobID            string     `json:"job_id"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	BaselineFilename string     `json:"baseline_filename"`
	RenewalFilename  string     `json:"renewal_filename"`
	TotalChanges     *int       `json:"total_changes"`
	CompanyName      *string    `json:"company_name"`
}

// ResultProjection is the JSON shape returned by the result endpoint.
// Results exist only for completed jobs, so status is always "completed".
type ResultProjection struct {
	JobID             string            `json:"job_id"`
	Status            string            `json:"status"`
	Summary           ResultSummary     `json:"summary"`
	Changes           []CoverageChange  `json:"changes"`
	PremiumComparison PremiumComparison `json:"premium_comparison"`
	SuggestedActions  []SuggestedAction `json:"suggested_actions"`
	Insights          []map[string]any  `json:"educational_insights"`
	Metadata          ResultMetadata    `json:"metadata"`
}

type ResultSummary struct {
	TotalChanges     int            `json:"total_changes"`
	ChangeCategories map[string]int `json:"change_categories"`
}

type ResultMetadata struct {
	AnalysisVersion       string    `json:"analysis_version"`
	ModelVersion          string    `json:"model_version"`
	ProcessingTimeSeconds int       `json:"processing_time_seconds"`
	CompletedAt           time.Time `json:"completed_at"`
}

// Project builds the status/creation response for a job, evaluated at now.
func (j *AnalysisJob) Project(now time.Time) JobProjection {
	var errMsg *string
	if j.Status == constants.JobStatusFailed && j.ErrorMessage != nil {
		errMsg = j.ErrorMessage
	}
	return JobProjection{
		JobID:                   j.ID.String(),
		Status:                  string(j.Status),
		CreatedAt:               j.CreatedAt,
		UpdatedAt:               j.UpdatedAt,
		BaselineFilename:        j.BaselineFilename,
		RenewalFilename:         j.RenewalFilename,
		Progress:                j.Progress,
		Message:                 j.StatusMessage,
		EstimatedCompletionTime: j.EstimatedCompletion(now),
		ErrorMessage:            errMsg,
	}
}

// Project builds the result response. Empty containers are materialized so
// every list and map in the payload is JSON-safe.
func (r *AnalysisResult) Project() ResultProjection {
	changes := r.Changes
	if changes == nil {
		changes = []CoverageChange{}
	}
	categories := r.ChangeCategories
	if categories == nil {
		categories = map[string]int{}
	}
	actions := r.SuggestedActions
	if actions == nil {
		actions = []SuggestedAction{}
	}
	insights := r.EducationalInsights
	if insights == nil {
		insights = []map[string]any{}
	}
	return ResultProjection{
		JobID:  r.JobID.String(),
		Status: "completed",
		Summary: ResultSummary{
			TotalChanges:     r.TotalChanges,
			ChangeCategories: categories,
		},
		Changes:           changes,
		PremiumComparison: r.PremiumComparison,
		SuggestedActions:  actions,
		Insights:          insights,
		Metadata: ResultMetadata{
			AnalysisVersion:       r.AnalysisVersion,
			ModelVersion:          r.ModelVersion,
			ProcessingTimeSeconds: r.ProcessingTimeSeconds,
			CompletedAt:           r.CreatedAt,
		},
	}
}
