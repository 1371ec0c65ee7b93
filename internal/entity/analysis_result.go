package entity

import (
	"time"

	"github.com/google/uuid"
)

// PageReferences locates a change in both source documents. The slices are
// always non-nil so consumers can range over them without nil checks.
type PageReferences struct {
	Baseline []int `json:"baseline"`
	Renewal  []int `json:"renewal"`
}

// CoverageChange is one normalized change entry. String fields are never
// null in JSON (absent values become ""); the numeric fields stay null when
// the engine did not supply them, so "no value" stays distinguishable from
// zero.
type CoverageChange struct {
	ID               string         `json:"id"`
	Category         string         `json:"category"`
	ChangeType       string         `json:"change_type"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	BaselineValue    string         `json:"baseline_value"`
	RenewalValue     string         `json:"renewal_value"`
	ChangeAmount     string         `json:"change_amount"`
	PercentageChange *float64       `json:"percentage_change"`
	Confidence       *float64       `json:"confidence"`
	PageReferences   PageReferences `json:"page_references"`
}

// PremiumComparison carries the four premium figures. Any of them may be
// absent when the source policies carry no premium data.
type PremiumComparison struct {
	BaselinePremium  *float64 `json:"baseline_premium"`
	RenewalPremium   *float64 `json:"renewal_premium"`
	Difference       *float64 `json:"difference"`
	PercentageChange *float64 `json:"percentage_change"`
}

// SuggestedAction is a broker follow-up derived from the engine's questions.
type SuggestedAction struct {
	Category string `json:"category"`
	Action   string `json:"action"`
	Priority string `json:"priority"`
}

// AnalysisResult is the persisted output of a completed job. It shares its
// identity with the owning AnalysisJob and is written exactly once, in the
// same transaction as the completed transition.
type AnalysisResult struct {
	JobID                 uuid.UUID         `json:"job_id"`
	Summary               string            `json:"summary"`
	TotalChanges          int               `json:"total_changes"`
	ChangeCategories      map[string]int    `json:"change_categories"`
	Changes               []CoverageChange  `json:"changes"`
	PremiumComparison     PremiumComparison `json:"premium_comparison"`
	SuggestedActions      []SuggestedAction `json:"suggested_actions"`
	EducationalInsights   []map[string]any  `json:"educational_insights"`
	ConfidenceScore       *float64          `json:"confidence_score"`
	AnalysisVersion       string            `json:"analysis_version"`
	ModelVersion          string            `json:"model_version"`
	ProcessingTimeSeconds int               `json:"processing_time_seconds"`
	CreatedAt             time.Time         `json:"created_at"`
}
