package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/addyspiller/prisere/constants"
)

// AnalysisJob tracks one baseline-vs-renewal comparison request end-to-end.
// Lifecycle: pending -> processing -> completed|failed. After creation only
// the job processor mutates status, progress, and timestamps.
type AnalysisJob struct {
	ID               uuid.UUID           `json:"id"`
	UserID           string              `json:"user_id"`
	Status           constants.JobStatus `json:"status"`
	Progress         int                 `json:"progress"`
	StatusMessage    string              `json:"status_message"`
	BaselineKey      string              `json:"baseline_key"`
	RenewalKey       string              `json:"renewal_key"`
	BaselineFilename string              `json:"baseline_filename"`
	RenewalFilename  string              `json:"renewal_filename"`
	ErrorMessage     *string             `json:"error_message,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	StartedAt        *time.Time          `json:"started_at,omitempty"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
	CompanyName      *string             `json:"company_name,omitempty"`
	PolicyType       *string             `json:"policy_type,omitempty"`
}

// NewAnalysisJob builds a pending job for the given owner and blob keys.
func NewAnalysisJob(userID, baselineKey, renewalKey, baselineFilename, renewalFilename string, companyName, policyType *string) *AnalysisJob {
	now := time.Now().UTC()
	return &AnalysisJob{
		ID:               uuid.New(),
		UserID:           userID,
		Status:           constants.JobStatusPending,
		Progress:         0,
		StatusMessage:    "Job created, waiting to start...",
		BaselineKey:      baselineKey,
		RenewalKey:       renewalKey,
		BaselineFilename: baselineFilename,
		RenewalFilename:  renewalFilename,
		CreatedAt:        now,
		UpdatedAt:        now,
		CompanyName:      companyName,
		PolicyType:       policyType,
	}
}

// MarkProcessing transitions pending -> processing, setting started_at.
// Valid exactly once per job.
func (j *AnalysisJob) MarkProcessing() error {
	if j.Status != constants.JobStatusPending {
		return fmt.Errorf("invalid transition to processing from %q", j.Status)
	}
	now := time.Now().UTC()
	j.Status = constants.JobStatusProcessing
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// UpdateProgress advances progress while processing. Progress is clamped to
// [0,100] and never moves backwards.
func (j *AnalysisJob) UpdateProgress(progress int, message string) error {
	if j.Status != constants.JobStatusProcessing {
		return fmt.Errorf("cannot update progress in state %q", j.Status)
	}
	if progress > 100 {
		progress = 100
	}
	if progress > j.Progress {
		j.Progress = progress
	}
	if message != "" {
		j.StatusMessage = message
	}
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted transitions processing -> completed with progress forced to 100.
func (j *AnalysisJob) MarkCompleted() error {
	if j.Status != constants.JobStatusProcessing {
		return fmt.Errorf("invalid transition to completed from %q", j.Status)
	}
	now := time.Now().UTC()
	j.Status = constants.JobStatusCompleted
	j.Progress = 100
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// MarkFailed transitions processing -> failed. Progress is left at its last
// value so a stalled pipeline remains diagnosable.
func (j *AnalysisJob) MarkFailed(errorMessage string) error {
	if j.Status != constants.JobStatusProcessing {
		return fmt.Errorf("invalid transition to failed from %q", j.Status)
	}
	now := time.Now().UTC()
	j.Status = constants.JobStatusFailed
	j.ErrorMessage = &errorMessage
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// EstimatedCompletion returns a non-binding completion hint for UI polling.
// Terminal jobs report their completion timestamp. In-flight jobs linearly
// extrapolate total duration from elapsed time over progress fraction.
func (j *AnalysisJob) EstimatedCompletion(now time.Time) *time.Time {
	if j.Status.Terminal() {
		return j.CompletedAt
	}
	if j.Status == constants.JobStatusProcessing && j.StartedAt != nil && j.Progress > 0 {
		elapsed := now.Sub(*j.StartedAt)
		estimatedTotal := time.Duration(float64(elapsed) / (float64(j.Progress) / 100.0))
		eta := now.Add(estimatedTotal - elapsed)
		return &eta
	}
	return nil
}
