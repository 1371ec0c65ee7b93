package constants

// JobStatus is the canonical status for rows in analysis_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending    JobStatus = "pending"    // created, waiting for the processor
	JobStatusProcessing JobStatus = "processing" // pipeline in progress
	JobStatusCompleted  JobStatus = "completed"  // terminal success, result row exists
	JobStatusFailed     JobStatus = "failed"     // terminal failure, error_message set
)

// Terminal reports whether no further lifecycle transition is valid.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
