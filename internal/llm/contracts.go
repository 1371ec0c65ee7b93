package llm

import "context"

// CompareRequest carries the extracted text of both policy documents plus
// optional hints the caller may know about the account.
type CompareRequest struct {
	BaselineText string
	RenewalText  string
	CompanyName  string
	PolicyType   string
}

// Comparison is the engine output after schema validation. Changes stay as
// raw maps here; the analysis package normalizes them into typed records and
// is tolerant of per-field noise the schema does not police.
type Comparison struct {
	Summary           string           `json:"summary"`
	Changes           []map[string]any `json:"coverage_changes"`
	PremiumComparison map[string]any   `json:"premium_comparison"`
	BrokerQuestions   []string         `json:"broker_questions"`
}

// ComparisonEngine is the interface the job pipeline depends on.
type ComparisonEngine interface {
	Compare(ctx context.Context, req CompareRequest) (Comparison, []byte /*rawJSON*/, error)
	Model() string
}
