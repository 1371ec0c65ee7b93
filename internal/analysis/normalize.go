package analysis

import (
	"strings"

	"github.com/google/uuid"

	"github.com/addyspiller/prisere/internal/entity"
	"github.com/addyspiller/prisere/internal/llm"
)

const analysisVersion = "1.0"

// NormalizeChange maps one raw engine change onto the typed record. The
// contract is asymmetric on purpose: string fields collapse to "" so the
// frontend never sees null text, while the numeric fields keep null to
// distinguish "no value" from zero. Page references always come back as a
// pair of non-nil slices.
func NormalizeChange(raw map[string]any) entity.CoverageChange {
	return entity.CoverageChange{
		ID:               getString(raw, "id"),
		Category:         getString(raw, "category"),
		ChangeType:       getString(raw, "change_type"),
		Title:            getString(raw, "title"),
		Description:      getString(raw, "description"),
		BaselineValue:    getString(raw, "baseline_value"),
		RenewalValue:     getString(raw, "renewal_value"),
		ChangeAmount:     getString(raw, "change_amount"),
		PercentageChange: getFloat(raw, "percentage_change"),
		Confidence:       getFloat(raw, "confidence"),
		PageReferences:   getPageReferences(raw["page_references"]),
	}
}

// BuildResult assembles the persisted result from a validated engine
// response. Category counts fall back to "other" for unlabeled changes, the
// overall confidence is the mean of the per-change confidences that were
// supplied, and the first two broker questions rank high priority.
func BuildResult(jobID uuid.UUID, cmp llm.Comparison, modelVersion string, processingTimeSeconds int) *entity.AnalysisResult {
	changes := make([]entity.CoverageChange, 0, len(cmp.Changes))
	categories := make(map[string]int)
	var confSum float64
	var confCount int

	for _, raw := range cmp.Changes {
		ch := NormalizeChange(raw)
		changes = append(changes, ch)

		category := ch.Category
		if category == "" {
			category = "other"
		}
		categories[category]++

		if ch.Confidence != nil {
			confSum += *ch.Confidence
			confCount++
		}
	}

	var confidence *float64
	if confCount > 0 {
		mean := confSum / float64(confCount)
		confidence = &mean
	}

	actions := make([]entity.SuggestedAction, 0, len(cmp.BrokerQuestions))
	for i, q := range cmp.BrokerQuestions {
		priority := "medium"
		if i < 2 {
			priority = "high"
		}
		actions = append(actions, entity.SuggestedAction{
			Category: "broker_review",
			Action:   q,
			Priority: priority,
		})
	}

	return &entity.AnalysisResult{
		JobID:                 jobID,
		Summary:               cmp.Summary,
		TotalChanges:          len(changes),
		ChangeCategories:      categories,
		Changes:               changes,
		PremiumComparison:     normalizePremium(cmp.PremiumComparison),
		SuggestedActions:      actions,
		EducationalInsights:   []map[string]any{},
		ConfidenceScore:       confidence,
		AnalysisVersion:       analysisVersion,
		ModelVersion:          modelVersion,
		ProcessingTimeSeconds: processingTimeSeconds,
	}
}

func normalizePremium(raw map[string]any) entity.PremiumComparison {
	return entity.PremiumComparison{
		BaselinePremium:  getFloat(raw, "baseline_premium"),
		RenewalPremium:   getFloat(raw, "renewal_premium"),
		Difference:       getFloat(raw, "difference"),
		PercentageChange: getFloat(raw, "percentage_change"),
	}
}

// getString fetches a string field, treating absent, null, and non-string
// values as empty.
func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// getFloat fetches a numeric field, preserving null for anything that is not
// a JSON number.
func getFloat(m map[string]any, key string) *float64 {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func getPageReferences(raw any) entity.PageReferences {
	refs := entity.PageReferences{Baseline: []int{}, Renewal: []int{}}
	m, ok := raw.(map[string]any)
	if !ok {
		return refs
	}
	refs.Baseline = getIntList(m["baseline"])
	refs.Renewal = getIntList(m["renewal"])
	return refs
}

func getIntList(raw any) []int {
	out := []int{}
	list, ok := raw.([]any)
	if !ok {
		return out
	}
	for _, v := range list {
		if f, ok := v.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}
