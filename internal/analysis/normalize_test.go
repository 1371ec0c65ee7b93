package analysis

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addyspiller/prisere/internal/llm"
)

func TestNormalizeChangeStringsNeverNull(t *testing.T) {
	ch := NormalizeChange(map[string]any{
		"category":    nil,
		"title":       "Wind deductible",
		"description": 42, // wrong type
	})
	assert.Equal(t, "", ch.Category)
	assert.Equal(t, "Wind deductible", ch.Title)
	assert.Equal(t, "", ch.Description)
	assert.Equal(t, "", ch.BaselineValue)
	assert.Equal(t, "", ch.ChangeAmount)
}

func TestNormalizeChangeNumericsKeepNull(t *testing.T) {
	ch := NormalizeChange(map[string]any{
		"percentage_change": 12.5,
		"confidence":        nil,
	})
	require.NotNil(t, ch.PercentageChange)
	assert.Equal(t, 12.5, *ch.PercentageChange)
	assert.Nil(t, ch.Confidence)

	// Non-numeric noise stays null rather than becoming zero.
	ch = NormalizeChange(map[string]any{"percentage_change": "twelve"})
	assert.Nil(t, ch.PercentageChange)
}

func TestNormalizeChangePageReferences(t *testing.T) {
	// Absent.
	ch := NormalizeChange(map[string]any{})
	assert.Equal(t, []int{}, ch.PageReferences.Baseline)
	assert.Equal(t, []int{}, ch.PageReferences.Renewal)

	// Malformed: not an object.
	ch = NormalizeChange(map[string]any{"page_references": "page 3"})
	assert.Equal(t, []int{}, ch.PageReferences.Baseline)

	// Valid, with JSON numbers arriving as float64.
	ch = NormalizeChange(map[string]any{
		"page_references": map[string]any{
			"baseline": []any{3.0, 4.0},
			"renewal":  []any{5.0},
		},
	})
	assert.Equal(t, []int{3, 4}, ch.PageReferences.Baseline)
	assert.Equal(t, []int{5}, ch.PageReferences.Renewal)

	// One side malformed, the other intact.
	ch = NormalizeChange(map[string]any{
		"page_references": map[string]any{
			"baseline": "three",
			"renewal":  []any{7.0},
		},
	})
	assert.Equal(t, []int{}, ch.PageReferences.Baseline)
	assert.Equal(t, []int{7}, ch.PageReferences.Renewal)
}

func TestBuildResultCategoryHistogram(t *testing.T) {
	res := BuildResult(uuid.New(), llm.Comparison{
		Summary: "s",
		Changes: []map[string]any{
			{"category": "premium"},
			{"category": "premium"},
			{"category": "coverage"},
			{}, // unlabeled falls into "other"
		},
	}, "test-model", 30)

	assert.Equal(t, 4, res.TotalChanges)
	assert.Equal(t, map[string]int{"premium": 2, "coverage": 1, "other": 1}, res.ChangeCategories)
	assert.Equal(t, "1.0", res.AnalysisVersion)
	assert.Equal(t, "test-model", res.ModelVersion)
	assert.Equal(t, 30, res.ProcessingTimeSeconds)
}

func TestBuildResultConfidenceMean(t *testing.T) {
	res := BuildResult(uuid.New(), llm.Comparison{
		Changes: []map[string]any{
			{"confidence": 0.8},
			{"confidence": 0.6},
			{}, // no confidence, excluded from the mean
		},
	}, "m", 0)
	require.NotNil(t, res.ConfidenceScore)
	assert.InDelta(t, 0.7, *res.ConfidenceScore, 1e-9)

	// No confidences at all keeps the overall score null.
	res = BuildResult(uuid.New(), llm.Comparison{
		Changes: []map[string]any{{}, {}},
	}, "m", 0)
	assert.Nil(t, res.ConfidenceScore)
}

func TestBuildResultSuggestedActionPriorities(t *testing.T) {
	res := BuildResult(uuid.New(), llm.Comparison{
		BrokerQuestions: []string{"q1", "q2", "q3", "q4"},
	}, "m", 0)

	require.Len(t, res.SuggestedActions, 4)
	assert.Equal(t, "high", res.SuggestedActions[0].Priority)
	assert.Equal(t, "high", res.SuggestedActions[1].Priority)
	assert.Equal(t, "medium", res.SuggestedActions[2].Priority)
	assert.Equal(t, "medium", res.SuggestedActions[3].Priority)
	for _, a := range res.SuggestedActions {
		assert.Equal(t, "broker_review", a.Category)
	}
}

func TestBuildResultPremiumComparison(t *testing.T) {
	res := BuildResult(uuid.New(), llm.Comparison{
		PremiumComparison: map[string]any{
			"baseline_premium": 10000.0,
			"renewal_premium":  11200.0,
			"difference":       1200.0,
			// percentage_change absent
		},
	}, "m", 0)

	require.NotNil(t, res.PremiumComparison.BaselinePremium)
	assert.Equal(t, 10000.0, *res.PremiumComparison.BaselinePremium)
	require.NotNil(t, res.PremiumComparison.Difference)
	assert.Equal(t, 1200.0, *res.PremiumComparison.Difference)
	assert.Nil(t, res.PremiumComparison.PercentageChange)
}

func TestBuildResultEmptyEngineOutput(t *testing.T) {
	res := BuildResult(uuid.New(), llm.Comparison{Summary: "no changes"}, "m", 1)
	assert.Equal(t, 0, res.TotalChanges)
	assert.Empty(t, res.Changes)
	assert.Empty(t, res.ChangeCategories)
	assert.Empty(t, res.SuggestedActions)
	assert.NotNil(t, res.EducationalInsights)
	assert.Empty(t, res.EducationalInsights)
}
