package llm

// BuildComparisonJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. The four top-level keys are hard requirements; anything
// missing there fails the whole response. Per-change sub-fields are left
// loose on purpose, the normalizer absorbs that noise.
func BuildComparisonJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{"type": "string", "minLength": 1},
			"coverage_changes": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object"},
			},
			"premium_comparison": map[string]any{"type": "object"},
			"broker_questions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"summary", "coverage_changes", "premium_comparison", "broker_questions"},
	}
}
