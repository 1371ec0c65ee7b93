package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/addyspiller/prisere/internal/llm"
)

// Compare implements llm.ComparisonEngine using text-only chat/completions.
func (c *Client) Compare(ctx context.Context, req llm.CompareRequest) (llm.Comparison, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.compare.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"baseline_len", len(req.BaselineText),
		"renewal_len", len(req.RenewalText),
	)

	schema := llm.BuildComparisonJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildSystemPrompt(req)},
			{"role": "user", "content": buildUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, httpErr := c.post(ctx, endpoint, body)
	if httpErr != nil {
		c.log.Error("llm.compare.http_error",
			"req_id", rid, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Comparison{}, nil, httpErr
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.compare.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Comparison{}, raw, fmt.Errorf("decode engine response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.compare.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Comparison{}, raw, fmt.Errorf("no choices in engine response")
	}

	content := llm.StripMarkdownFences(cc.Choices[0].Message.Content)
	rawContent := []byte(content)

	if err := llm.ValidateJSONAgainstSchema(schema, rawContent); err != nil {
		c.log.Error("llm.compare.schema_validation_failed",
			"req_id", rid, "error", err, "content", truncateStr(content, 2<<10),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Comparison{}, rawContent, fmt.Errorf("schema validation failed: %w", err)
	}

	var out llm.Comparison
	if err := json.Unmarshal(rawContent, &out); err != nil {
		c.log.Error("llm.compare.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Comparison{}, rawContent, fmt.Errorf("unmarshal comparison: %w", err)
	}

	c.log.Info("llm.compare.ok",
		"req_id", rid,
		"changes", len(out.Changes),
		"questions", len(out.BrokerQuestions),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, rawContent, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("engine response body close error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return nil, fmt.Errorf("engine status %d: %s", resp.StatusCode, buf.String())
	}

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes(), nil
}

func buildSystemPrompt(req llm.CompareRequest) string {
	parts := []string{
		"You are an insurance policy analyst. Compare a baseline policy against its renewal and return ONLY JSON that matches the JSON Schema provided.",
		"Identify every material change: coverage limits, deductibles, exclusions, endorsements, premium, and terms.",
		"For each change set 'category' to one of: coverage_limit, deductible, exclusion, premium, terms_conditions, other.",
		"Set 'change_type' to one of: increased, decreased, added, removed, modified.",
		"Quote baseline and renewal values verbatim where possible.",
		"Include page references when you can locate them: {\"baseline\": [..], \"renewal\": [..]}.",
		"In 'broker_questions', list questions the policyholder should ask their broker, most important first.",
	}
	if req.PolicyType != "" {
		parts = append(parts, "Policy type: "+req.PolicyType+".")
	}
	if req.CompanyName != "" {
		parts = append(parts, "Insured company: "+req.CompanyName+".")
	}
	return strings.Join(parts, " ")
}

func buildUserPrompt(req llm.CompareRequest) string {
	var b strings.Builder
	b.WriteString("BASELINE POLICY:\n")
	b.WriteString(req.BaselineText)
	b.WriteString("\n\nRENEWAL POLICY:\n")
	b.WriteString(req.RenewalText)
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
