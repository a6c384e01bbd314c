package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const metricsPromptHeader = `You are a financial data extractor. Using ONLY the context below, return a JSON object with exactly these fields:

{
  "expense_ratio": string or null,
  "aum": string or null,
  "inception_date": string or null,
  "benchmark": string or null,
  "top_holdings_sample": array of up to 5 strings, or null
}

Use null for any value not present in the context. Return only the JSON object.

Context:
`

const metricsClarification = "\n\nYour previous reply was not valid JSON. Return ONLY the JSON object, with no prose, no code fences and no explanation."

// extractMetrics prompts for the fixed metrics schema over the retrieved
// context. A malformed reply gets one retry with a clarification; a second
// failure yields empty metrics marked Incomplete. The run continues either
// way.
func (p *Pipeline) extractMetrics(ctx context.Context, st *State) error {
	if len(st.Retrieved) == 0 {
		st.Extracted = &Metrics{}
		return nil
	}

	var b strings.Builder
	b.WriteString(metricsPromptHeader)
	for _, r := range st.Retrieved {
		b.WriteString(r.Text)
		b.WriteString("\n\n")
	}
	prompt := b.String()

	raw, err := p.complete.Complete(ctx, prompt)
	if err != nil {
		st.Extracted = &Metrics{Incomplete: true}
		return fmt.Errorf("metrics completion: %w", err)
	}

	m, perr := parseMetrics(raw)
	if perr != nil {
		p.logger.Warn("metrics reply not parseable, retrying", "error", perr)
		raw2, err := p.complete.Complete(ctx, prompt+metricsClarification)
		if err != nil {
			st.Extracted = &Metrics{Incomplete: true}
			return fmt.Errorf("metrics retry completion: %w", err)
		}
		m, perr = parseMetrics(raw2)
		if perr != nil {
			p.logger.Error("metrics reply unparseable after retry",
				"error", perr, "raw", truncate(raw2, 500))
			st.Extracted = &Metrics{Incomplete: true}
			return nil
		}
	}

	st.Extracted = m
	return nil
}

// parseMetrics recovers a Metrics value from a model reply that may wrap the
// JSON in code fences or prose: it takes the outermost {...} span.
func parseMetrics(raw string) (*Metrics, error) {
	s := raw
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in reply")
	}

	var m Metrics
	if err := json.Unmarshal([]byte(s[start:end+1]), &m); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	m.Incomplete = false
	if len(m.TopHoldingsSample) > 5 {
		m.TopHoldingsSample = m.TopHoldingsSample[:5]
	}
	return &m, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
