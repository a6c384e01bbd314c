package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// metricsQuestion drives retrieval when the caller wants metrics rather than
// a free-form answer.
const metricsQuestion = "What are the fund's expense ratio, assets under management, inception date, benchmark index and top holdings?"

// CompareResult holds the metrics of both documents and a markdown diff
// summary.
type CompareResult struct {
	A         *Metrics `json:"a"`
	B         *Metrics `json:"b"`
	SummaryMD string   `json:"summary_md"`
}

// Metrics runs the pipeline for one document with the fixed metrics question
// and returns the extracted metrics.
func (p *Pipeline) Metrics(ctx context.Context, ref SourceRef) (*Metrics, error) {
	st, err := p.QuerySingle(ctx, ref, metricsQuestion)
	if err != nil {
		return nil, err
	}
	if st.Extracted == nil {
		return &Metrics{Incomplete: true}, nil
	}
	return st.Extracted, nil
}

// Compare extracts metrics from two fact sheets and renders a side-by-side
// summary. Each document runs through the full pipeline independently.
func (p *Pipeline) Compare(ctx context.Context, a, b SourceRef) (*CompareResult, error) {
	ma, err := p.Metrics(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("compare %s: %w", a.Source, err)
	}
	mb, err := p.Metrics(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("compare %s: %w", b.Source, err)
	}

	return &CompareResult{
		A:         ma,
		B:         mb,
		SummaryMD: diffSummary(a.Source, b.Source, ma, mb),
	}, nil
}

// diffSummary renders the "X vs Y" comparison lines for the headline metrics.
func diffSummary(docA, docB string, a, b *Metrics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s vs %s\n\n", docA, docB)
	fmt.Fprintf(&sb, "- Expense ratio: %s vs %s\n", orNA(a.ExpenseRatio), orNA(b.ExpenseRatio))
	fmt.Fprintf(&sb, "- Benchmark: %s vs %s\n", orNA(a.Benchmark), orNA(b.Benchmark))
	fmt.Fprintf(&sb, "- Inception date: %s vs %s\n", orNA(a.InceptionDate), orNA(b.InceptionDate))
	if a.AUM != nil || b.AUM != nil {
		fmt.Fprintf(&sb, "- AUM: %s vs %s\n", orNAPtr(a.AUM), orNAPtr(b.AUM))
	}
	return sb.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "n/a"
	}
	return s
}

func orNAPtr(s *string) string {
	if s == nil {
		return "n/a"
	}
	return orNA(*s)
}
