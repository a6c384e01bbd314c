package pipeline

import (
	"strings"
	"testing"
)

func TestParseMetrics(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string // expected expense ratio
		err  bool
	}{
		{
			name: "bare json",
			raw:  `{"expense_ratio":"0.03%","aum":null,"inception_date":"","benchmark":"S&P 500","top_holdings_sample":null}`,
			want: "0.03%",
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"expense_ratio\":\"0.09%\"}\n```",
			want: "0.09%",
		},
		{
			name: "prose around json",
			raw:  `Here are the metrics: {"expense_ratio":"0.20%"} Hope that helps!`,
			want: "0.20%",
		},
		{
			name: "unknown fields ignored",
			raw:  `{"expense_ratio":"0.05%","ticker":"SPY","nav":123.4}`,
			want: "0.05%",
		},
		{name: "no json at all", raw: "the expense ratio is low", err: true},
		{name: "broken json", raw: `{"expense_ratio": "0.03%`, err: true},
		{name: "empty reply", raw: "", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := parseMetrics(tt.raw)
			if tt.err {
				if err == nil {
					t.Fatalf("expected error, got %+v", m)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if m.ExpenseRatio != tt.want {
				t.Fatalf("expense ratio = %q, want %q", m.ExpenseRatio, tt.want)
			}
		})
	}
}

func TestParseMetricsTruncatesHoldings(t *testing.T) {
	raw := `{"top_holdings_sample":["a","b","c","d","e","f","g"]}`
	m, err := parseMetrics(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.TopHoldingsSample) != 5 {
		t.Fatalf("holdings = %d, want 5", len(m.TopHoldingsSample))
	}
}

func TestParseMetricsNullEverywhere(t *testing.T) {
	raw := `{"expense_ratio":null,"aum":null,"inception_date":null,"benchmark":null,"top_holdings_sample":null}`
	m, err := parseMetrics(raw)
	if err != nil {
		t.Fatal(err)
	}
	if m.ExpenseRatio != "" || m.AUM != nil || len(m.TopHoldingsSample) != 0 {
		t.Fatalf("nulls must decode to zero values: %+v", m)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate(strings.Repeat("x", 20), 10); got != strings.Repeat("x", 10)+"..." {
		t.Fatalf("got %q", got)
	}
}
