package report

import (
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/venturesim/internal/scoring"
	"github.com/joelkehle/venturesim/internal/simulation"
)

func sampleAnalysis(t *testing.T, withMarket bool) Analysis {
	t.Helper()
	raw := make(simulation.RawScores)
	for _, s := range simulation.Stats {
		raw[string(s)] = 55
	}
	scores := simulation.Sanitize(raw, 50)

	var assumptions *simulation.MarketAssumptions
	var resolved *simulation.Resolved
	if withMarket {
		assumptions = &simulation.MarketAssumptions{
			MarketCustomers:     &simulation.Assumption{Tri: simulation.Tri{Min: 100000, Mode: 500000, Max: 2000000}, Source: simulation.ProvenanceUser},
			PriceUSD:            &simulation.Assumption{Tri: simulation.Tri{Min: 20, Mode: 40, Max: 90}, Source: simulation.ProvenanceUser},
			PurchaseFreqPerYear: &simulation.Assumption{Tri: simulation.Tri{Min: 1, Mode: 4, Max: 12}, Source: simulation.ProvenanceUser},
			MaxPenetration:      &simulation.Assumption{Tri: simulation.Tri{Min: 0.01, Mode: 0.03, Max: 0.10}, Source: simulation.ProvenanceUser},
		}
		r := simulation.Resolve(assumptions, false)
		resolved = &r
	}

	result, err := simulation.Run(scores, assumptions, false, simulation.Options{Trials: 2000, Seed: 7, Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	return Analysis{
		RunID:     "run-123",
		Profile:   scoring.VentureProfile{Name: "Acme Kombucha", Summary: "DTC functional beverage"},
		Result:    result,
		Resolved:  resolved,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildMarkdownCoreSections(t *testing.T) {
	md := BuildMarkdown(sampleAnalysis(t, true))

	for _, want := range []string{
		"# Venture Simulation Report",
		"Run ID: run-123",
		"Acme Kombucha",
		"## Stage Survival",
		"Bottleneck stage",
		"| Seed |",
		"| Unicorn |",
		"## Market Share",
		"Serviceable-addressable (SAM)",
		"## Assumptions Audit Trail",
		"[user] market_customers",
		"### Glossary",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "Market data needed") {
		t.Fatal("ready market should not show the missing-data notice")
	}
}

func TestBuildMarkdownMissingMarketData(t *testing.T) {
	a := sampleAnalysis(t, false)
	a.Result.MarketNeeded = true
	a.Result.MissingFields = []string{"price", "max_penetration"}

	md := BuildMarkdown(a)
	if !strings.Contains(md, "Market data needed") {
		t.Fatal("missing-data notice absent")
	}
	if !strings.Contains(md, "`price`") || !strings.Contains(md, "`max_penetration`") {
		t.Fatal("missing fields should be listed")
	}
}

func TestBuildMarkdownNoMarketRequested(t *testing.T) {
	md := BuildMarkdown(sampleAnalysis(t, false))
	if !strings.Contains(md, "Market estimation was not requested") {
		t.Fatal("expected the not-requested notice")
	}
}

func TestBuildMarkdownScorerReasoningColumn(t *testing.T) {
	a := sampleAnalysis(t, false)
	a.ScoreCard = &scoring.ScoreCard{
		Scores:    a.Result.Scores,
		Reasoning: map[string]string{"product": "solid | prototype"},
		Notes:     "promising",
	}

	md := BuildMarkdown(a)
	if !strings.Contains(md, "Reasoning |") {
		t.Fatal("reasoning column missing when a score card is present")
	}
	if !strings.Contains(md, `solid \| prototype`) {
		t.Fatal("pipes in reasoning must be escaped for the table")
	}
	if !strings.Contains(md, "promising") {
		t.Fatal("scorer notes missing")
	}
}

func TestBuildMarkdownFallbackWarning(t *testing.T) {
	a := sampleAnalysis(t, false)
	resolved := simulation.Resolve(nil, true)
	result, err := simulation.Run(a.Result.Scores, &simulation.MarketAssumptions{}, true, simulation.Options{Trials: 500, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	a.Result = result
	a.Resolved = &resolved

	md := BuildMarkdown(a)
	if !strings.Contains(md, "synthetic priors") {
		t.Fatal("fallback warning missing")
	}
	if !strings.Contains(md, "[synthetic-fallback]") {
		t.Fatal("audit trail should tag synthetic assumptions")
	}
}

func TestFmtUSD(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"}, {999, "999"}, {1000, "1,000"}, {500000000, "500,000,000"}, {-1234, "-1,234"},
	}
	for _, tc := range cases {
		if got := fmtUSD(tc.in); got != tc.want {
			t.Fatalf("fmtUSD(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildHTML(t *testing.T) {
	htmlDoc, err := buildHTML(sampleAnalysis(t, true))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(htmlDoc, "<title>Venture Simulation Report</title>") {
		t.Fatal("title missing")
	}
	if !strings.Contains(htmlDoc, "Acme Kombucha") {
		t.Fatal("meta header missing the venture name")
	}
	if !strings.Contains(htmlDoc, `data-page-break-before="true">Appendix`) {
		t.Fatal("appendix page break hook missing")
	}
}
