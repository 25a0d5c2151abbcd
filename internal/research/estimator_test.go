package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/joelkehle/venturesim/internal/scoring"
	"github.com/joelkehle/venturesim/internal/simulation"
)

type mockSearcher struct {
	results map[string][]SearchResult
	err     error
}

func (m *mockSearcher) Search(_ context.Context, query string) ([]SearchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	for key, results := range m.results {
		if strings.Contains(query, key) {
			return results, nil
		}
	}
	return nil, nil
}

type mockLLM struct {
	responses []string
	calls     int
	prompts   []string
}

func (m *mockLLM) GenerateJSON(_ context.Context, prompt string) (string, error) {
	i := m.calls
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return "", errors.New("no more responses")
}

const goodEstimate = `{
  "market_customers": {"min": 100000, "mode": 500000, "max": 2000000},
  "market_revenue_usd": null,
  "price_usd": {"min": 20, "mode": 35, "max": 60},
  "purchase_freq_per_year": {"min": 2, "mode": 6, "max": 12},
  "max_penetration": null
}`

func TestEstimatorBuildsExternalAssumptions(t *testing.T) {
	searcher := &mockSearcher{results: map[string][]SearchResult{
		"market size": {{Title: "Report", URL: "https://x", Content: "2M buyers at $35"}},
	}}
	llm := &mockLLM{responses: []string{goodEstimate}}
	est := NewEstimator(searcher, llm)

	out, err := est.Estimate(context.Background(), scoring.VentureProfile{Name: "Acme", Summary: "kombucha"})
	if err != nil {
		t.Fatal(err)
	}
	if out.MarketCustomers == nil || out.MarketCustomers.Source != simulation.ProvenanceExternal {
		t.Fatalf("market customers = %+v, want external estimate", out.MarketCustomers)
	}
	if out.MarketRevenueUSD != nil || out.MaxPenetration != nil {
		t.Fatal("null fields must stay absent")
	}
	if out.PriceUSD.Tri.Mode != 35 {
		t.Fatalf("price mode = %v, want 35", out.PriceUSD.Tri.Mode)
	}
	if !strings.Contains(llm.prompts[0], "2M buyers") {
		t.Fatal("prompt should embed the search snippets")
	}

	// Output must feed straight into the resolver's fallback path.
	resolved := simulation.Resolve(out, true)
	if !resolved.Ready || !resolved.UsedSyntheticFallback {
		t.Fatalf("resolver: ready=%v fallback=%v", resolved.Ready, resolved.UsedSyntheticFallback)
	}
	if resolved.PriceUSD.Source != simulation.ProvenanceExternal {
		t.Fatal("external provenance should survive resolution")
	}
}

func TestEstimatorFailsWithoutSnippets(t *testing.T) {
	est := NewEstimator(&mockSearcher{err: errors.New("network down")}, &mockLLM{})
	if _, err := est.Estimate(context.Background(), scoring.VentureProfile{Name: "Acme"}); err == nil {
		t.Fatal("expected failure when every search errors")
	}
}

func TestEstimatorRejectsAllNullResponse(t *testing.T) {
	allNull := `{"market_customers":null,"market_revenue_usd":null,"price_usd":null,"purchase_freq_per_year":null,"max_penetration":null}`
	searcher := &mockSearcher{results: map[string][]SearchResult{
		"market size": {{Title: "t", URL: "u", Content: "c"}},
	}}
	llm := &mockLLM{responses: []string{allNull, allNull, allNull}}

	if _, err := NewEstimator(searcher, llm).Estimate(context.Background(), scoring.VentureProfile{Name: "Acme"}); err == nil {
		t.Fatal("expected validation failure for all-null estimate")
	}
	if llm.calls != 3 {
		t.Fatalf("calls = %d, want 3 validation retries", llm.calls)
	}
}

func TestEstimatorRejectsUnorderedRange(t *testing.T) {
	bad := `{"market_customers":{"min":500,"mode":100,"max":50},"market_revenue_usd":null,"price_usd":null,"purchase_freq_per_year":null,"max_penetration":null}`
	searcher := &mockSearcher{results: map[string][]SearchResult{
		"market size": {{Title: "t", URL: "u", Content: "c"}},
	}}
	llm := &mockLLM{responses: []string{bad, goodEstimate}}

	out, err := NewEstimator(searcher, llm).Estimate(context.Background(), scoring.VentureProfile{Name: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(llm.prompts[1], "not ordered") {
		t.Fatal("validation feedback should describe the ordering problem")
	}
	if out.MarketCustomers.Tri.Mode != 500000 {
		t.Fatalf("mode = %v, want the corrected 500000", out.MarketCustomers.Tri.Mode)
	}
}
