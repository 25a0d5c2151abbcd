package research

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joelkehle/venturesim/internal/scoring"
	"github.com/joelkehle/venturesim/internal/simulation"
)

const maxSnippetChars = 12000

// SearchRunner lets tests substitute the live web search.
type SearchRunner interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Estimator turns web search snippets into three-point market assumptions,
// each tagged as an external estimate. It never invents synthetic numbers;
// fields the snippets cannot support come back absent for the resolver's
// fallback policy to handle.
type Estimator struct {
	searcher SearchRunner
	exec     *scoring.Executor
}

func NewEstimator(searcher SearchRunner, caller scoring.LLMCaller) *Estimator {
	return &Estimator{searcher: searcher, exec: scoring.NewExecutor(caller)}
}

const estimatePrompt = `Using only the search snippets below, estimate market assumptions for this startup as three-point ranges (min = conservative, mode = most likely, max = aggressive). Omit (null) any field the snippets do not support; do not guess.

Startup: %s

Return JSON:
{
  "market_customers": {"min": <n>, "mode": <n>, "max": <n>} or null,
  "market_revenue_usd": {"min": <n>, "mode": <n>, "max": <n>} or null,
  "price_usd": {"min": <n>, "mode": <n>, "max": <n>} or null,
  "purchase_freq_per_year": {"min": <n>, "mode": <n>, "max": <n>} or null,
  "max_penetration": {"min": <0-1>, "mode": <0-1>, "max": <0-1>} or null
}

Search snippets:
%s`

type triEstimate struct {
	Min  float64 `json:"min"`
	Mode float64 `json:"mode"`
	Max  float64 `json:"max"`
}

type estimateResponse struct {
	MarketCustomers     *triEstimate `json:"market_customers"`
	MarketRevenueUSD    *triEstimate `json:"market_revenue_usd"`
	PriceUSD            *triEstimate `json:"price_usd"`
	PurchaseFreqPerYear *triEstimate `json:"purchase_freq_per_year"`
	MaxPenetration      *triEstimate `json:"max_penetration"`
}

func (e *Estimator) Estimate(ctx context.Context, profile scoring.VentureProfile) (*simulation.MarketAssumptions, error) {
	snippets := e.gatherSnippets(ctx, profile)
	if snippets == "" {
		return nil, errors.New("no usable search results for market estimation")
	}

	subject := profile.Name
	if profile.Summary != "" {
		subject = strings.TrimSpace(subject + " - " + profile.Summary)
	}

	var resp estimateResponse
	prompt := fmt.Sprintf(estimatePrompt, subject, snippets)
	if _, err := e.exec.Run(ctx, "market-estimate", prompt, &resp, func() error {
		return validateEstimate(resp)
	}); err != nil {
		return nil, err
	}

	out := &simulation.MarketAssumptions{
		MarketCustomers:     externalAssumption(resp.MarketCustomers),
		MarketRevenueUSD:    externalAssumption(resp.MarketRevenueUSD),
		PriceUSD:            externalAssumption(resp.PriceUSD),
		PurchaseFreqPerYear: externalAssumption(resp.PurchaseFreqPerYear),
		MaxPenetration:      externalAssumption(resp.MaxPenetration),
	}
	return out, nil
}

func (e *Estimator) gatherSnippets(ctx context.Context, profile scoring.VentureProfile) string {
	subject := strings.TrimSpace(profile.Name + " " + profile.Summary)
	queries := []string{
		fmt.Sprintf("%s market size number of customers", subject),
		fmt.Sprintf("%s average price per unit", subject),
		fmt.Sprintf("%s purchase frequency per year", subject),
	}
	if profile.Markets != "" {
		queries = append(queries, fmt.Sprintf("%s market size %s", subject, profile.Markets))
	}

	var sb strings.Builder
	for _, q := range queries {
		results, err := e.searcher.Search(ctx, q)
		if err != nil {
			log.Printf("research search failed query=%q err=%v", q, err)
			continue
		}
		for _, r := range results {
			if strings.TrimSpace(r.Content) == "" {
				continue
			}
			fmt.Fprintf(&sb, "[%s] %s\n%s\n\n", r.URL, r.Title, r.Content)
			if sb.Len() > maxSnippetChars {
				return sb.String()[:maxSnippetChars]
			}
		}
	}
	return sb.String()
}

func validateEstimate(resp estimateResponse) error {
	fields := map[string]*triEstimate{
		"market_customers":       resp.MarketCustomers,
		"market_revenue_usd":     resp.MarketRevenueUSD,
		"price_usd":              resp.PriceUSD,
		"purchase_freq_per_year": resp.PurchaseFreqPerYear,
		"max_penetration":        resp.MaxPenetration,
	}
	present := 0
	var problems []string
	for name, est := range fields {
		if est == nil {
			continue
		}
		present++
		tri := simulation.Tri{Min: est.Min, Mode: est.Mode, Max: est.Max}
		if !tri.Valid() {
			problems = append(problems, fmt.Sprintf("%s range is not ordered min <= mode <= max", name))
		}
	}
	if present == 0 {
		return errors.New("every field was null; estimate at least the market size or price")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func externalAssumption(est *triEstimate) *simulation.Assumption {
	if est == nil {
		return nil
	}
	return &simulation.Assumption{
		Tri:    simulation.Tri{Min: est.Min, Mode: est.Mode, Max: est.Max},
		Source: simulation.ProvenanceExternal,
	}
}
