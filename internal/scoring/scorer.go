package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/joelkehle/venturesim/internal/simulation"
)

const (
	// DefaultScoreFallback replaces stats the model failed to score. Kept
	// deliberately below the neutral 50 so missing evidence reads as weakness.
	DefaultScoreFallback = 35

	MaxProfileChars = 20000
)

type VentureProfile struct {
	Name           string `json:"name"`
	Summary        string `json:"summary"`
	TargetCustomer string `json:"target_customer,omitempty"`
	PricingModel   string `json:"pricing_model,omitempty"`
	Channels       string `json:"channels,omitempty"`
	Markets        string `json:"markets,omitempty"`
}

type ScoreCard struct {
	Scores    simulation.ScoreVector `json:"scores"`
	Reasoning map[string]string      `json:"reasoning"`
	Notes     string                 `json:"notes,omitempty"`
	Truncated bool                   `json:"truncated,omitempty"`
	Metrics   CallMetrics            `json:"-"`
}

const scorePrompt = `Score the startup profile below on each dimension, 0-100.

Dimensions:
- product: strength and maturity of the product or service itself
- founder: founder/team capability and relevant track record
- strategy: coherence of the go-to-market and competitive strategy
- marketing: ability to generate demand and awareness
- consumer_needs: how acutely the target customer needs this
- concept_fit: clarity and differentiation of the concept/positioning
- price_fit: plausibility of the price point for the target customer
- business_model_fit: plausibility of the revenue model and unit economics
- distribution: fit and feasibility of the sales/delivery channels
- market_scope: regulatory/competitive room to operate and expand
- potential_customers: size and reachability of the paying audience

Return JSON:
{
  "scores": {
    "<dimension>": {"score": <0-100 integer>, "reasoning": "<one sentence>"},
    ... all eleven dimensions ...
  },
  "notes": "<2-3 sentence overall read>"
}

Startup profile:
%s`

type statScore struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

type scoreResponse struct {
	Scores map[string]statScore `json:"scores"`
	Notes  string               `json:"notes"`
}

// Scorer turns a free-text venture profile into a sanitized ScoreVector via
// one structured LLM call.
type Scorer struct {
	exec *Executor
}

func NewScorer(caller LLMCaller) *Scorer {
	return &Scorer{exec: NewExecutor(caller)}
}

func NewScorerFromEnv() (*Scorer, error) {
	caller, err := NewAnthropicCallerFromEnv()
	if err != nil {
		return nil, err
	}
	return NewScorer(caller), nil
}

func (s *Scorer) Score(ctx context.Context, profile VentureProfile) (ScoreCard, error) {
	text, truncated := renderProfile(profile)

	var resp scoreResponse
	metrics, err := s.exec.Run(ctx, "score-profile", fmt.Sprintf(scorePrompt, text), &resp, func() error {
		return validateScoreResponse(resp)
	})
	if err != nil {
		return ScoreCard{}, err
	}

	raw := make(simulation.RawScores, len(resp.Scores))
	reasoning := make(map[string]string, len(resp.Scores))
	for key, sc := range resp.Scores {
		raw[key] = sc.Score
		if sc.Reasoning != "" {
			reasoning[key] = sc.Reasoning
		}
	}

	return ScoreCard{
		Scores:    simulation.Sanitize(raw, DefaultScoreFallback),
		Reasoning: reasoning,
		Notes:     resp.Notes,
		Truncated: truncated,
		Metrics:   metrics,
	}, nil
}

func validateScoreResponse(resp scoreResponse) error {
	if resp.Scores == nil {
		return fmt.Errorf("missing scores object")
	}
	var problems []string
	for _, stat := range simulation.Stats {
		sc, ok := resp.Scores[string(stat)]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing dimension %q", stat))
			continue
		}
		if math.IsNaN(sc.Score) || sc.Score < 0 || sc.Score > 100 {
			problems = append(problems, fmt.Sprintf("%s score %v out of range 0-100", stat, sc.Score))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func renderProfile(p VentureProfile) (string, bool) {
	fields := []struct {
		label, value string
	}{
		{"Name", p.Name},
		{"Summary", p.Summary},
		{"Target customer", p.TargetCustomer},
		{"Pricing model", p.PricingModel},
		{"Channels", p.Channels},
		{"Markets", p.Markets},
	}
	var sb strings.Builder
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", f.label, f.value)
	}
	text := sb.String()
	if len(text) > MaxProfileChars {
		return text[:MaxProfileChars], true
	}
	return text, false
}
