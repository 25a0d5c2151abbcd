package simulation

import (
	"math"
	"testing"
)

func TestSanitizeClampsAndRounds(t *testing.T) {
	raw := RawScores{
		"product":             150,
		"founder":             -20,
		"strategy":            49.6,
		"marketing":           math.NaN(),
		"consumer_needs":      math.Inf(1),
		"concept_fit":         0,
		"price_fit":           100,
		"business_model_fit":  33.2,
		"distribution":        66,
		"market_scope":        1,
		"potential_customers": 99.9,
	}
	v := Sanitize(raw, 35)

	if v.Product != 100 {
		t.Fatalf("product = %d, want clamped 100", v.Product)
	}
	if v.Founder != 0 {
		t.Fatalf("founder = %d, want clamped 0", v.Founder)
	}
	if v.Strategy != 50 {
		t.Fatalf("strategy = %d, want rounded 50", v.Strategy)
	}
	if v.Marketing != 35 || v.ConsumerNeeds != 35 {
		t.Fatalf("non-finite values should fall back to 35, got %d/%d", v.Marketing, v.ConsumerNeeds)
	}
	if v.BusinessModelFit != 33 {
		t.Fatalf("business_model_fit = %d, want 33", v.BusinessModelFit)
	}
	if v.PotentialCustomers != 100 {
		t.Fatalf("potential_customers = %d, want 100", v.PotentialCustomers)
	}
}

func TestSanitizeMissingKeysUseFallback(t *testing.T) {
	v := Sanitize(RawScores{"product": 80}, 40)
	if v.Product != 80 {
		t.Fatalf("product = %d, want 80", v.Product)
	}
	if v.Founder != 40 || v.MarketScope != 40 {
		t.Fatalf("missing keys should fall back to 40, got founder=%d market_scope=%d", v.Founder, v.MarketScope)
	}
}

func TestSanitizeNilInput(t *testing.T) {
	v := Sanitize(nil, 50)
	for _, s := range Stats {
		if v.Stat(s) != 50 {
			t.Fatalf("%s = %d, want fallback 50", s, v.Stat(s))
		}
	}
}

func TestSanitizeLegacyTeamAlias(t *testing.T) {
	v := Sanitize(RawScores{"team": 72}, 35)
	if v.Founder != 72 {
		t.Fatalf("founder = %d, want 72 via team alias", v.Founder)
	}

	// Explicit founder wins over the alias.
	v = Sanitize(RawScores{"team": 72, "founder": 61}, 35)
	if v.Founder != 61 {
		t.Fatalf("founder = %d, want explicit 61", v.Founder)
	}

	// The alias must not mutate the caller's map.
	raw := RawScores{"team": 72}
	Sanitize(raw, 35)
	if _, ok := raw["founder"]; ok {
		t.Fatal("Sanitize mutated the input map")
	}
}
