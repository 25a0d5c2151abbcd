package simulation

import "math"

// RawScores is the loose boundary shape scores arrive in, typically decoded
// from JSON produced by an LLM or a form. Absent keys stay absent; values may
// be fractional or out of range. The deprecated "team" key is accepted as an
// alias for "founder" when "founder" itself is missing.
type RawScores map[string]float64

// Sanitize normalizes a raw score set into a ScoreVector exactly once at the
// boundary: alias resolution, rounding, clamping to [0,100], and fallback
// substitution for missing or non-finite values. It never fails.
func Sanitize(raw RawScores, fallback int) ScoreVector {
	if raw != nil {
		if _, ok := raw[string(StatFounder)]; !ok {
			if team, ok := raw["team"]; ok {
				raw = cloneWith(raw, string(StatFounder), team)
			}
		}
	}
	var v ScoreVector
	v.Product = sanitizeOne(raw, StatProduct, fallback)
	v.Founder = sanitizeOne(raw, StatFounder, fallback)
	v.Strategy = sanitizeOne(raw, StatStrategy, fallback)
	v.Marketing = sanitizeOne(raw, StatMarketing, fallback)
	v.ConsumerNeeds = sanitizeOne(raw, StatConsumerNeeds, fallback)
	v.ConceptFit = sanitizeOne(raw, StatConceptFit, fallback)
	v.PriceFit = sanitizeOne(raw, StatPriceFit, fallback)
	v.BusinessModelFit = sanitizeOne(raw, StatBusinessModelFit, fallback)
	v.Distribution = sanitizeOne(raw, StatDistribution, fallback)
	v.MarketScope = sanitizeOne(raw, StatMarketScope, fallback)
	v.PotentialCustomers = sanitizeOne(raw, StatPotentialCustomers, fallback)
	return v
}

func sanitizeOne(raw RawScores, s Stat, fallback int) int {
	if raw == nil {
		return clampScore(fallback)
	}
	n, ok := raw[string(s)]
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return clampScore(fallback)
	}
	return clampScore(int(math.Round(n)))
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func cloneWith(raw RawScores, key string, val float64) RawScores {
	out := make(RawScores, len(raw)+1)
	for k, v := range raw {
		out[k] = v
	}
	out[key] = val
	return out
}
