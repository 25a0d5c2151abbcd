package simulation

// Provenance records where a market assumption came from. The engine treats
// all three the same; callers surface the tag in reports and audit trails.
type Provenance string

const (
	ProvenanceUser      Provenance = "user"
	ProvenanceExternal  Provenance = "external-estimate"
	ProvenanceSynthetic Provenance = "synthetic-fallback"
)

type Assumption struct {
	Tri    Tri        `json:"tri"`
	Source Provenance `json:"source"`
}

// MarketAssumptions is the possibly-partial market input to an analysis.
// At least one of MarketCustomers/MarketRevenueUSD plus PriceUSD and
// PurchaseFreqPerYear are required for the market simulation to run;
// MaxPenetration is required unless synthetic fallback is allowed.
type MarketAssumptions struct {
	MarketCustomers     *Assumption          `json:"market_customers,omitempty"`
	MarketRevenueUSD    *Assumption          `json:"market_revenue,omitempty"`
	PriceUSD            *Assumption          `json:"price,omitempty"`
	PurchaseFreqPerYear *Assumption          `json:"purchase_freq_per_year,omitempty"`
	MaxPenetration      *Assumption          `json:"max_penetration,omitempty"`
	StageRevenueFactor  map[Stage]Assumption `json:"stage_revenue_factor,omitempty"`
}

// Resolved is the canonical form consumed read-only by every market trial.
// When Ready is false the market simulation must not run; MissingFields
// tells the caller what to collect.
type Resolved struct {
	Ready                 bool                 `json:"ready"`
	MissingFields         []string             `json:"missing_fields,omitempty"`
	UsedSyntheticFallback bool                 `json:"used_synthetic_fallback"`
	MarketCustomers       *Assumption          `json:"market_customers,omitempty"`
	MarketRevenueUSD      *Assumption          `json:"market_revenue,omitempty"`
	PriceUSD              *Assumption          `json:"price,omitempty"`
	PurchaseFreqPerYear   *Assumption          `json:"purchase_freq_per_year,omitempty"`
	MaxPenetration        *Assumption          `json:"max_penetration,omitempty"`
	StageRevenueFactor    map[Stage]Assumption `json:"stage_revenue_factor,omitempty"`
}

// Conservative priors used only when the caller explicitly allows synthetic
// fallback. Ranges describe a modest consumer product: a niche-to-mid market,
// double-digit pricing, a handful of purchases a year, single-digit
// penetration ceiling.
var syntheticPriors = map[string]Tri{
	"market_customers":       {Min: 20_000, Mode: 200_000, Max: 2_000_000},
	"price":                  {Min: 10, Mode: 40, Max: 120},
	"purchase_freq_per_year": {Min: 1, Mode: 4, Max: 12},
	"max_penetration":        {Min: 0.01, Mode: 0.03, Max: 0.08},
}

// Resolve validates and canonicalizes market assumptions. Malformed Tris are
// dropped and counted missing. Missing required fields make the result
// not-ready unless allowFallback is set, in which case they are filled from
// syntheticPriors and the result is tagged. Pure: neither input is mutated.
func Resolve(assumptions *MarketAssumptions, allowFallback bool) Resolved {
	var in MarketAssumptions
	if assumptions != nil {
		in = *assumptions
	}

	res := Resolved{
		MarketCustomers:     validAssumption(in.MarketCustomers),
		MarketRevenueUSD:    validAssumption(in.MarketRevenueUSD),
		PriceUSD:            validAssumption(in.PriceUSD),
		PurchaseFreqPerYear: validAssumption(in.PurchaseFreqPerYear),
		MaxPenetration:      validAssumption(in.MaxPenetration),
	}
	for stage, a := range in.StageRevenueFactor {
		if !a.Tri.Valid() {
			continue
		}
		if res.StageRevenueFactor == nil {
			res.StageRevenueFactor = make(map[Stage]Assumption, len(in.StageRevenueFactor))
		}
		res.StageRevenueFactor[stage] = a
	}

	var missing []string
	if res.MarketCustomers == nil && res.MarketRevenueUSD == nil {
		missing = append(missing, "market_customers_or_market_revenue")
	}
	if res.PriceUSD == nil {
		missing = append(missing, "price")
	}
	if res.PurchaseFreqPerYear == nil {
		missing = append(missing, "purchase_freq_per_year")
	}
	if res.MaxPenetration == nil {
		missing = append(missing, "max_penetration")
	}

	if len(missing) == 0 {
		res.Ready = true
		return res
	}
	if !allowFallback {
		res.MissingFields = missing
		return res
	}

	if res.MarketCustomers == nil && res.MarketRevenueUSD == nil {
		res.MarketCustomers = syntheticAssumption("market_customers")
	}
	if res.PriceUSD == nil {
		res.PriceUSD = syntheticAssumption("price")
	}
	if res.PurchaseFreqPerYear == nil {
		res.PurchaseFreqPerYear = syntheticAssumption("purchase_freq_per_year")
	}
	if res.MaxPenetration == nil {
		res.MaxPenetration = syntheticAssumption("max_penetration")
	}
	res.Ready = true
	res.UsedSyntheticFallback = true
	return res
}

// WithDefaultSource returns a copy where every untagged assumption carries
// the given provenance. Nil input stays nil; the input is never mutated.
func WithDefaultSource(in *MarketAssumptions, p Provenance) *MarketAssumptions {
	if in == nil {
		return nil
	}
	tag := func(a *Assumption) *Assumption {
		if a == nil {
			return nil
		}
		copied := *a
		if copied.Source == "" {
			copied.Source = p
		}
		return &copied
	}
	out := MarketAssumptions{
		MarketCustomers:     tag(in.MarketCustomers),
		MarketRevenueUSD:    tag(in.MarketRevenueUSD),
		PriceUSD:            tag(in.PriceUSD),
		PurchaseFreqPerYear: tag(in.PurchaseFreqPerYear),
		MaxPenetration:      tag(in.MaxPenetration),
	}
	if len(in.StageRevenueFactor) > 0 {
		out.StageRevenueFactor = make(map[Stage]Assumption, len(in.StageRevenueFactor))
		for stage, a := range in.StageRevenueFactor {
			if a.Source == "" {
				a.Source = p
			}
			out.StageRevenueFactor[stage] = a
		}
	}
	return &out
}

func validAssumption(a *Assumption) *Assumption {
	if a == nil || !a.Tri.Valid() {
		return nil
	}
	copied := *a
	return &copied
}

func syntheticAssumption(field string) *Assumption {
	return &Assumption{Tri: syntheticPriors[field], Source: ProvenanceSynthetic}
}
