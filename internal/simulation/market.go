package simulation

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
)

var ErrMarketNotReady = errors.New("simulation: market assumptions not resolved")

const (
	// Hurdle centers for the market-side logistic transforms. Addressability
	// reads market_scope and potential_customers; penetration reads the
	// execution composite.
	addressableHurdleCenter = 55
	penetrationHurdleCenter = 58
	marketHurdleSteepness   = 12

	// Floor on the revenue denominator so share never divides by zero.
	revenueEpsilonUSD = 1e-6
)

// Execution composite: how well the venture converts an addressable market,
// as a fixed blend of go-to-market stats.
var executionWeights = map[Stat]float64{
	StatProduct:          0.25,
	StatMarketing:        0.25,
	StatDistribution:     0.20,
	StatStrategy:         0.20,
	StatPriceFit:         0.05,
	StatBusinessModelFit: 0.05,
}

func executionComposite(v ScoreVector) float64 {
	var sum float64
	for stat, w := range executionWeights {
		sum += float64(v.Stat(stat)) * w
	}
	return sum
}

// addressableFraction blends market scope and audience reach into the share
// of the total market this venture could plausibly serve.
func addressableFraction(v ScoreVector) float64 {
	scope := logistic(float64(v.MarketScope), addressableHurdleCenter, marketHurdleSteepness)
	audience := logistic(float64(v.PotentialCustomers), addressableHurdleCenter, marketHurdleSteepness)
	return (scope + audience) / 2
}

type marketTrials struct {
	share   []float64
	myRev   []float64
	mktRev  []float64
	samRev  []float64
	myCust  []float64
	mktCust []float64
	samCust []float64
}

func newMarketTrials(capacity int) marketTrials {
	return marketTrials{
		share:   make([]float64, 0, capacity),
		myRev:   make([]float64, 0, capacity),
		mktRev:  make([]float64, 0, capacity),
		samRev:  make([]float64, 0, capacity),
		myCust:  make([]float64, 0, capacity),
		mktCust: make([]float64, 0, capacity),
		samCust: make([]float64, 0, capacity),
	}
}

func (m *marketTrials) append(other marketTrials) {
	m.share = append(m.share, other.share...)
	m.myRev = append(m.myRev, other.myRev...)
	m.mktRev = append(m.mktRev, other.mktRev...)
	m.samRev = append(m.samRev, other.samRev...)
	m.myCust = append(m.myCust, other.myCust...)
	m.mktCust = append(m.mktCust, other.mktCust...)
	m.samCust = append(m.samCust, other.samCust...)
}

// SimulateMarket runs the nested Monte Carlo share estimate. The caller must
// have resolved assumptions first; a not-ready Resolved is a programming
// error here, not a degraded mode.
func SimulateMarket(scores ScoreVector, resolved Resolved, opts Options) (MarketShareResult, error) {
	if !resolved.Ready {
		return MarketShareResult{}, ErrMarketNotReady
	}
	opts, err := opts.normalize()
	if err != nil {
		return MarketShareResult{}, err
	}

	probs := survivalProbs(scores)
	addressable := addressableFraction(scores)
	penetrationBase := logistic(executionComposite(scores), penetrationHurdleCenter, marketHurdleSteepness)

	parts := make([]marketTrials, opts.Workers)
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(opts.Seed + int64(w+1)*workerSeedStride))
			n := workerShare(opts.Trials, opts.Workers, w)
			out := newMarketTrials(n)
			for i := 0; i < n; i++ {
				runMarketTrial(&out, resolved, probs, addressable, penetrationBase, rng)
			}
			parts[w] = out
		}(w)
	}
	wg.Wait()

	all := newMarketTrials(opts.Trials)
	for _, p := range parts {
		all.append(p)
	}
	return buildMarketResult(opts.Trials, resolved.UsedSyntheticFallback, all), nil
}

func runMarketTrial(out *marketTrials, resolved Resolved, probs []float64, addressable, penetrationBase float64, rng *rand.Rand) {
	price := resolved.PriceUSD.Tri.Sample(rng)
	freq := resolved.PurchaseFreqPerYear.Tri.Sample(rng)
	maxPen := resolved.MaxPenetration.Tri.Sample(rng)

	perCustomer := price * freq
	if perCustomer < revenueEpsilonUSD {
		perCustomer = revenueEpsilonUSD
	}

	// Market size may be expressed in customers, revenue, or both. Whichever
	// is present anchors the trial; the other is derived at the sampled price
	// and frequency.
	var mktCust, mktRev float64
	switch {
	case resolved.MarketCustomers != nil && resolved.MarketRevenueUSD != nil:
		mktCust = resolved.MarketCustomers.Tri.Sample(rng)
		mktRev = resolved.MarketRevenueUSD.Tri.Sample(rng)
	case resolved.MarketCustomers != nil:
		mktCust = resolved.MarketCustomers.Tri.Sample(rng)
		mktRev = mktCust * perCustomer
	default:
		mktRev = resolved.MarketRevenueUSD.Tri.Sample(rng)
		mktCust = mktRev / perCustomer
	}
	if mktRev < revenueEpsilonUSD {
		mktRev = revenueEpsilonUSD
	}

	samCust := mktCust * addressable
	samRev := mktRev * addressable

	passed := walkStages(probs, rng)
	var myCust, myRev, share float64
	if passed > 0 {
		penetration := penetrationBase * maxPen
		myCust = samCust * penetration
		stageFactor := 1.0
		if resolved.StageRevenueFactor != nil {
			reached := Stages[passed-1]
			if a, ok := resolved.StageRevenueFactor[reached]; ok {
				stageFactor = a.Tri.Sample(rng)
			}
		}
		myRev = myCust * perCustomer * stageFactor
		share = myRev / mktRev
		if share < 0 {
			share = 0
		} else if share > 1 {
			share = 1
		}
	}

	out.share = append(out.share, share)
	out.myRev = append(out.myRev, myRev)
	out.mktRev = append(out.mktRev, mktRev)
	out.samRev = append(out.samRev, samRev)
	out.myCust = append(out.myCust, myCust)
	out.mktCust = append(out.mktCust, mktCust)
	out.samCust = append(out.samCust, samCust)
}

func buildMarketResult(trials int, usedFallback bool, all marketTrials) MarketShareResult {
	share := summarize(all.share)
	myRev := summarize(all.myRev)
	mktRev := summarize(all.mktRev)
	samRev := summarize(all.samRev)
	myCust := summarize(all.myCust)
	mktCust := summarize(all.mktCust)
	samCust := summarize(all.samCust)

	return MarketShareResult{
		Trials:           trials,
		Share:            share,
		MyRevenueUSD:     myRev,
		MarketRevenueUSD: mktRev,
		SAMRevenueUSD:    samRev,
		MyCustomers:      myCust,
		MarketCustomers:  mktCust,
		SAMCustomers:     samCust,
		Layers: MarketLayers{
			TotalCustomers:     mktCust.P50,
			SAMCustomers:       samCust.P50,
			ObtainedCustomers:  myCust.P50,
			TotalRevenueUSD:    mktRev.P50,
			SAMRevenueUSD:      samRev.P50,
			ObtainedRevenueUSD: myRev.P50,
		},
		UsedSyntheticFallback: usedFallback,
	}
}

// summarize sorts in place and reports the mean plus nearest-rank
// percentiles.
func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sort.Float64s(values)
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Summary{
		Mean: sum / float64(len(values)),
		P10:  nearestRank(values, 10),
		P50:  nearestRank(values, 50),
		P90:  nearestRank(values, 90),
	}
}

func nearestRank(sorted []float64, pct int) float64 {
	rank := (pct*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
