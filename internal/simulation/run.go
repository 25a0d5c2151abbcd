package simulation

// Run performs one full analysis. The stage survival simulation always runs.
// The market simulation runs when assumptions resolve to ready; when they do
// not, the result carries MarketNeeded plus the missing field names for the
// caller to branch on. A nil assumptions with fallback disallowed means the
// caller did not request a market estimate at all.
func Run(scores ScoreVector, assumptions *MarketAssumptions, allowFallback bool, opts Options) (Result, error) {
	stageRes, err := SimulateStages(scores, opts)
	if err != nil {
		return Result{}, err
	}
	res := Result{Scores: scores, StageResult: stageRes}

	if assumptions == nil && !allowFallback {
		return res, nil
	}

	resolved := Resolve(assumptions, allowFallback)
	if !resolved.Ready {
		res.MarketNeeded = true
		res.MissingFields = resolved.MissingFields
		return res, nil
	}

	market, err := SimulateMarket(scores, resolved, opts)
	if err != nil {
		return Result{}, err
	}
	res.Market = &market
	return res, nil
}
