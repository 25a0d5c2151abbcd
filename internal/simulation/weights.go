package simulation

import "math"

// Stage weight profiles. Early stages lean on founder quality and concept
// clarity, mid stages on need-fit and distribution, late stages on strategy,
// marketing, and market scope. Weights are normalized by the sum actually
// used, so each table only lists stats with positive weight.
var stageWeights = map[Stage]map[Stat]float64{
	StageSeed: {
		StatFounder:            0.20,
		StatConsumerNeeds:      0.18,
		StatConceptFit:         0.16,
		StatProduct:            0.12,
		StatPotentialCustomers: 0.10,
		StatPriceFit:           0.08,
		StatBusinessModelFit:   0.08,
		StatStrategy:           0.05,
		StatDistribution:       0.02,
		StatMarketing:          0.01,
	},
	StageMVP: {
		StatConsumerNeeds:      0.18,
		StatFounder:            0.14,
		StatConceptFit:         0.14,
		StatProduct:            0.14,
		StatDistribution:       0.10,
		StatPotentialCustomers: 0.08,
		StatPriceFit:           0.07,
		StatBusinessModelFit:   0.07,
		StatMarketing:          0.06,
		StatStrategy:           0.02,
	},
	StagePMF: {
		StatConsumerNeeds:      0.18,
		StatProduct:            0.16,
		StatDistribution:       0.16,
		StatMarketing:          0.14,
		StatConceptFit:         0.10,
		StatPotentialCustomers: 0.08,
		StatPriceFit:           0.07,
		StatBusinessModelFit:   0.07,
		StatStrategy:           0.04,
	},
	StageScaleUp: {
		StatStrategy:           0.20,
		StatMarketing:          0.20,
		StatMarketScope:        0.14,
		StatDistribution:       0.14,
		StatPotentialCustomers: 0.10,
		StatProduct:            0.06,
		StatPriceFit:           0.05,
		StatBusinessModelFit:   0.05,
		StatConceptFit:         0.04,
		StatConsumerNeeds:      0.02,
	},
	StageUnicorn: {
		StatMarketing:          0.22,
		StatStrategy:           0.20,
		StatMarketScope:        0.18,
		StatDistribution:       0.12,
		StatPotentialCustomers: 0.12,
		StatProduct:            0.04,
		StatPriceFit:           0.04,
		StatBusinessModelFit:   0.04,
		StatConceptFit:         0.02,
		StatConsumerNeeds:      0.02,
	},
}

// hurdleParams feed the logistic transfer from a 0..100 weighted score to a
// per-stage survival probability. Calibration: a flat all-50 vector yields
// roughly 21% overall survival with the Unicorn stage as the bottleneck.
type hurdleParams struct {
	Center    float64
	Steepness float64
}

var stageHurdles = map[Stage]hurdleParams{
	StageSeed:    {Center: 32, Steepness: 9},
	StageMVP:     {Center: 36, Steepness: 9},
	StagePMF:     {Center: 40, Steepness: 9},
	StageScaleUp: {Center: 44, Steepness: 9},
	StageUnicorn: {Center: 47, Steepness: 9},
}

func logistic(score, center, steepness float64) float64 {
	return 1.0 / (1.0 + math.Exp(-(score-center)/steepness))
}

// weightedScore computes the normalized 0..100 weighted score for one stage.
func weightedScore(v ScoreVector, stage Stage) float64 {
	weights := stageWeights[stage]
	var sum, weightSum float64
	for stat, w := range weights {
		if w <= 0 {
			continue
		}
		sum += float64(v.Stat(stat)) * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// stageSurvivalProb is the deterministic probability a trial passes the given
// stage, before any random draw.
func stageSurvivalProb(v ScoreVector, stage Stage) float64 {
	h := stageHurdles[stage]
	p := logistic(weightedScore(v, stage), h.Center, h.Steepness)
	return math.Max(0, math.Min(1, p))
}
