package simulation

import (
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"time"
)

// Per-worker seeds are spaced by a large odd stride (the 64-bit golden
// ratio constant, reinterpreted as a signed value) so independent streams
// never collide for realistic worker counts.
const workerSeedStride = int64(-0x61C8864680B583EB)

var ErrNegativeTrials = errors.New("simulation: trial count must be positive")

func (o Options) normalize() (Options, error) {
	if o.Trials < 0 {
		return o, ErrNegativeTrials
	}
	if o.Trials == 0 {
		o.Trials = DefaultTrials
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
		if o.Workers > 4 {
			o.Workers = 4
		}
	}
	if o.Workers > o.Trials {
		o.Workers = o.Trials
	}
	return o, nil
}

// survivalProbs precomputes the deterministic pass probability per stage.
func survivalProbs(scores ScoreVector) []float64 {
	probs := make([]float64, len(Stages))
	for i, stage := range Stages {
		probs[i] = stageSurvivalProb(scores, stage)
	}
	return probs
}

// walkStages runs one trial through the funnel, one uniform draw per stage,
// and returns how many stages were passed (0..len(probs)). A return equal to
// len(probs) is a full survivor.
func walkStages(probs []float64, rng *rand.Rand) int {
	for i, p := range probs {
		if rng.Float64() > p {
			return i
		}
	}
	return len(probs)
}

type stageTally struct {
	entries   []int
	deaths    []int
	survivors int
}

func newStageTally(n int) stageTally {
	return stageTally{entries: make([]int, n), deaths: make([]int, n)}
}

func (t *stageTally) record(passed int) {
	for i := 0; i <= passed && i < len(t.entries); i++ {
		t.entries[i]++
	}
	if passed < len(t.deaths) {
		t.deaths[passed]++
	} else {
		t.survivors++
	}
}

func (t *stageTally) merge(other stageTally) {
	for i := range t.entries {
		t.entries[i] += other.entries[i]
		t.deaths[i] += other.deaths[i]
	}
	t.survivors += other.survivors
}

// SimulateStages runs opts.Trials independent stage walks and aggregates the
// funnel statistics. Trials are partitioned across workers, each with its own
// seeded random stream; partial tallies are merged once after all workers
// finish.
func SimulateStages(scores ScoreVector, opts Options) (StageResult, error) {
	opts, err := opts.normalize()
	if err != nil {
		return StageResult{}, err
	}

	probs := survivalProbs(scores)
	parts := make([]stageTally, opts.Workers)
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(opts.Seed + int64(w)*workerSeedStride))
			tally := newStageTally(len(Stages))
			for i := 0; i < workerShare(opts.Trials, opts.Workers, w); i++ {
				tally.record(walkStages(probs, rng))
			}
			parts[w] = tally
		}(w)
	}
	wg.Wait()

	total := newStageTally(len(Stages))
	for _, p := range parts {
		total.merge(p)
	}
	return buildStageResult(scores, opts.Trials, probs, total), nil
}

// workerShare splits trials as evenly as possible, front-loading remainders.
func workerShare(trials, workers, w int) int {
	share := trials / workers
	if w < trials%workers {
		share++
	}
	return share
}

func buildStageResult(scores ScoreVector, trials int, probs []float64, t stageTally) StageResult {
	outcomes := make([]StageOutcome, len(Stages))
	bottleneck := Stages[0]
	bottleneckRate := -1.0
	for i, stage := range Stages {
		deathRate := 0.0
		if t.entries[i] > 0 {
			deathRate = float64(t.deaths[i]) / float64(t.entries[i])
		}
		outcomes[i] = StageOutcome{
			Stage:             stage,
			Entries:           t.entries[i],
			Deaths:            t.deaths[i],
			DeathRate:         deathRate,
			StageSurvivalRate: 1 - deathRate,
			ReachRate:         float64(t.entries[i]) / float64(trials),
			PassProbability:   probs[i],
		}
		// Bottleneck is the highest conditional death rate, not the largest
		// raw death count, which would bias toward early stages.
		if deathRate > bottleneckRate {
			bottleneckRate = deathRate
			bottleneck = stage
		}
	}
	return StageResult{
		Trials:          trials,
		Survivors:       t.survivors,
		SurvivalRatePct: 100 * float64(t.survivors) / float64(trials),
		Bottleneck:      bottleneck,
		Stages:          outcomes,
		AudienceScore:   scores.PotentialCustomers,
		AudienceBand:    BandForScore(scores.PotentialCustomers),
	}
}
