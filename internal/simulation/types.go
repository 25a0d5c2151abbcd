package simulation

const (
	CapabilityVentureSimulation = "venture-simulation-engine"
	DefaultTrials               = 1500
)

// Stat names one of the eleven qualitative score dimensions. The set is
// closed: stage weight tables and the sanitizer only ever reference these.
type Stat string

const (
	StatProduct            Stat = "product"
	StatFounder            Stat = "founder"
	StatStrategy           Stat = "strategy"
	StatMarketing          Stat = "marketing"
	StatConsumerNeeds      Stat = "consumer_needs"
	StatConceptFit         Stat = "concept_fit"
	StatPriceFit           Stat = "price_fit"
	StatBusinessModelFit   Stat = "business_model_fit"
	StatDistribution       Stat = "distribution"
	StatMarketScope        Stat = "market_scope"
	StatPotentialCustomers Stat = "potential_customers"
)

var Stats = []Stat{
	StatProduct,
	StatFounder,
	StatStrategy,
	StatMarketing,
	StatConsumerNeeds,
	StatConceptFit,
	StatPriceFit,
	StatBusinessModelFit,
	StatDistribution,
	StatMarketScope,
	StatPotentialCustomers,
}

type Stage string

const (
	StageSeed    Stage = "Seed"
	StageMVP     Stage = "MVP"
	StagePMF     Stage = "PMF"
	StageScaleUp Stage = "Scale-up"
	StageUnicorn Stage = "Unicorn"
)

// Stages in funnel order. A trial can only enter a stage after surviving
// every stage before it.
var Stages = []Stage{StageSeed, StageMVP, StagePMF, StageScaleUp, StageUnicorn}

type AudienceBand string

const (
	AudienceTiny  AudienceBand = "Tiny"
	AudienceNiche AudienceBand = "Niche"
	AudienceMid   AudienceBand = "Mid"
	AudienceBroad AudienceBand = "Broad"
	AudienceMass  AudienceBand = "Mass"
)

// ScoreVector is a sanitized, fixed-shape score set, every value in [0,100].
// Construct it through Sanitize; the engine itself never re-validates.
type ScoreVector struct {
	Product            int `json:"product"`
	Founder            int `json:"founder"`
	Strategy           int `json:"strategy"`
	Marketing          int `json:"marketing"`
	ConsumerNeeds      int `json:"consumer_needs"`
	ConceptFit         int `json:"concept_fit"`
	PriceFit           int `json:"price_fit"`
	BusinessModelFit   int `json:"business_model_fit"`
	Distribution       int `json:"distribution"`
	MarketScope        int `json:"market_scope"`
	PotentialCustomers int `json:"potential_customers"`
}

func (v ScoreVector) Stat(s Stat) int {
	switch s {
	case StatProduct:
		return v.Product
	case StatFounder:
		return v.Founder
	case StatStrategy:
		return v.Strategy
	case StatMarketing:
		return v.Marketing
	case StatConsumerNeeds:
		return v.ConsumerNeeds
	case StatConceptFit:
		return v.ConceptFit
	case StatPriceFit:
		return v.PriceFit
	case StatBusinessModelFit:
		return v.BusinessModelFit
	case StatDistribution:
		return v.Distribution
	case StatMarketScope:
		return v.MarketScope
	case StatPotentialCustomers:
		return v.PotentialCustomers
	}
	return 0
}

// Options controls one simulation call. Zero values select the defaults:
// DefaultTrials trials, a time-derived seed, and a small worker fan-out.
type Options struct {
	Trials  int
	Seed    int64
	Workers int
}

type StageOutcome struct {
	Stage             Stage   `json:"stage"`
	Entries           int     `json:"entries"`
	Deaths            int     `json:"deaths"`
	DeathRate         float64 `json:"death_rate"`
	StageSurvivalRate float64 `json:"stage_survival_rate"`
	ReachRate         float64 `json:"reach_rate"`
	// PassProbability is the deterministic logistic survival probability for
	// the input vector, independent of sampling noise.
	PassProbability float64 `json:"pass_probability"`
}

type StageResult struct {
	Trials          int            `json:"trials"`
	Survivors       int            `json:"survivors"`
	SurvivalRatePct float64        `json:"survival_rate"`
	Bottleneck      Stage          `json:"bottleneck_stage"`
	Stages          []StageOutcome `json:"stages"`
	AudienceScore   int            `json:"potential_customers_score"`
	AudienceBand    AudienceBand   `json:"potential_customers_band"`
}

// Summary holds the mean and nearest-rank percentiles of one trial metric.
type Summary struct {
	Mean float64 `json:"mean"`
	P10  float64 `json:"p10"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
}

// MarketLayers carries the median funnel figures: the whole market, the
// serviceable-addressable slice, and the slice this venture obtains.
type MarketLayers struct {
	TotalCustomers     float64 `json:"total_customers"`
	SAMCustomers       float64 `json:"sam_customers"`
	ObtainedCustomers  float64 `json:"obtained_customers"`
	TotalRevenueUSD    float64 `json:"total_revenue_usd"`
	SAMRevenueUSD      float64 `json:"sam_revenue_usd"`
	ObtainedRevenueUSD float64 `json:"obtained_revenue_usd"`
}

type MarketShareResult struct {
	Trials                int          `json:"trials"`
	Share                 Summary      `json:"share"`
	MyRevenueUSD          Summary      `json:"my_revenue_usd"`
	MarketRevenueUSD      Summary      `json:"market_revenue_usd"`
	SAMRevenueUSD         Summary      `json:"sam_revenue_usd"`
	MyCustomers           Summary      `json:"my_customers"`
	MarketCustomers       Summary      `json:"market_customers"`
	SAMCustomers          Summary      `json:"sam_customers"`
	Layers                MarketLayers `json:"layers"`
	UsedSyntheticFallback bool         `json:"used_synthetic_fallback"`
}

// Result is the full output of Run. Market is nil when assumptions were
// absent or not ready; MarketNeeded plus MissingFields tell the caller why.
type Result struct {
	Scores        ScoreVector        `json:"scores"`
	StageResult   StageResult        `json:"stage_result"`
	Market        *MarketShareResult `json:"market,omitempty"`
	MarketNeeded  bool               `json:"market_needed"`
	MissingFields []string           `json:"missing_fields,omitempty"`
}

func BandForScore(score int) AudienceBand {
	switch {
	case score >= 80:
		return AudienceMass
	case score >= 60:
		return AudienceBroad
	case score >= 45:
		return AudienceMid
	case score >= 30:
		return AudienceNiche
	default:
		return AudienceTiny
	}
}
