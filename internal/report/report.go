package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/venturesim/internal/scoring"
	"github.com/joelkehle/venturesim/internal/simulation"
)

const Disclaimer = "This is a preliminary automated survival and market-share simulation, not a valuation or investment recommendation. " +
	"Estimates are based on qualitative scores and three-point market assumptions."

// Reference URLs used in the report markdown.
const (
	monteCarloURL     = "https://www.investopedia.com/terms/m/montecarlosimulation.asp"
	triangularDistURL = "https://en.wikipedia.org/wiki/Triangular_distribution"
	samURL            = "https://www.investopedia.com/terms/s/serviceable-available-market.asp"
	tamURL            = "https://www.investopedia.com/terms/t/tam.asp"
	marketShareURL    = "https://www.investopedia.com/terms/m/marketshare.asp"
)

// Analysis bundles everything one report covers: the sanitized scores (and,
// when the LLM scorer produced them, its reasoning), the simulation result,
// and the resolved assumptions behind the market estimate.
type Analysis struct {
	RunID     string                 `json:"run_id"`
	Profile   scoring.VentureProfile `json:"profile"`
	ScoreCard *scoring.ScoreCard     `json:"score_card,omitempty"`
	Result    simulation.Result      `json:"result"`
	Resolved  *simulation.Resolved   `json:"resolved,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func BuildMarkdown(a Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Venture Simulation Report\n\n")
	fmt.Fprintf(&b, "- Run ID: %s\n", sanitize(a.RunID))
	if a.Profile.Name != "" {
		fmt.Fprintf(&b, "- Venture: %s\n", sanitize(a.Profile.Name))
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	fmt.Fprintf(&b, "- Date: %s\n\n", created.Format(time.RFC3339))
	fmt.Fprintf(&b, "%s\n\n", Disclaimer)

	// --- How This Report Works ---
	fmt.Fprintf(&b, "## How This Report Works\n\n")
	fmt.Fprintf(&b, "The engine runs a [Monte Carlo simulation](%s): %d independent trials walk the venture "+
		"through the five growth stages (Seed, MVP, PMF, Scale-up, Unicorn). At each stage a weighted blend of the "+
		"venture's scores sets a survival probability, and one random draw decides whether the trial lives or dies there. "+
		"The funnel below aggregates those trials.\n\n", monteCarloURL, a.Result.StageResult.Trials)
	fmt.Fprintf(&b, "When market assumptions are available, a second simulation samples market size, price, purchase "+
		"frequency, and penetration cap from their [three-point ranges](%s) each trial and derives a "+
		"[market share](%s) estimate. Each assumption carries a source tag:\n\n", triangularDistURL, marketShareURL)
	fmt.Fprintf(&b, "| Tag | Meaning |\n|-----|--------|\n")
	fmt.Fprintf(&b, "| `user` | Supplied directly by the requester |\n")
	fmt.Fprintf(&b, "| `external-estimate` | Extracted from web research results |\n")
	fmt.Fprintf(&b, "| `synthetic-fallback` | Conservative internal prior used because no data was available |\n\n")

	// --- Survival Funnel ---
	sr := a.Result.StageResult
	fmt.Fprintf(&b, "## Stage Survival\n\n")
	fmt.Fprintf(&b, "- Overall survival rate: **%.1f%%** (%d of %d trials completed every stage)\n", sr.SurvivalRatePct, sr.Survivors, sr.Trials)
	fmt.Fprintf(&b, "- Bottleneck stage: **%s** (highest conditional death rate)\n", sr.Bottleneck)
	fmt.Fprintf(&b, "- Audience: score %d, band `%s`\n\n", sr.AudienceScore, sr.AudienceBand)

	fmt.Fprintf(&b, "| Stage | Entered | Died | Death Rate | Reach Rate | Pass Probability |\n")
	fmt.Fprintf(&b, "|-------|---------|------|------------|------------|------------------|\n")
	for _, s := range sr.Stages {
		fmt.Fprintf(&b, "| %s | %d | %d | %.1f%% | %.1f%% | %.1f%% |\n",
			s.Stage, s.Entries, s.Deaths, 100*s.DeathRate, 100*s.ReachRate, 100*s.PassProbability)
	}
	fmt.Fprintf(&b, "\n**How to read this table**: Reach Rate is the share of all trials that made it into the stage; "+
		"Death Rate is the share of those that failed there. Pass Probability is the deterministic per-stage probability "+
		"implied by the scores, independent of sampling noise.\n\n---\n\n")

	// --- Market Share ---
	fmt.Fprintf(&b, "## Market Share\n\n")
	switch {
	case a.Result.Market != nil:
		writeMarketSection(&b, a.Result.Market)
	case a.Result.MarketNeeded:
		fmt.Fprintf(&b, "**Market data needed** — the following assumptions are missing and synthetic fallback was not allowed:\n\n")
		for _, f := range a.Result.MissingFields {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		fmt.Fprintf(&b, "\nSupply the missing ranges, or re-run in automatic mode to let the researcher estimate them.\n\n")
	default:
		fmt.Fprintf(&b, "Market estimation was not requested for this run.\n\n")
	}
	fmt.Fprintf(&b, "---\n\n")

	// --- Score Detail ---
	fmt.Fprintf(&b, "## Score Detail\n\n")
	fmt.Fprintf(&b, "| Dimension | Score |%s\n", scoreHeaderSuffix(a.ScoreCard))
	fmt.Fprintf(&b, "|-----------|-------|%s\n", scoreDividerSuffix(a.ScoreCard))
	for _, stat := range simulation.Stats {
		if a.ScoreCard != nil {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", stat, a.Result.Scores.Stat(stat), sanitizeCell(a.ScoreCard.Reasoning[string(stat)]))
		} else {
			fmt.Fprintf(&b, "| %s | %d |\n", stat, a.Result.Scores.Stat(stat))
		}
	}
	fmt.Fprintf(&b, "\n")
	if a.ScoreCard != nil && a.ScoreCard.Notes != "" {
		fmt.Fprintf(&b, "%s\n\n", sanitize(a.ScoreCard.Notes))
	}
	fmt.Fprintf(&b, "---\n\n")

	// --- Assumptions Audit Trail ---
	fmt.Fprintf(&b, "## Assumptions Audit Trail\n\n")
	writeAuditTrail(&b, a.Resolved)

	// --- Appendix ---
	fmt.Fprintf(&b, "## Appendix\n\n")
	fmt.Fprintf(&b, "### Glossary\n\n")
	fmt.Fprintf(&b, "| Term | Definition |\n|------|------------|\n")
	fmt.Fprintf(&b, "| Stage | One ordered milestone in the venture funnel (Seed through Unicorn) |\n")
	fmt.Fprintf(&b, "| Trial | One independent stochastic walk through the stage sequence |\n")
	fmt.Fprintf(&b, "| Bottleneck stage | The stage with the highest conditional death rate among trials that reached it |\n")
	fmt.Fprintf(&b, "| [Three-point estimate](%s) | A triangular min/mode/max range expressing an uncertain market quantity |\n", triangularDistURL)
	fmt.Fprintf(&b, "| [TAM](%s) | The whole market the assumptions describe |\n", tamURL)
	fmt.Fprintf(&b, "| [SAM](%s) | The serviceable-addressable slice, given scope and audience fit |\n", samURL)
	fmt.Fprintf(&b, "| Penetration fraction | The modeled share of SAM converted to customers, capped by max penetration |\n\n")

	fmt.Fprintf(&b, "### Simulation Output (JSON)\n\n```json\n%s\n```\n", prettyJSON(a.Result))
	return b.String()
}

func writeMarketSection(b *strings.Builder, m *simulation.MarketShareResult) {
	if m.UsedSyntheticFallback {
		fmt.Fprintf(b, "> Some assumptions were filled from conservative synthetic priors. Treat the figures below as order-of-magnitude only.\n\n")
	}
	fmt.Fprintf(b, "- Expected market share: **%.2f%%** (p10 %.2f%%, median %.2f%%, p90 %.2f%%)\n",
		100*m.Share.Mean, 100*m.Share.P10, 100*m.Share.P50, 100*m.Share.P90)
	fmt.Fprintf(b, "- Expected annual revenue: **$%s** (p10 $%s, median $%s, p90 $%s)\n\n",
		fmtUSDf(m.MyRevenueUSD.Mean), fmtUSDf(m.MyRevenueUSD.P10), fmtUSDf(m.MyRevenueUSD.P50), fmtUSDf(m.MyRevenueUSD.P90))

	fmt.Fprintf(b, "| Layer | Customers (median) | Revenue (median) |\n")
	fmt.Fprintf(b, "|-------|--------------------|------------------|\n")
	fmt.Fprintf(b, "| Total market | %s | $%s |\n", fmtUSDf(m.Layers.TotalCustomers), fmtUSDf(m.Layers.TotalRevenueUSD))
	fmt.Fprintf(b, "| Serviceable-addressable (SAM) | %s | $%s |\n", fmtUSDf(m.Layers.SAMCustomers), fmtUSDf(m.Layers.SAMRevenueUSD))
	fmt.Fprintf(b, "| Obtained (yours) | %s | $%s |\n\n", fmtUSDf(m.Layers.ObtainedCustomers), fmtUSDf(m.Layers.ObtainedRevenueUSD))
}

func writeAuditTrail(b *strings.Builder, resolved *simulation.Resolved) {
	if resolved == nil {
		fmt.Fprintf(b, "- No market assumptions recorded for this run.\n\n")
		return
	}
	wrote := false
	add := func(name string, a *simulation.Assumption) {
		if a == nil {
			return
		}
		wrote = true
		fmt.Fprintf(b, "- [%s] %s: %s / %s / %s\n", a.Source, name,
			fmtQty(a.Tri.Min), fmtQty(a.Tri.Mode), fmtQty(a.Tri.Max))
	}
	add("market_customers", resolved.MarketCustomers)
	add("market_revenue_usd", resolved.MarketRevenueUSD)
	add("price_usd", resolved.PriceUSD)
	add("purchase_freq_per_year", resolved.PurchaseFreqPerYear)
	add("max_penetration", resolved.MaxPenetration)
	for _, stage := range simulation.Stages {
		if a, ok := resolved.StageRevenueFactor[stage]; ok {
			copied := a
			add(fmt.Sprintf("stage_revenue_factor[%s]", stage), &copied)
		}
	}
	if !wrote {
		fmt.Fprintf(b, "- No explicit assumptions recorded.\n")
	}
	fmt.Fprintf(b, "\n")
}

func scoreHeaderSuffix(card *scoring.ScoreCard) string {
	if card != nil {
		return " Reasoning |"
	}
	return ""
}

func scoreDividerSuffix(card *scoring.ScoreCard) string {
	if card != nil {
		return "-----------|"
	}
	return ""
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// sanitizeCell prepares text for a markdown table cell: strips newlines and
// escapes pipes that would break the column structure.
func sanitizeCell(s string) string {
	s = sanitize(s)
	return strings.ReplaceAll(s, "|", "\\|")
}

// fmtUSD formats an integer dollar amount with comma separators.
func fmtUSD(n int64) string {
	if n < 0 {
		return "-" + fmtUSD(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	rem := len(s) % 3
	if rem > 0 {
		b.WriteString(s[:rem])
	}
	for i := rem; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func fmtUSDf(n float64) string {
	return fmtUSD(int64(n))
}

// fmtQty renders an assumption bound, keeping sub-unit quantities readable.
func fmtQty(v float64) string {
	if v != 0 && v < 1 {
		return fmt.Sprintf("%.3f", v)
	}
	return fmtUSDf(v)
}
