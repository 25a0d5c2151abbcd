package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/venturesim/internal/report"
	"github.com/joelkehle/venturesim/internal/scoring"
	"github.com/joelkehle/venturesim/internal/simulation"
)

func main() {
	scoresPath := flag.String("scores", "", "Path to JSON file of raw scores (stat name to value)")
	assumptionsPath := flag.String("assumptions", "", "Optional path to JSON market assumptions")
	allowFallback := flag.Bool("allow-fallback", false, "Fill missing market assumptions from synthetic priors")
	name := flag.String("name", "", "Venture name for the report header")
	trials := flag.Int("trials", 0, "Trial count (0 selects the default)")
	seed := flag.Int64("seed", 0, "Random seed (0 selects a time-derived seed)")
	workers := flag.Int("workers", 0, "Worker count (0 selects the default)")
	outputPath := flag.String("output", "", "Path to write the markdown report (defaults to stdout)")
	jsonOutputPath := flag.String("json-output", "", "Optional path to write the raw result JSON")
	flag.Parse()

	if *scoresPath == "" {
		log.Fatal("missing required -scores")
	}

	raw := readScores(*scoresPath)
	scores := simulation.Sanitize(raw, scoring.DefaultScoreFallback)

	var assumptions *simulation.MarketAssumptions
	if *assumptionsPath != "" {
		assumptions = simulation.WithDefaultSource(readAssumptions(*assumptionsPath), simulation.ProvenanceUser)
	}

	result, err := simulation.Run(scores, assumptions, *allowFallback, simulation.Options{
		Trials:  *trials,
		Seed:    *seed,
		Workers: *workers,
	})
	if err != nil {
		log.Fatalf("simulation: %v", err)
	}

	analysis := report.Analysis{
		RunID:     uuid.NewString(),
		Profile:   scoring.VentureProfile{Name: *name},
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	if assumptions != nil || *allowFallback {
		resolved := simulation.Resolve(assumptions, *allowFallback)
		analysis.Resolved = &resolved
	}

	if err := writeMarkdown(*outputPath, report.BuildMarkdown(analysis)); err != nil {
		log.Fatalf("write markdown: %v", err)
	}
	if *jsonOutputPath != "" {
		if err := writeResultJSON(*jsonOutputPath, result); err != nil {
			log.Fatalf("write json output: %v", err)
		}
	}
}

func readScores(path string) simulation.RawScores {
	blob, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read scores: %v", err)
	}
	var raw simulation.RawScores
	if err := json.Unmarshal(blob, &raw); err != nil {
		log.Fatalf("decode scores JSON: %v", err)
	}
	return raw
}

func readAssumptions(path string) *simulation.MarketAssumptions {
	blob, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read assumptions: %v", err)
	}
	var a simulation.MarketAssumptions
	if err := json.Unmarshal(blob, &a); err != nil {
		log.Fatalf("decode assumptions JSON: %v", err)
	}
	return &a
}

func writeMarkdown(outputPath, markdown string) error {
	if outputPath == "" {
		_, err := fmt.Print(markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
}

func writeResultJSON(path string, result simulation.Result) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
