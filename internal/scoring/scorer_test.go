package scoring

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/joelkehle/venturesim/internal/simulation"
)

func fullScoreJSON(score int) string {
	var sb strings.Builder
	sb.WriteString(`{"scores":{`)
	for i, stat := range simulation.Stats {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `%q:{"score":%d,"reasoning":"r"}`, string(stat), score)
	}
	sb.WriteString(`},"notes":"steady"}`)
	return sb.String()
}

func TestScorerHappyPath(t *testing.T) {
	mock := &mockCaller{responses: []string{fullScoreJSON(62)}}
	scorer := NewScorer(mock)

	card, err := scorer.Score(context.Background(), VentureProfile{
		Name:    "Acme Kombucha",
		Summary: "DTC functional beverage for office workers",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, stat := range simulation.Stats {
		if got := card.Scores.Stat(stat); got != 62 {
			t.Fatalf("%s = %d, want 62", stat, got)
		}
	}
	if card.Notes != "steady" {
		t.Fatalf("notes = %q", card.Notes)
	}
	if !strings.Contains(mock.prompts[0], "Acme Kombucha") {
		t.Fatal("prompt should embed the profile")
	}
}

func TestScorerRejectsMissingDimension(t *testing.T) {
	partial := `{"scores":{"product":{"score":50,"reasoning":"r"}},"notes":""}`
	mock := &mockCaller{responses: []string{partial, partial, partial}}
	scorer := NewScorer(mock)

	_, err := scorer.Score(context.Background(), VentureProfile{Summary: "x"})
	if err == nil {
		t.Fatal("expected validation failure for missing dimensions")
	}
	if !strings.Contains(mock.prompts[1], "missing dimension") {
		t.Fatal("validation feedback should name the missing dimension")
	}
}

func TestScorerRejectsOutOfRangeScore(t *testing.T) {
	bad := strings.Replace(fullScoreJSON(50), `"score":50`, `"score":250`, 1)
	good := fullScoreJSON(50)
	mock := &mockCaller{responses: []string{bad, good}}
	scorer := NewScorer(mock)

	card, err := scorer.Score(context.Background(), VentureProfile{Summary: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if card.Metrics.ContentRetries != 1 {
		t.Fatalf("content retries = %d, want 1", card.Metrics.ContentRetries)
	}
}

func TestScorerTruncatesLongProfiles(t *testing.T) {
	mock := &mockCaller{responses: []string{fullScoreJSON(40)}}
	scorer := NewScorer(mock)

	card, err := scorer.Score(context.Background(), VentureProfile{
		Summary: strings.Repeat("a", MaxProfileChars+500),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !card.Truncated {
		t.Fatal("oversized profile should be flagged truncated")
	}
}

func TestRenderProfileSkipsEmptyFields(t *testing.T) {
	text, truncated := renderProfile(VentureProfile{Name: "X", Summary: "y"})
	if truncated {
		t.Fatal("short profile flagged truncated")
	}
	if strings.Contains(text, "Pricing model") {
		t.Fatal("empty fields should be omitted")
	}
	if !strings.Contains(text, "Name: X") || !strings.Contains(text, "Summary: y") {
		t.Fatalf("rendered profile missing fields: %q", text)
	}
}
