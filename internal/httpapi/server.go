package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/venturesim/internal/report"
	"github.com/joelkehle/venturesim/internal/runstore"
	"github.com/joelkehle/venturesim/internal/scoring"
	"github.com/joelkehle/venturesim/internal/simulation"
)

// Market modes accepted by POST /v1/analyze.
const (
	MarketModeNone   = "none"
	MarketModeManual = "manual"
	MarketModeAuto   = "auto"
)

type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

const (
	CodeValidation  = "validation_error"
	CodeNotFound    = "not_found"
	CodeUnavailable = "unavailable"
	CodeUpstream    = "upstream_error"
	CodeInternal    = "internal_error"
)

// ScoreGenerator produces a score card from a venture profile. Nil disables
// LLM scoring; requests must then carry explicit scores.
type ScoreGenerator interface {
	Score(ctx context.Context, profile scoring.VentureProfile) (scoring.ScoreCard, error)
}

// AssumptionEstimator produces market assumptions from external research.
// Nil disables auto market mode.
type AssumptionEstimator interface {
	Estimate(ctx context.Context, profile scoring.VentureProfile) (*simulation.MarketAssumptions, error)
}

// PDFRenderer turns an analysis into a PDF document. Nil disables the
// format=pdf report variant.
type PDFRenderer interface {
	Render(ctx context.Context, a report.Analysis) ([]byte, error)
}

type Server struct {
	store     *runstore.Store
	scorer    ScoreGenerator
	estimator AssumptionEstimator
	pdf       PDFRenderer
}

func NewServer(store *runstore.Store, scorer ScoreGenerator, estimator AssumptionEstimator, pdf PDFRenderer) http.Handler {
	s := &Server{
		store:     store,
		scorer:    scorer,
		estimator: estimator,
		pdf:       pdf,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/v1/runs", s.handleListRuns)
	mux.HandleFunc("/v1/runs/", s.handleRunByID)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	var ae *Error
	if errors.As(err, &ae) {
		writeJSON(w, ae.Status, map[string]any{"ok": false, "error": ae})
		return
	}
	writeJSON(w, 500, map[string]any{
		"ok":    false,
		"error": &Error{Code: CodeInternal, Message: err.Error()},
	})
}

func validationError(msg string) *Error {
	return &Error{Status: 400, Code: CodeValidation, Message: msg}
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

type analyzeRequest struct {
	Profile       scoring.VentureProfile        `json:"profile"`
	Scores        simulation.RawScores          `json:"scores"`
	MarketMode    string                        `json:"market_mode"`
	Assumptions   *simulation.MarketAssumptions `json:"assumptions"`
	AllowFallback bool                          `json:"allow_fallback"`
	Trials        int                           `json:"trials"`
	Seed          int64                         `json:"seed"`
	Workers       int                           `json:"workers"`
}

type analyzeResponse struct {
	OK       bool                 `json:"ok"`
	RunID    string               `json:"run_id"`
	Result   simulation.Result    `json:"result"`
	Resolved *simulation.Resolved `json:"resolved,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeError(w, validationError("unreadable request body"))
		return
	}
	var req analyzeRequest
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, validationError("invalid JSON: "+err.Error()))
		return
	}
	if req.MarketMode == "" {
		req.MarketMode = MarketModeNone
	}
	switch req.MarketMode {
	case MarketModeNone, MarketModeManual, MarketModeAuto:
	default:
		writeError(w, validationError("market_mode must be none, manual, or auto"))
		return
	}
	if req.Trials < 0 {
		writeError(w, validationError("trials must be non-negative"))
		return
	}

	ctx := r.Context()

	scores, scoreCard, err := s.resolveScores(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	assumptions, err := s.resolveAssumptions(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	allowFallback := req.AllowFallback && req.MarketMode != MarketModeNone
	result, err := simulation.Run(scores, assumptions, allowFallback, simulation.Options{
		Trials:  req.Trials,
		Seed:    req.Seed,
		Workers: req.Workers,
	})
	if err != nil {
		writeError(w, validationError(err.Error()))
		return
	}

	var resolved *simulation.Resolved
	if req.MarketMode != MarketModeNone {
		res := simulation.Resolve(assumptions, allowFallback)
		resolved = &res
	}

	analysis := report.Analysis{
		RunID:     uuid.NewString(),
		Profile:   req.Profile,
		ScoreCard: scoreCard,
		Result:    result,
		Resolved:  resolved,
		CreatedAt: time.Now().UTC(),
	}

	if s.store != nil {
		run := &runstore.Run{
			ID:              analysis.RunID,
			VentureName:     req.Profile.Name,
			MarketMode:      req.MarketMode,
			SurvivalRatePct: result.StageResult.SurvivalRatePct,
			Bottleneck:      string(result.StageResult.Bottleneck),
			CreatedAt:       analysis.CreatedAt,
			Analysis:        analysis,
		}
		if err := s.store.Save(run); err != nil {
			log.Printf("analyze: persist run %s: %v", analysis.RunID, err)
		}
	}

	writeJSON(w, 200, analyzeResponse{
		OK:       true,
		RunID:    analysis.RunID,
		Result:   result,
		Resolved: resolved,
	})
}

// resolveScores prefers explicit raw scores and falls back to the LLM scorer.
func (s *Server) resolveScores(ctx context.Context, req analyzeRequest) (simulation.ScoreVector, *scoring.ScoreCard, error) {
	if len(req.Scores) > 0 {
		return simulation.Sanitize(req.Scores, scoring.DefaultScoreFallback), nil, nil
	}
	if s.scorer == nil {
		return simulation.ScoreVector{}, nil, validationError("scores are required: LLM scoring is not configured")
	}
	if strings.TrimSpace(req.Profile.Name) == "" && strings.TrimSpace(req.Profile.Summary) == "" {
		return simulation.ScoreVector{}, nil, validationError("profile.name or profile.summary is required for LLM scoring")
	}
	card, err := s.scorer.Score(ctx, req.Profile)
	if err != nil {
		return simulation.ScoreVector{}, nil, &Error{Status: 502, Code: CodeUpstream, Message: "scoring failed: " + err.Error()}
	}
	return card.Scores, &card, nil
}

func (s *Server) resolveAssumptions(ctx context.Context, req analyzeRequest) (*simulation.MarketAssumptions, error) {
	switch req.MarketMode {
	case MarketModeNone:
		return nil, nil
	case MarketModeManual:
		if req.Assumptions == nil {
			// Resolve against an empty set so the response lists what is missing.
			return &simulation.MarketAssumptions{}, nil
		}
		return simulation.WithDefaultSource(req.Assumptions, simulation.ProvenanceUser), nil
	}

	// Auto mode.
	if s.estimator == nil {
		return nil, &Error{Status: 503, Code: CodeUnavailable, Message: "market_mode auto: research estimator is not configured"}
	}
	assumptions, err := s.estimator.Estimate(ctx, req.Profile)
	if err != nil {
		if req.AllowFallback {
			log.Printf("analyze: market estimation failed, continuing with fallback: %v", err)
			return nil, nil
		}
		return nil, &Error{Status: 502, Code: CodeUpstream, Message: "market estimation failed: " + err.Error()}
	}
	return assumptions, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	if s.store == nil {
		writeError(w, &Error{Status: 503, Code: CodeUnavailable, Message: "run persistence is not configured"})
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	runs, err := s.store.List(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"runs": runs})
}

func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, &Error{Status: 503, Code: CodeUnavailable, Message: "run persistence is not configured"})
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	path = strings.TrimSuffix(path, "/")
	wantReport := false
	if strings.HasSuffix(path, "/report") {
		wantReport = true
		path = strings.TrimSuffix(path, "/report")
	}
	runID := strings.TrimSpace(path)
	if runID == "" || strings.Contains(runID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if r.Method == http.MethodDelete && !wantReport {
		s.deleteRun(w, runID)
		return
	}
	if !methodOnly(w, r, http.MethodGet) {
		return
	}

	run, err := s.store.Get(runID)
	if err != nil {
		if errors.Is(err, runstore.ErrNotFound) {
			writeError(w, &Error{Status: 404, Code: CodeNotFound, Message: "run not found"})
			return
		}
		writeError(w, err)
		return
	}

	if !wantReport {
		writeJSON(w, 200, run)
		return
	}
	s.serveReport(w, r, run)
}

func (s *Server) deleteRun(w http.ResponseWriter, runID string) {
	if err := s.store.Delete(runID); err != nil {
		if errors.Is(err, runstore.ErrNotFound) {
			writeError(w, &Error{Status: 404, Code: CodeNotFound, Message: "run not found"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}

func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, run *runstore.Run) {
	format := strings.TrimSpace(r.URL.Query().Get("format"))
	switch format {
	case "", "markdown", "md":
		markdown := report.BuildMarkdown(run.Analysis)
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, markdown)
	case "pdf":
		if s.pdf == nil {
			writeError(w, &Error{Status: 501, Code: CodeUnavailable, Message: "PDF rendering is not configured"})
			return
		}
		blob, err := s.pdf.Render(r.Context(), run.Analysis)
		if err != nil {
			writeError(w, &Error{Status: 502, Code: CodeUpstream, Message: "PDF rendering failed: " + err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="venture-report-`+run.ID+`.pdf"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(blob)
	default:
		writeError(w, validationError("format must be markdown or pdf"))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":         true,
		"capability": simulation.CapabilityVentureSimulation,
		"persisted":  s.store != nil,
		"scorer":     s.scorer != nil,
		"estimator":  s.estimator != nil,
		"pdf":        s.pdf != nil,
	})
}
