package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joelkehle/venturesim/internal/httpapi"
	"github.com/joelkehle/venturesim/internal/report"
	"github.com/joelkehle/venturesim/internal/research"
	"github.com/joelkehle/venturesim/internal/runstore"
	"github.com/joelkehle/venturesim/internal/scoring"
	"github.com/joelkehle/venturesim/internal/telemetry"
)

func main() {
	dbFlag := flag.String("db", "", "path to SQLite database file (overrides DB_PATH env var)")
	noPDF := flag.Bool("no-pdf", false, "disable headless-Chromium PDF rendering")
	flag.Parse()

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "venturesim")
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = os.Getenv("DB_PATH")
	}
	if dbPath == "" {
		dbPath = "./data/runs.db"
	}
	store, err := runstore.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open run store (%s): %v", dbPath, err)
	}
	defer store.Close()
	log.Printf("using run store at %s", dbPath)

	var scorer httpapi.ScoreGenerator
	var estimator httpapi.AssumptionEstimator
	if strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")) != "" {
		caller, err := scoring.NewAnthropicCallerFromEnv()
		if err != nil {
			log.Fatal(err)
		}
		scorer = scoring.NewScorer(caller)

		if strings.TrimSpace(os.Getenv("TAVILY_API_KEY")) != "" {
			searcher, err := research.NewSearcher(research.SearchConfig{
				APIKey: os.Getenv("TAVILY_API_KEY"),
			})
			if err != nil {
				log.Fatal(err)
			}
			estimator = research.NewEstimator(searcher, caller)
		} else {
			log.Printf("TAVILY_API_KEY not set: market_mode auto disabled")
		}
	} else {
		log.Printf("ANTHROPIC_API_KEY not set: LLM scoring and auto market mode disabled")
	}

	var pdf httpapi.PDFRenderer
	if !*noPDF {
		pdf = report.NewChromiumPDFRenderer()
	}

	handler := telemetry.Middleware("venturesim", httpapi.NewServer(store, scorer, estimator, pdf))
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("venturesim listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
