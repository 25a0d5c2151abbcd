package runstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/venturesim/internal/report"
)

var ErrNotFound = errors.New("runstore: run not found")

// Run is one persisted analysis: the request context and the full result,
// stored as JSON alongside a few queryable columns.
type Run struct {
	ID              string          `json:"id"`
	VentureName     string          `json:"venture_name"`
	MarketMode      string          `json:"market_mode"`
	SurvivalRatePct float64         `json:"survival_rate"`
	Bottleneck      string          `json:"bottleneck_stage"`
	CreatedAt       time.Time       `json:"created_at"`
	Analysis        report.Analysis `json:"analysis"`
}

// RunSummary is the list view: everything except the analysis payload.
type RunSummary struct {
	ID              string    `json:"id"`
	VentureName     string    `json:"venture_name"`
	MarketMode      string    `json:"market_mode"`
	SurvivalRatePct float64   `json:"survival_rate"`
	Bottleneck      string    `json:"bottleneck_stage"`
	CreatedAt       time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	venture_name  TEXT NOT NULL DEFAULT '',
	market_mode   TEXT NOT NULL DEFAULT 'none',
	survival_rate REAL NOT NULL DEFAULT 0,
	bottleneck    TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	analysis      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at DESC);
`

// Store persists analysis runs to SQLite with write-through semantics. The
// engine stays stateless; history lives with the request-handling layer.
type Store struct {
	db *sqlx.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save assigns the run an ID and timestamp if absent and persists it.
func (s *Store) Save(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(run.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO runs (run_id, venture_name, market_mode, survival_rate, bottleneck, created_at, analysis)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.VentureName,
		run.MarketMode,
		run.SurvivalRatePct,
		run.Bottleneck,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(payload),
	)
	return err
}

func (s *Store) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT run_id, venture_name, market_mode, survival_rate, bottleneck, created_at, analysis
		FROM runs WHERE run_id = ?`, runID)

	var run Run
	var createdAt, payload string
	if err := row.Scan(&run.ID, &run.VentureName, &run.MarketMode, &run.SurvivalRatePct, &run.Bottleneck, &createdAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if err := json.Unmarshal([]byte(payload), &run.Analysis); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return &run, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT run_id, venture_name, market_mode, survival_rate, bottleneck, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var createdAt string
		if err := rows.Scan(&r.ID, &r.VentureName, &r.MarketMode, &r.SurvivalRatePct, &r.Bottleneck, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Delete(runID string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
