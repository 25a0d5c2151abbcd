package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	TavilyBaseURL             = "https://api.tavily.com"
	tavilySearchPath          = "/search"
	DefaultMaxResults         = 5
	DefaultRateLimitPerMinute = 30
)

type SearchConfig struct {
	APIKey             string
	BaseURL            string
	MaxResults         int
	RateLimitPerMinute int
	HTTPClient         *http.Client
}

// Searcher is a rate-limited client for the web search API used to ground
// market-sizing estimates.
type Searcher struct {
	cfg     SearchConfig
	limiter <-chan time.Time
}

func NewSearcher(cfg SearchConfig) (*Searcher, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("TAVILY_API_KEY not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = TavilyBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	interval := time.Minute / time.Duration(cfg.RateLimitPerMinute)
	ticker := time.NewTicker(interval)
	return &Searcher{cfg: cfg, limiter: ticker.C}, nil
}

type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchAPIResponse struct {
	Answer  string         `json:"answer"`
	Results []SearchResult `json:"results"`
}

// Search runs one query, honoring the rate limit and retrying transient
// faults.
func (s *Searcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if err := s.waitRateLimit(ctx); err != nil {
		return nil, err
	}
	resp, _, err := s.executeWithRetry(ctx, query)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (s *Searcher) waitRateLimit(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.limiter:
		return nil
	}
}

func (s *Searcher) executeWithRetry(ctx context.Context, query string) (searchAPIResponse, int, error) {
	var lastErr error
	statusCode := 0
	for attempt := 1; attempt <= 3; attempt++ {
		resp, code, retryAfter, err := s.executeOnce(ctx, query)
		statusCode = code
		if err == nil {
			return resp, statusCode, nil
		}
		lastErr = err

		if code == http.StatusBadRequest || code == http.StatusUnauthorized || code == http.StatusForbidden {
			return searchAPIResponse{}, statusCode, err
		}
		if attempt == 3 {
			break
		}
		sleep := retryAfter
		if sleep <= 0 {
			sleep = backoffDelay(attempt)
		}
		if code == http.StatusTooManyRequests || code >= 500 || isTimeoutError(err) {
			if err := sleepCtx(ctx, sleep); err != nil {
				return searchAPIResponse{}, statusCode, err
			}
			continue
		}
		return searchAPIResponse{}, statusCode, err
	}
	return searchAPIResponse{}, statusCode, lastErr
}

func (s *Searcher) executeOnce(ctx context.Context, query string) (searchAPIResponse, int, time.Duration, error) {
	body := map[string]any{
		"api_key":     s.cfg.APIKey,
		"query":       query,
		"max_results": s.cfg.MaxResults,
	}
	payload, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.cfg.BaseURL, "/")+tavilySearchPath, bytes.NewReader(payload))
	if err != nil {
		return searchAPIResponse{}, 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return searchAPIResponse{}, 0, 0, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<20))

	retryAfter := parseRetryAfter(res.Header.Get("Retry-After"))
	if res.StatusCode >= 400 {
		return searchAPIResponse{}, res.StatusCode, retryAfter, fmt.Errorf("status code: %d body=%s", res.StatusCode, string(b))
	}

	var parsed searchAPIResponse
	if err := json.Unmarshal(b, &parsed); err != nil {
		return searchAPIResponse{}, res.StatusCode, retryAfter, err
	}
	return parsed, res.StatusCode, retryAfter, nil
}

func parseRetryAfter(v string) time.Duration {
	if strings.TrimSpace(v) == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
