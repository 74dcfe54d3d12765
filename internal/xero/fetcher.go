package xero

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"childcare/internal/log"
)

const (
	DefaultAPIBaseURL = "https://api.xero.com/api.xro/2.0"
	profitAndLossPath = "/Reports/ProfitAndLoss"

	// Xero allows 60 calls per minute per tenant.
	defaultCallsPerMinute = 60
	maxReportBytes        = 10 << 20
)

// Documents holds the raw bodies of the two ProfitAndLoss requests.
type Documents struct {
	JanNov   []byte
	December []byte
}

// Fetcher retrieves ProfitAndLoss reports for a calendar year.
type Fetcher struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
}

type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithCallsPerMinute sets the outbound pacing. Zero or less disables it.
func WithCallsPerMinute(n int) FetcherOption {
	return func(f *Fetcher) {
		if n <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
}

func NewFetcher(baseURL string, timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	f := &Fetcher{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
	WithCallsPerMinute(defaultCallsPerMinute)(f)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues the Jan-Nov request and then the December request for year.
// The first failure stops the sequence and is returned as *UpstreamError.
func (f *Fetcher) Fetch(ctx context.Context, accessToken, tenantID string, year int) (*Documents, error) {
	y := strconv.Itoa(year)

	janNov, err := f.get(ctx, StageJanNov, accessToken, tenantID, url.Values{
		"fromDate":  {y + "-01-01"},
		"periods":   {"11"},
		"timeframe": {"MONTH"},
	})
	if err != nil {
		return nil, err
	}

	dec, err := f.get(ctx, StageDecember, accessToken, tenantID, url.Values{
		"fromDate":  {y + "-12-01"},
		"toDate":    {y + "-12-31"},
		"timeframe": {"MONTH"},
	})
	if err != nil {
		return nil, err
	}

	return &Documents{JanNov: janNov, December: dec}, nil
}

func (f *Fetcher) get(ctx context.Context, stage Stage, accessToken, tenantID string, query url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Stage: stage, Err: fmt.Errorf("wait for rate limiter: %w", err)}
	}

	endpoint := f.baseURL + profitAndLossPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &UpstreamError{Stage: stage, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("xero-tenant-id", tenantID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "Xero report request failed",
			log.FieldComponent, log.ComponentXero,
			log.FieldStage, string(stage),
			"error", err)
		return nil, &UpstreamError{Stage: stage, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBytes))
	if err != nil {
		return nil, &UpstreamError{Stage: stage, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	slog.DebugContext(ctx, "Xero report response",
		log.FieldComponent, log.ComponentXero,
		log.FieldStage, string(stage),
		"status_code", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Stage:      stage,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}
