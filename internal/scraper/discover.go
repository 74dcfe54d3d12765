// Package scraper reads overdue invoice amounts from the Discover
// childcare portal and publishes them for the worker to record.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"childcare/internal/log"
)

const (
	loginPath       = "/Account/Login"
	maxPageBytes    = 4 << 20
	defaultTimeout  = 30 * time.Second
	userAgentHeader = "childcare-dashboard/1.0"
)

var (
	ErrMissingCredentials = errors.New("DISCOVER_EMAIL and DISCOVER_PASSWORD must be set")
	ErrLoginFailed        = errors.New("discover login failed")
)

// Config holds the portal endpoint and account.
type Config struct {
	BaseURL  string
	Email    string
	Password string
	// Delay is the minimum spacing between page requests. Zero disables pacing.
	Delay      time.Duration
	HTTPClient *http.Client
}

// DiscoverClient is a logged-in browser-like session against the portal.
type DiscoverClient struct {
	baseURL  *url.URL
	email    string
	password string
	http     *http.Client
	limiter  *rate.Limiter

	mu       sync.Mutex
	loggedIn bool
}

// NewDiscoverClient checks the credentials and prepares a cookie session.
// No request is made until the first page is fetched.
func NewDiscoverClient(cfg Config) (*DiscoverClient, error) {
	if strings.TrimSpace(cfg.Email) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, ErrMissingCredentials
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid discover base url %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	// Copy so the jar does not leak into a caller's client.
	session := *client
	session.Jar = jar

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	return &DiscoverClient{
		baseURL:  base,
		email:    cfg.Email,
		password: cfg.Password,
		http:     &session,
		limiter:  rate.NewLimiter(limit, 1),
	}, nil
}

// Login authenticates the session. The login form's hidden fields (such as
// an anti-forgery token) are sent back along with the credentials.
func (c *DiscoverClient) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *DiscoverClient) loginLocked(ctx context.Context) error {
	loginURL := c.resolve(loginPath)
	page, _, err := c.get(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("load login page: %w", err)
	}
	action, hidden, ok, err := loginForm(bytes.NewReader(page))
	if err != nil {
		return fmt.Errorf("parse login page: %w", err)
	}

	form := url.Values{}
	if ok {
		for k, v := range hidden {
			form.Set(k, v)
		}
	}
	form.Set("Email", c.email)
	form.Set("Password", c.password)

	target := loginURL
	if ok && action != "" {
		target = c.resolve(action)
	}

	body, err := c.post(ctx, target, form)
	if err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	// A successful login redirects away from the form.
	if _, _, still, _ := loginForm(bytes.NewReader(body)); still {
		return ErrLoginFailed
	}

	c.loggedIn = true
	slog.InfoContext(ctx, "Discover login succeeded", log.FieldComponent, log.ComponentScraper)
	return nil
}

// OverdueAmount returns the overdue invoices text shown on a centre's home
// page, logging in first when needed.
func (c *DiscoverClient) OverdueAmount(ctx context.Context, apiID string) (string, error) {
	apiID = strings.Trim(strings.TrimSpace(apiID), "/")
	if apiID == "" {
		return "", errors.New("empty api id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn {
		if err := c.loginLocked(ctx); err != nil {
			return "", err
		}
	}

	page, _, err := c.get(ctx, c.resolve("/"+url.PathEscape(apiID)+"/Home"))
	if err != nil {
		return "", fmt.Errorf("load home page for %s: %w", apiID, err)
	}
	if _, _, onLogin, _ := loginForm(bytes.NewReader(page)); onLogin {
		// Session expired; the next call logs in again.
		c.loggedIn = false
		return "", fmt.Errorf("home page for %s: %w", apiID, ErrLoginFailed)
	}
	amount, err := extractOverdueAmount(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("home page for %s: %w", apiID, err)
	}
	return amount, nil
}

func (c *DiscoverClient) resolve(ref string) string {
	u, err := c.baseURL.Parse(ref)
	if err != nil {
		return c.baseURL.String() + ref
	}
	return u.String()
}

func (c *DiscoverClient) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	return c.do(req)
}

func (c *DiscoverClient) post(ctx context.Context, target string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, _, err := c.do(req)
	return body, err
}

func (c *DiscoverClient) do(req *http.Request) ([]byte, int, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgentHeader)
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}
