package xero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
)

const (
	AuthURL               = "https://login.xero.com/identity/connect/authorize"
	TokenURL              = "https://identity.xero.com/connect/token"
	DefaultConnectionsURL = "https://api.xero.com/connections"

	stateTTL = 10 * time.Minute
)

// DefaultScopes are requested at login.
var DefaultScopes = []string{
	"offline_access",
	"accounting.reports.read",
	"accounting.transactions.read",
	"accounting.settings.read",
}

var (
	ErrInvalidState = errors.New("invalid or expired OAuth state")
	ErrMissingCode  = errors.New("missing code parameter")
	ErrNoTenants    = errors.New("no Xero tenants found")
)

// OAuthConfig configures the authorization code flow. Empty URLs fall back
// to the Xero production endpoints.
type OAuthConfig struct {
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	Scopes         []string
	AuthURL        string
	TokenURL       string
	ConnectionsURL string
	HTTPClient     *http.Client
}

// Connection is the result of a completed login.
type Connection struct {
	AccessToken string
	TenantID    string
	TenantName  string
	Expiry      time.Time
}

// OAuth drives the Xero authorization code flow. Each login gets a fresh
// state that is accepted once within stateTTL.
type OAuth struct {
	config         *oauth2.Config
	connectionsURL string
	client         *http.Client
	states         *cache.Cache
}

func NewOAuth(cfg OAuthConfig) *OAuth {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	authURL := valueOr(cfg.AuthURL, AuthURL)
	tokenURL := valueOr(cfg.TokenURL, TokenURL)
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &OAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		connectionsURL: valueOr(cfg.ConnectionsURL, DefaultConnectionsURL),
		client:         client,
		states:         cache.New(stateTTL, 2*stateTTL),
	}
}

// AuthCodeURL registers a new state and returns the URL to redirect the
// user to.
func (o *OAuth) AuthCodeURL() string {
	state := uuid.NewString()
	o.states.Set(state, struct{}{}, cache.DefaultExpiration)
	return o.config.AuthCodeURL(state)
}

// Exchange validates state, trades code for an access token and resolves
// the first connected tenant.
func (o *OAuth) Exchange(ctx context.Context, state, code string) (*Connection, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingCode
	}
	if _, ok := o.states.Get(state); !ok {
		return nil, ErrInvalidState
	}
	o.states.Delete(state)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("no access token returned")
	}

	tenantID, tenantName, err := o.firstTenant(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	return &Connection{
		AccessToken: token.AccessToken,
		TenantID:    tenantID,
		TenantName:  tenantName,
		Expiry:      token.Expiry,
	}, nil
}

func (o *OAuth) firstTenant(ctx context.Context, accessToken string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.connectionsURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("build connections request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch Xero tenant: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", fmt.Errorf("read connections: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch Xero tenant: %s", strings.TrimSpace(string(body)))
	}

	var conns []struct {
		TenantID   string `json:"tenantId"`
		TenantName string `json:"tenantName"`
		TenantType string `json:"tenantType"`
	}
	if err := json.Unmarshal(body, &conns); err != nil {
		return "", "", fmt.Errorf("decode connections: %w", err)
	}
	if len(conns) == 0 || conns[0].TenantID == "" {
		return "", "", ErrNoTenants
	}
	return conns[0].TenantID, conns[0].TenantName, nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
