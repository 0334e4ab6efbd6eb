// Package pverify talks to the pVerify dental eligibility API.
package pverify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hmprotos/dentalverify/internal/eligibility"
)

var (
	// ErrNoToken is returned when the token endpoint does not hand out an
	// access token.
	ErrNoToken = errors.New("pverify: no access token")
	// ErrUpstream is returned for non-2xx eligibility responses.
	ErrUpstream = errors.New("pverify: upstream error")
)

const (
	tokenPath       = "/Token"
	eligibilityPath = "/api/DentalEligibilitySummary"

	// tokenSkew refreshes the token slightly before the upstream expiry.
	tokenSkew = 30 * time.Second
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client holds its own access token and refreshes it lazily.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         &http.Client{Timeout: timeout},
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// accessToken returns the cached token or fetches a fresh one.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("Client_Id", c.clientID)
	form.Set("Client_Secret", c.clientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned status %d", ErrNoToken, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", ErrNoToken
	}

	c.token = tok.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSkew)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// Check runs a dental eligibility summary for the form.
func (c *Client) Check(ctx context.Context, form *Form) (*eligibility.Response, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(BuildRequest(form))
	if err != nil {
		return nil, fmt.Errorf("encoding eligibility request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+eligibilityPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building eligibility request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-API-Id", c.clientID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting eligibility: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out eligibility.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding eligibility response: %w", err)
	}
	return &out, nil
}
