// Package provider exchanges external login authorization codes for user profiles.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned when no client id or endpoints are set.
	ErrNotConfigured = errors.New("login provider not configured")
	// ErrInvalidCode is returned when the provider does not issue an access token.
	ErrInvalidCode = errors.New("incorrect authorization code")
	// ErrProfile is returned when the provider profile lacks an id.
	ErrProfile = errors.New("provider profile unavailable")
)

// Config describes the provider endpoints.
type Config struct {
	ClientID   string        `mapstructure:"client_id" yaml:"client_id"`
	TokenURL   string        `mapstructure:"token_url" yaml:"token_url"`
	ProfileURL string        `mapstructure:"profile_url" yaml:"profile_url"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Profile is the subset of the provider profile the server keeps.
type Profile struct {
	ID       int64
	Nickname string
}

// Client talks to the provider's token and profile endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New builds a client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type profileResponse struct {
	ID         int64 `json:"id"`
	Properties struct {
		Nickname string `json:"nickname"`
	} `json:"properties"`
}

// Identify exchanges an authorization code and returns the provider profile.
func (c *Client) Identify(ctx context.Context, code, redirectURI string) (*Profile, error) {
	if c.cfg.ClientID == "" || c.cfg.TokenURL == "" || c.cfg.ProfileURL == "" {
		return nil, ErrNotConfigured
	}

	accessToken, err := c.exchangeCode(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}
	return c.fetchProfile(ctx, accessToken)
}

func (c *Client) exchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("redirect_uri", redirectURI)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	var body tokenResponse
	status, err := c.do(req, &body)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if status >= http.StatusInternalServerError {
		return "", fmt.Errorf("token endpoint unexpected status: %d", status)
	}
	if body.AccessToken == "" {
		return "", ErrInvalidCode
	}
	return body.AccessToken, nil
}

func (c *Client) fetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var body profileResponse
	status, err := c.do(req, &body)
	if err != nil {
		return nil, fmt.Errorf("profile request: %w", err)
	}
	if status != http.StatusOK || body.ID == 0 {
		return nil, fmt.Errorf("%w: status %d", ErrProfile, status)
	}
	return &Profile{ID: body.ID, Nickname: body.Properties.Nickname}, nil
}

// do sends req and decodes a JSON body into out when there is one.
func (c *Client) do(req *http.Request, out any) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("decode body: %w", err)
	}
	return resp.StatusCode, nil
}
