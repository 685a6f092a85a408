// Package authclient talks to the identity provider's OpenID Connect
// endpoints: password and refresh_token grants plus logout. It holds no
// token state; persistence is the session controller's job.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/model"
)

// Common auth errors.
var (
	// ErrInvalidCredentials means the provider rejected the username/password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshRejected means the provider rejected the refresh token.
	// Callers must treat this as a fully expired session, not a retryable
	// failure.
	ErrRefreshRejected = errors.New("refresh token rejected")
)

// Client is a stateless identity-provider client.
type Client struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	scope        string
	http         *http.Client
	log          zerolog.Logger
}

// New creates an identity-provider client for the given realm.
func New(baseURL, realm, clientID, clientSecret, scope string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		http:         &http.Client{Timeout: timeout},
		log:          log.With().Str("component", "authclient").Logger(),
	}
}

// providerError is the identity provider's error response body.
type providerError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// Login exchanges a resource-owner password grant for a token triple.
func (c *Client) Login(ctx context.Context, username, password string) (*model.TokenSet, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"password"},
		"username":      {username},
		"password":      {password},
		"scope":         {c.scope},
	}
	ts, err := c.tokenRequest(ctx, form, ErrInvalidCredentials)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("username", username).Msg("Password grant succeeded")
	return ts, nil
}

// Refresh exchanges a refresh token for a new token triple.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.TokenSet, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	ts, err := c.tokenRequest(ctx, form, ErrRefreshRejected)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Msg("Refresh grant succeeded")
	return ts, nil
}

// Logout asks the provider to terminate the server-side session. Best
// effort: callers clear local tokens regardless of the outcome.
func (c *Client) Logout(ctx context.Context, idToken string) error {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"id_token_hint": {idToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint("logout"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("logout rejected with status %d", resp.StatusCode)
	}
	return nil
}

// tokenRequest posts a form to the token endpoint and decodes the triple.
// rejected is the sentinel returned on a non-2xx grant response.
func (c *Client) tokenRequest(ctx context.Context, form url.Values, rejected error) (*model.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint("token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var pe providerError
		if derr := json.NewDecoder(resp.Body).Decode(&pe); derr == nil && pe.Description != "" {
			return nil, fmt.Errorf("%w: %s", rejected, pe.Description)
		}
		return nil, fmt.Errorf("%w: status %d", rejected, resp.StatusCode)
	}

	var ts model.TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if ts.AccessToken == "" || ts.RefreshToken == "" {
		return nil, fmt.Errorf("token response missing tokens")
	}
	return &ts, nil
}

func (c *Client) endpoint(name string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/%s", c.baseURL, c.realm, name)
}
