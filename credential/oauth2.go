package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OAuth2Config configures the OAuth2 refresh-token-grant refresher.
type OAuth2Config struct {
	// TokenEndpoint is the URL of the OAuth2 token endpoint.
	TokenEndpoint string

	// ClientID is the client identifier for token requests.
	ClientID string

	// ClientSecret is the client secret for token requests.
	ClientSecret string

	// ClientAuthMethod is how to authenticate to the token endpoint.
	// Options: "client_secret_basic" (default), "client_secret_post"
	ClientAuthMethod string

	// Timeout is the HTTP request timeout for token calls.
	// Default: 15 seconds.
	Timeout time.Duration

	// MaxAttempts bounds retries of transient failures (network errors
	// and 5xx responses). 4xx responses are terminal and never retried.
	// Default: 3.
	MaxAttempts int

	// RetryDelay is the initial delay between attempts; it doubles on
	// each retry. Default: 500ms.
	RetryDelay time.Duration

	// HTTPClient is the HTTP client to use. If nil, a default client is used.
	// It must NOT be a client whose transport attaches the session
	// credential, or a refresh could recurse into itself.
	HTTPClient *http.Client
}

// OAuth2Refresher exchanges the store's refresh token for a new
// credential using the OAuth2 refresh_token grant.
type OAuth2Refresher struct {
	config     OAuth2Config
	store      Store
	httpClient *http.Client
	sleep      func(time.Duration) // test hook
}

// tokenResponse is the token endpoint's JSON success payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// NewOAuth2Refresher creates a refresher against an OAuth2 token endpoint.
// The store supplies the refresh token and receives nothing; writing the
// result back is the coordinator's job.
func NewOAuth2Refresher(config OAuth2Config, store Store) *OAuth2Refresher {
	// Apply defaults
	if config.ClientAuthMethod == "" {
		config.ClientAuthMethod = "client_secret_basic"
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 500 * time.Millisecond
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &OAuth2Refresher{
		config:     config,
		store:      store,
		httpClient: httpClient,
		sleep:      time.Sleep,
	}
}

// Refresh exchanges the current refresh token for a new credential.
func (r *OAuth2Refresher) Refresh(ctx context.Context) (Credential, error) {
	current, ok := r.store.Current()
	if !ok {
		return Credential{}, ErrNoCredential
	}
	if current.RefreshToken == "" {
		return Credential{}, ErrNoRefreshToken
	}

	var lastErr error
	delay := r.config.RetryDelay

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return Credential{}, ctx.Err()
			default:
			}
			r.sleep(delay)
			delay *= 2
		}

		cred, retryable, err := r.exchange(ctx, current.RefreshToken)
		if err == nil {
			return cred, nil
		}
		lastErr = err
		if !retryable {
			return Credential{}, err
		}
	}

	return Credential{}, lastErr
}

// exchange performs one token endpoint round trip. The second return
// reports whether the failure is transient.
func (r *OAuth2Refresher) exchange(ctx context.Context, refreshToken string) (Credential, bool, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	if r.config.ClientAuthMethod == "client_secret_post" {
		form.Set("client_id", r.config.ClientID)
		form.Set("client_secret", r.config.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.config.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, false, fmt.Errorf("credential: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if r.config.ClientAuthMethod == "client_secret_basic" {
		req.SetBasicAuth(url.QueryEscape(r.config.ClientID), url.QueryEscape(r.config.ClientSecret))
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Credential{}, true, fmt.Errorf("credential: token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Credential{}, true, fmt.Errorf("credential: reading token response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return Credential{}, true, fmt.Errorf("credential: token endpoint returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Credential{}, false, fmt.Errorf("credential: token endpoint returned %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Credential{}, false, fmt.Errorf("credential: decoding token response: %w", err)
	}
	if tr.AccessToken == "" {
		return Credential{}, false, fmt.Errorf("credential: empty access token in response")
	}

	cred := Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if cred.RefreshToken == "" {
		// Endpoints may omit the refresh token when it is unchanged.
		cred.RefreshToken = refreshToken
	}
	if tr.ExpiresIn > 0 {
		cred.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	return cred, false, nil
}

// Ensure OAuth2Refresher implements Refresher
var _ Refresher = (*OAuth2Refresher)(nil)
