package npmrc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/majorcontext/setup-npmrc/internal/log"
)

// Placeholder defers the token to the NODE_AUTH_TOKEN environment variable
// instead of embedding a literal secret.
const Placeholder = "${NODE_AUTH_TOKEN}"

const (
	userAgent = "setup-npmrc"

	// maxAuthBody caps how much of the auth response is read.
	maxAuthBody = 1 << 20
)

// Credentials are the optional inputs for remote token resolution. An empty
// AuthURL selects the placeholder.
type Credentials struct {
	AuthURL  string
	User     string
	Password string
}

// ResolverConfig tunes the retrying HTTP client. Zero values use defaults.
type ResolverConfig struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// Resolver resolves the token written to the auth line.
type Resolver struct {
	client *retryablehttp.Client
}

// NewResolver creates a Resolver backed by a retrying HTTP client.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.RetryMax == 0 {
		cfg.RetryMax = 3
	}
	if cfg.RetryWaitMin == 0 {
		cfg.RetryWaitMin = time.Second
	}
	if cfg.RetryWaitMax == 0 {
		cfg.RetryWaitMax = 10 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.Timeout

	client := retryablehttp.NewClient()
	client.HTTPClient = httpClient
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.Logger = log.With("subsystem", "auth")

	return &Resolver{client: client}
}

// Resolve returns Placeholder when creds has no AuthURL. Otherwise it fetches
// AuthURL with basic auth and returns the _auth value from the body.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (string, error) {
	if creds.AuthURL == "" {
		return Placeholder, nil
	}

	shown := displayURL(creds.AuthURL)
	log.Debug("requesting auth token", "url", shown, "user", creds.User, "password", log.Redacted(creds.Password))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, creds.AuthURL, nil)
	if err != nil {
		return "", &RequestError{URL: shown, Cause: err}
	}
	req.SetBasicAuth(creds.User, creds.Password)
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &RequestError{URL: shown, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &AuthRejectedError{URL: shown, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthBody))
	if err != nil {
		return "", &RequestError{URL: shown, Cause: fmt.Errorf("reading body: %w", err)}
	}

	token, err := ParseAuthBody(string(body))
	if err != nil {
		return "", fmt.Errorf("parsing response from %s: %w", shown, err)
	}

	log.Debug("resolved auth token", "url", shown, "token", log.Redacted(token))
	return token, nil
}

// displayURL strips userinfo from raw for use in messages.
func displayURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
