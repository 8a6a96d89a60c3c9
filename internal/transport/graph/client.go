// Package graph delivers mail through the Microsoft Graph sendMail API using
// OAuth2 client credentials.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/metrics"
	"github.com/ignite/graphmail/internal/pkg/httpretry"
	"github.com/ignite/graphmail/internal/service/sending"
)

const (
	DefaultBaseURL      = "https://graph.microsoft.com/v1.0"
	DefaultAuthorityURL = "https://login.microsoftonline.com"

	maxErrorBody = 64 << 10
	maxThrottle  = 5 * time.Minute
)

// Config tunes the HTTP side of the client. The zero value talks to the
// public Graph endpoints without retries.
type Config struct {
	BaseURL       string
	AuthorityURL  string
	Timeout       time.Duration
	MaxRetries    int
	SkipSentItems bool
	RateLimit     RateLimitConfig
	HTTPClient    *http.Client
}

// Client is a sending.Transport backed by Microsoft Graph. It is safe for
// concurrent use; access tokens are cached until they expire.
type Client struct {
	baseURL         string
	senderType      string
	tokens          *tokenCache
	http            httpretry.HTTPDoer
	limiter         *RateLimiter
	saveToSentItems bool
}

var _ sending.Transport = (*Client)(nil)

// TokenURL is the v2 token endpoint of tenant under authority.
func TokenURL(authority, tenant string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(authority, "/"), url.PathEscape(tenant))
}

// New builds a client for profile's tenant, application and scopes.
func New(profile *domain.SenderProfile, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthorityURL == "" {
		cfg.AuthorityURL = DefaultAuthorityURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}

	cc := &clientcredentials.Config{
		ClientID:     profile.ClientID,
		ClientSecret: profile.ClientSecret.Reveal(),
		TokenURL:     TokenURL(cfg.AuthorityURL, profile.TenantID),
		Scopes:       profile.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		senderType:      profile.SenderType,
		tokens:          &tokenCache{cfg: cc, http: base},
		http:            httpretry.NewRetryClient(base, cfg.MaxRetries),
		limiter:         NewRateLimiter(cfg.RateLimit),
		saveToSentItems: !cfg.SkipSentItems,
	}
}

// Send posts msg to /users/{from}/sendMail. Graph answers 202 Accepted on
// success; any other status is returned as a *ResponseError.
func (c *Client) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("graph: wait for rate limiter: %w", err)
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		metrics.IncTransportRequest(c.senderType, "token_error")
		return &sending.TransportError{Code: CodeTokenAcquisition, Message: err.Error()}
	}

	payload, err := json.Marshal(buildSendMailRequest(msg, c.saveToSentItems))
	if err != nil {
		return fmt.Errorf("graph: encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", c.baseURL, url.PathEscape(msg.From.Email))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("graph: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IncTransportRequest(c.senderType, "error")
		return fmt.Errorf("graph: send mail: %w", err)
	}
	defer resp.Body.Close()
	metrics.IncTransportRequest(c.senderType, statusClass(resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.Throttled(httpretry.RetryAfter(resp.Header, maxThrottle))
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return parseError(resp.StatusCode, body)
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
