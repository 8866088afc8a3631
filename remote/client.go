// Package remote implements sites.Remote over the site-management HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andreiashu/ubigeo/sites"
)

const (
	// DefaultTimeout bounds a whole request, body included.
	DefaultTimeout = 30 * time.Second

	maxBodySize = 4 << 20
	userAgent   = "ubigeo-remote/1.0"
)

// ErrRejected is wrapped by errors for replies carrying success=false.
var ErrRejected = errors.New("request rejected by server")

// Client talks to one site-management service. Every call is made once;
// failures come back as *sites.SyncError.
type Client struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, timeout included.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client = &http.Client{Timeout: d, Transport: c.client.Transport}
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a client rooted at baseURL, e.g. "https://api.example.com/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	c := &Client{
		base:   u,
		client: &http.Client{Timeout: DefaultTimeout},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ sites.Remote = (*Client)(nil)

// ListSites fetches every site of the organization.
func (c *Client) ListSites(ctx context.Context, orgID string) ([]sites.Site, error) {
	var resp listResponse
	if err := c.do(ctx, "pull", orgID, "", http.MethodGet, c.sitesPath(orgID), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]sites.Site, 0, len(resp.Sites))
	for _, rec := range resp.Sites {
		out = append(out, rec.site())
	}
	return out, nil
}

// CreateSite registers site and returns the server's copy.
func (c *Client) CreateSite(ctx context.Context, orgID string, site sites.Site) (sites.Site, error) {
	var resp siteResponse
	body := newSiteData(site)
	if err := c.do(ctx, "create", orgID, site.ID, http.MethodPost, c.sitesPath(orgID), body, &resp); err != nil {
		return sites.Site{}, err
	}
	if err := resp.check("create", orgID, site.ID); err != nil {
		return sites.Site{}, err
	}
	if resp.Site == nil || resp.Site.ID == "" {
		return sites.Site{}, &sites.SyncError{Op: "create", OrgID: orgID, SiteID: site.ID,
			Category: sites.CategoryDecode, Err: errors.New("response carries no site id")}
	}
	return resp.Site.site(), nil
}

// UpdateSite replaces the server's copy of site.
func (c *Client) UpdateSite(ctx context.Context, orgID string, site sites.Site) (sites.Site, error) {
	var resp siteResponse
	body := newSiteData(site)
	if err := c.do(ctx, "update", orgID, site.ID, http.MethodPut, c.sitePath(orgID, site.ID), body, &resp); err != nil {
		return sites.Site{}, err
	}
	if err := resp.check("update", orgID, site.ID); err != nil {
		return sites.Site{}, err
	}
	return resp.siteOr(site), nil
}

// DeleteSite removes the site from the server.
func (c *Client) DeleteSite(ctx context.Context, orgID, siteID string) error {
	var resp siteResponse
	if err := c.do(ctx, "delete", orgID, siteID, http.MethodDelete, c.sitePath(orgID, siteID), nil, &resp); err != nil {
		return err
	}
	return resp.check("delete", orgID, siteID)
}

func (c *Client) sitesPath(orgID string) string {
	return c.base.JoinPath("organizations", orgID, "sites").String()
}

func (c *Client) sitePath(orgID, siteID string) string {
	return c.base.JoinPath("organizations", orgID, "sites", siteID).String()
}

// do sends one request and decodes a 2xx JSON reply into out.
func (c *Client) do(ctx context.Context, op, orgID, siteID, method, target string, body, out any) error {
	fail := func(cat sites.ErrorCategory, status int, err error) error {
		return &sites.SyncError{Op: op, OrgID: orgID, SiteID: siteID, Category: cat, StatusCode: status, Err: err}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fail(sites.CategoryDecode, 0, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fail(sites.CategoryNetwork, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fail(sites.CategoryNetwork, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.logger.Debug("remote request",
		"method", method, "url", target, "status", resp.StatusCode, "duration", time.Since(start))
	if err != nil {
		return fail(sites.CategoryNetwork, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(sites.CategoryStatus, resp.StatusCode, errors.New(errorMessage(resp.StatusCode, data)))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if method == http.MethodDelete {
			return nil
		}
		return fail(sites.CategoryDecode, resp.StatusCode, errors.New("empty response body"))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fail(sites.CategoryDecode, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorMessage extracts a readable reason from an error reply.
func errorMessage(status int, body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(status)
}
