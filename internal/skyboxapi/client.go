// Package skyboxapi provides a client for the skybox generation service:
// the style catalog, job creation, job status polling and direct style
// lookup. Only the request/response contract is modelled here; the service
// itself is an external collaborator.
//
// Generation is a two-step process:
//  1. POST the prompt and style to create a job and receive its handle
//  2. GET the job status by handle until it reports complete or failed
//
// Polling cadence and cancellation live in the generation package; this
// client issues exactly one HTTP request per call.
package skyboxapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fpang/skybox-viewer/internal/panorama"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

const (
	// defaultTimeout is the HTTP client timeout for API calls.
	defaultTimeout = 30 * time.Second

	// defaultStyleTTL is how long a fetched catalog is reused.
	defaultStyleTTL = 5 * time.Minute

	stylesPath   = "/api/skybox/getSkyboxStyles"
	generatePath = "/api/imagine/generateImagine"
	imaginePath  = "/api/imagine/getImagineById"
	stylePath    = "/api/skybox/"

	stylesCacheKey = "styles"

	// maxErrorBody caps how much of an error response ends up in messages.
	maxErrorBody = 200
)

// Client talks to the skybox generation service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	styles     *cache.Cache
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The caller owns its
// transport; no gzip wrapper is added.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithStyleCacheTTL sets how long the style catalog is cached. Zero disables
// caching.
func WithStyleCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.styles = nil
			return
		}
		c.styles = cache.New(ttl, 2*ttl)
	}
}

// NewClient creates a client for the service at baseURL
// (e.g. "http://localhost:5002").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: gzhttp.Transport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		styles:  cache.New(defaultStyleTTL, 2*defaultStyleTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- API types ---

// GenerateRequest is the body of a job creation call.
type GenerateRequest struct {
	Prompt       string  `json:"prompt"`
	StyleID      int     `json:"skybox_style_id"`
	NegativeText *string `json:"negative_text"`
}

// ImagineStatus is the job status document returned while polling.
type ImagineStatus struct {
	Status       string `json:"status"`
	FileURL      string `json:"file_url,omitempty"`
	Title        string `json:"title,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Complete reports a terminal success.
func (s ImagineStatus) Complete() bool {
	return s.Status == string(panorama.StatusComplete)
}

// Failed reports a terminal failure: an explicit failed status or any
// accompanying error message.
func (s ImagineStatus) Failed() bool {
	return s.Status == string(panorama.StatusFailed) || s.ErrorMessage != ""
}

// Descriptor assembles the panorama descriptor of a completed job.
func (s ImagineStatus) Descriptor() panorama.Descriptor {
	return panorama.Descriptor{
		ImageURL: s.FileURL,
		Title:    s.Title,
		Prompt:   s.Prompt,
	}
}

// generateResponse carries the service-assigned job handle.
type generateResponse struct {
	ID jobHandle `json:"id"`
}

// jobHandle accepts the job id as either a JSON number or string.
type jobHandle string

func (h *jobHandle) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*h = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*h = jobHandle(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("job id must be a string or number: %w", err)
	}
	*h = jobHandle(n.String())
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d (body: %s)", e.Method, e.Path, e.StatusCode, e.Body)
}

// --- Catalog ---

// Styles returns the style catalog, served from cache when fresh.
func (c *Client) Styles(ctx context.Context) ([]panorama.Style, error) {
	if c.styles != nil {
		if cached, ok := c.styles.Get(stylesCacheKey); ok {
			if styles, ok := cached.([]panorama.Style); ok {
				log.Debug().Int("count", len(styles)).Msg("Style catalog served from cache")
				return append([]panorama.Style(nil), styles...), nil
			}
		}
	}

	var styles []panorama.Style
	if err := c.getJSON(ctx, stylesPath, nil, &styles); err != nil {
		return nil, fmt.Errorf("fetch skybox styles: %w", err)
	}
	log.Info().Int("count", len(styles)).Msg("Style catalog fetched")

	if c.styles != nil {
		c.styles.Set(stylesCacheKey, append([]panorama.Style(nil), styles...), cache.DefaultExpiration)
	}
	return styles, nil
}

// InvalidateStyles drops the cached catalog.
func (c *Client) InvalidateStyles() {
	if c.styles != nil {
		c.styles.Delete(stylesCacheKey)
	}
}

// Style looks up one catalog entry directly by id.
func (c *Client) Style(ctx context.Context, id int) (panorama.Style, error) {
	var style panorama.Style
	if err := c.getJSON(ctx, stylePath+strconv.Itoa(id), nil, &style); err != nil {
		return panorama.Style{}, fmt.Errorf("fetch skybox %d: %w", id, err)
	}
	if style.ID == 0 {
		style.ID = id
	}
	return style, nil
}

// --- Generation ---

// Generate creates a generation job and returns its handle.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	log.Debug().Int("styleId", req.StyleID).Bool("negativeText", req.NegativeText != nil).Msg("Creating generation job")

	var resp generateResponse
	if err := c.postJSON(ctx, generatePath, req, &resp); err != nil {
		return "", fmt.Errorf("create generation job: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create generation job: unexpected response: no id returned")
	}

	log.Info().Str("jobId", string(resp.ID)).Int("styleId", req.StyleID).Msg("Generation job created")
	return string(resp.ID), nil
}

// Imagine fetches the current status of a generation job.
func (c *Client) Imagine(ctx context.Context, handle string) (ImagineStatus, error) {
	var status ImagineStatus
	if err := c.getJSON(ctx, imaginePath, url.Values{"id": {handle}}, &status); err != nil {
		return ImagineStatus{}, fmt.Errorf("get job %s: %w", handle, err)
	}
	return status, nil
}

// --- Internal helpers ---

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, path, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

// do sends req, checks the status and decodes the JSON body into out.
func (c *Client) do(req *http.Request, path string, out interface{}) error {
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	startTime := time.Now()
	log.Debug().Str("method", req.Method).Str("path", path).Str("requestId", requestID).Msg("Skybox API request")

	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Skybox API response")
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	log.Debug().Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Str("requestId", requestID).Msg("Skybox API response")

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		log.Warn().Int("statusCode", httpResp.StatusCode).Str("path", path).Msg("Skybox API error status")
		return &StatusError{
			Method:     req.Method,
			Path:       path,
			StatusCode: httpResp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), maxErrorBody))
	}
	return nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
