package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/utils"
)

// transport is shared by every client so connections to the provider are
// pooled across requests.
var transport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        200,
	MaxIdleConnsPerHost: 50,
	IdleConnTimeout:     120 * time.Second,
}

// Client calls the chat completions endpoint.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client, e.g. for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client. It fails with ErrNotConfigured when the
// endpoint or API key is missing. A zero timeout means none.
func NewClient(cfg config.ProviderConfig, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, ErrNotConfigured
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultProviderModel
	}
	c := &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    model,
		http:     &http.Client{Transport: transport, Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Builder returns a request builder bound to the client's model.
func (c *Client) Builder() StructuredRequestBuilder {
	return StructuredRequestBuilder{Model: c.model}
}

// Complete sends req and returns the raw 2xx body. Non-2xx replies become
// *StatusError; network failures become *TransportError.
func (c *Client) Complete(ctx context.Context, req ChatRequest) ([]byte, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	body, err := utils.MarshalNoEscape(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseSize))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := utils.Truncate(string(respBody), config.MaxErrorBodyLogLen)
		log.Warn().
			Int("status", resp.StatusCode).
			Str("model", c.model).
			Str("body", snippet).
			Msg("provider returned error status")
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}
	if !gjson.ValidBytes(respBody) {
		return nil, fmt.Errorf("%w: body is not JSON", ErrInvalidResponse)
	}
	return respBody, nil
}
