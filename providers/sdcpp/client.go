// Package sdcpp implements the wire client for the stable-diffusion.cpp
// sd-server's OpenAI-compatible image generation endpoint: payload encoding
// with the vendor extension block, the HTTP exchange, and response decoding.
package sdcpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sdcpp-tools/sdcli/core"
)

// generationsPath is the OpenAI-compatible endpoint served by sd-server.
const generationsPath = "v1/images/generations"

// Client talks to a single sd-server instance.
type Client struct {
	config Config
}

// New creates a client for the sd-server at the given base URL.
func New(baseURL string, opts ...Option) *Client {
	cfg := Config{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Timeout > 0 {
		client := *cfg.HTTPClient
		client.Timeout = cfg.Timeout
		cfg.HTTPClient = &client
	}

	return &Client{config: cfg}
}

// Endpoint returns the full generations URL, normalizing the base URL to end
// with a trailing slash before appending the path.
func (c *Client) Endpoint() string {
	base := c.config.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + generationsPath
}

// Generate posts the payload and returns the decoded images in
// server-returned order. The full response body is read before any decoding
// begins; there is no streaming and no retry.
func (c *Client) Generate(ctx context.Context, req *ImageRequest) ([][]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for key, values := range c.config.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.config.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &core.ServerError{
			Code:    "network_error",
			Message: err.Error(),
			Err:     core.ErrNetwork,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.ServerError{
			Status:  resp.StatusCode,
			Code:    "read_error",
			Message: err.Error(),
			Err:     core.ErrNetwork,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseServerError(resp.StatusCode, respBody)
	}

	return DecodeImages(respBody)
}
