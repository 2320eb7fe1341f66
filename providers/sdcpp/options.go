package sdcpp

import (
	"net/http"
	"time"
)

// Config holds configuration for the sd-server client.
type Config struct {
	// BaseURL is the server root, e.g. http://localhost:8080. The
	// generations path is appended to it.
	BaseURL string

	// HTTPClient is the HTTP client to use. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Headers contains optional extra headers to include in requests.
	Headers http.Header

	// Timeout bounds the whole request/response exchange. Zero means no
	// limit; generation can legitimately run for minutes.
	Timeout time.Duration
}

// Option configures the sd-server client.
type Option func(*Config)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithHeader adds an extra header to include in requests.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(http.Header)
		}
		c.Headers.Set(key, value)
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}
