package books

import (
	"io"
	"log/slog"
	"net/http"
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type Option func(c *Client)

// WithLogger specifies the logger for the client
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}
