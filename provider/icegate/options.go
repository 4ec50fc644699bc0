package icegate

import "log/slog"

type Option func(c *Client)

// WithLogger specifies the logger for the client
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithWorkers specifies the number of concurrent probes.
// Defaults to 5
func WithWorkers(n int) Option {
	return func(c *Client) {
		c.workers = n
	}
}
