package icegate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/sig-0/fxsync/notification"
	"github.com/sig-0/fxsync/storage/types"
)

const (
	DefaultPortalURL = "https://foservices.icegate.gov.in"
	DefaultLookupURL = "https://foservices.icegate.gov.in/cbu/icegateapi/igexratepublishnot"

	// DefaultWorkers is the number of concurrent in-flight probes
	DefaultWorkers = 5

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

var (
	ErrNoNotifications = errors.New("no notifications found")

	errInvalidRange = errors.New("invalid identifier range")
)

// IDRange is the inclusive range of notification sequence numbers to probe
type IDRange struct {
	From int
	To   int
}

// DefaultIDRange covers the exchange rate notifications published in a year
var DefaultIDRange = IDRange{From: 1, To: 39}

// Len returns the number of identifiers in the range
func (r IDRange) Len() int {
	if r.From < 1 || r.To < r.From {
		return 0
	}

	return r.To - r.From + 1
}

// Discovery is the result of probing an identifier range
type Discovery struct {
	Notifications []*types.Notification // in completion order
	Probed        int
	Absent        int
}

// Client discovers exchange rate notifications published on the ICEGATE portal
type Client struct {
	client    *http.Client
	logger    *slog.Logger
	portalURL string
	lookupURL string
	workers   int
}

// NewClient creates a new ICEGATE client. The client keeps a cookie jar,
// shared by every probe of a discovery run
func NewClient(portalURL, lookupURL string, timeout time.Duration, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil) //nolint:errcheck // never fails without options

	c := &Client{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		portalURL: portalURL,
		lookupURL: lookupURL,
		workers:   DefaultWorkers,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Discover probes every identifier of the range, for the given year, and returns
// the notifications that carry currency detail. Probes that fail for any reason
// count as absent. Discover fails only if the session cannot be initialized,
// or if no notification is found
func (c *Client) Discover(ctx context.Context, year int, ids IDRange) (*Discovery, error) {
	total := ids.Len()
	if total == 0 {
		return nil, fmt.Errorf("%w: %d..%d", errInvalidRange, ids.From, ids.To)
	}

	if err := c.initSession(ctx); err != nil {
		return nil, err
	}

	c.logger.Info(
		"scanning for notifications",
		"year", year,
		"from", ids.From,
		"to", ids.To,
	)

	var (
		jobsCh = make(chan string, total)
		resCh  = make(chan *probeResponse, total)
	)

	for seq := ids.From; seq <= ids.To; seq++ {
		jobsCh <- notification.Identifier(seq, year)
	}

	close(jobsCh)

	workers := min(max(c.workers, 1), total)

	for range workers {
		go func() {
			for id := range jobsCh {
				handleProbe(ctx, &probeInfo{
					client: c,
					id:     id,
					resCh:  resCh,
				})
			}
		}()
	}

	discovery := &Discovery{
		Notifications: make([]*types.Notification, 0, total),
	}

	// Every probe reports back, even if the context is canceled
	for range total {
		response := <-resCh
		discovery.Probed++

		if response.outcome == probeAbsent {
			discovery.Absent++

			c.logger.Debug(
				"notification absent",
				"id", response.id,
				"reason", response.reason,
			)

			continue
		}

		discovery.Notifications = append(discovery.Notifications, response.notification)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("discovery interrupted: %w", err)
	}

	if len(discovery.Notifications) == 0 {
		return nil, fmt.Errorf(
			"%w for %d (%d probed)",
			ErrNoNotifications,
			year,
			discovery.Probed,
		)
	}

	c.logger.Info(
		"found valid notifications",
		"found", len(discovery.Notifications),
		"absent", discovery.Absent,
	)

	return discovery, nil
}

// initSession establishes the portal session (cookies) used by the probes
func (c *Client) initSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.portalURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("unable to create session request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	c.logger.Info("initializing session", "url", c.portalURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("unable to initialize session: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drained for reuse

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn(
			"unexpected session status code",
			"status", resp.StatusCode,
		)
	}

	return nil
}
