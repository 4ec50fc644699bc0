package icegate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sig-0/fxsync/notification"
	"github.com/sig-0/fxsync/storage/types"
)

// maxBodySize caps the size of a single lookup response
const maxBodySize = 4 << 20

type probeOutcome int

const (
	probeAbsent probeOutcome = iota
	probeFound
)

// lookupRequest is the request body for the notification lookup
type lookupRequest struct {
	NotNum string `json:"notNum"`
}

// probeInfo is the work context for a single probe
type probeInfo struct {
	client *Client
	resCh  chan<- *probeResponse
	id     string
}

// probeResponse is the probe routine response
type probeResponse struct {
	notification *types.Notification // set if found
	id           string              // the probed identifier
	reason       string              // why the notification is absent, if it is
	outcome      probeOutcome
}

// handleProbe looks up a single notification identifier.
// The response channel must be able to hold every probe's response
func handleProbe(ctx context.Context, info *probeInfo) {
	response := &probeResponse{
		id:      info.id,
		outcome: probeAbsent,
	}

	n, err := info.client.lookup(ctx, info.id)
	if err != nil {
		response.reason = err.Error()
	} else {
		response.notification = n
		response.outcome = probeFound
	}

	info.resCh <- response
}

// lookup fetches a single notification by its identifier
func (c *Client) lookup(ctx context.Context, id string) (*types.Notification, error) {
	body, err := json.Marshal(lookupRequest{NotNum: id})
	if err != nil {
		return nil, fmt.Errorf("unable to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.lookupURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to create POST request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", c.portalURL)
	req.Header.Set("Referer", c.portalURL+"/")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute POST request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("unable to read response: %w", err)
	}

	n, err := notification.ParseLookup(raw)
	if err != nil {
		return nil, err
	}

	if n.Number == "" {
		n.Number = id
	}

	return n, nil
}
