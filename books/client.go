package books

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodySize = 4 << 20

// APIError is a non-success response of the Books API
type APIError struct {
	Message    string
	Body       string
	StatusCode int
	Code       int // Zoho error code, if any
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d, code %d: %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// apiResponse is the common envelope of Books API responses
type apiResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Client is a Zoho Books API client, bound to a single organization
// and access token
type Client struct {
	client *http.Client
	logger *slog.Logger

	apiURL         string
	organizationID string
	accessToken    string
}

// NewClient creates a new Books client
func NewClient(
	apiURL string,
	organizationID string,
	accessToken string,
	timeout time.Duration,
	opts ...Option,
) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		logger:         noopLogger,
		apiURL:         strings.TrimSuffix(apiURL, "/"),
		organizationID: organizationID,
		accessToken:    accessToken,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// do executes an authenticated request against the Books API.
// If out is set, a successful response body is decoded into it.
// Responses with a status other than expected yield an *APIError
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	in any,
	out any,
	expected ...int,
) error {
	var body io.Reader = http.NoBody

	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("unable to marshal request: %w", err)
		}

		body = bytes.NewReader(encoded)
	}

	query := url.Values{}
	query.Set("organization_id", c.organizationID)

	req, err := http.NewRequestWithContext(
		ctx,
		method,
		c.apiURL+path+"?"+query.Encode(),
		body,
	)
	if err != nil {
		return fmt.Errorf("unable to create %s request: %w", method, err)
	}

	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("unable to execute %s request: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("unable to read response: %w", err)
	}

	if !statusIn(resp.StatusCode, expected) {
		return newAPIError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	if err = decoder.Decode(out); err != nil {
		return fmt.Errorf("unable to decode response: %w", err)
	}

	return nil
}

func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Body:       strings.TrimSpace(string(raw)),
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Code = envelope.Code
		apiErr.Message = envelope.Message
	}

	return apiErr
}

func statusIn(status int, expected []int) bool {
	if len(expected) == 0 {
		return status >= 200 && status < 300
	}

	for _, e := range expected {
		if status == e {
			return true
		}
	}

	return false
}
