package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sig-0/fxsync/storage/types"
)

// ErrorCodeRateExists is the Books error code for an exchange rate
// that already exists on the given date
const ErrorCodeRateExists = 36005

const (
	fieldFeedEnabled     = "exchange_rate_feed_enabled"
	fieldAutoRateEnabled = "auto_exchange_rate_enabled"
)

var (
	ErrRateExists = errors.New("exchange rate already exists")

	errMissingCurrency = errors.New("currency missing from response")
)

// currencyEntry is a single currency configuration of the listing.
// The feed flag shows up under either name, depending on the endpoint
type currencyEntry struct {
	FeedEnabled     *bool  `json:"exchange_rate_feed_enabled"`
	AutoRateEnabled *bool  `json:"auto_exchange_rate_enabled"`
	ID              string `json:"currency_id"`
	Code            string `json:"currency_code"`
	Active          bool   `json:"is_active"`
	Base            bool   `json:"is_base_currency"`
}

type listCurrenciesResponse struct {
	Currencies []currencyEntry `json:"currencies"`
}

type getCurrencyResponse struct {
	Currency map[string]any `json:"currency"`
}

type exchangeRateRequest struct {
	Rate          json.Number `json:"rate"`
	EffectiveDate string      `json:"effective_date"`
}

// LoadDirectory lists the organization's currencies, keyed by currency code
func (c *Client) LoadDirectory(ctx context.Context) (types.Directory, error) {
	var resp listCurrenciesResponse

	if err := c.do(ctx, http.MethodGet, "/settings/currencies", nil, &resp); err != nil {
		return nil, fmt.Errorf("unable to list currencies: %w", err)
	}

	directory := make(types.Directory, len(resp.Currencies))

	for _, entry := range resp.Currencies {
		code := types.Currency(strings.ToUpper(strings.TrimSpace(entry.Code)))
		if code == "" || entry.ID == "" {
			continue
		}

		directory[code] = &types.CurrencyRecord{
			ID:          entry.ID,
			Code:        code,
			Active:      entry.Active,
			Base:        entry.Base,
			FeedEnabled: isSet(entry.FeedEnabled) || isSet(entry.AutoRateEnabled),
		}
	}

	c.logger.Info(
		"loaded currency directory",
		"currencies", len(directory),
	)

	return directory, nil
}

// DisableFeed turns off the automatic exchange rate feed for the currency.
// The full currency configuration is sent back, with only the feed flags changed
func (c *Client) DisableFeed(ctx context.Context, currencyID string) error {
	path := "/settings/currencies/" + url.PathEscape(currencyID)

	var current getCurrencyResponse

	if err := c.do(ctx, http.MethodGet, path, nil, &current); err != nil {
		return fmt.Errorf("unable to fetch currency %s: %w", currencyID, err)
	}

	if len(current.Currency) == 0 {
		return fmt.Errorf("%w: %s", errMissingCurrency, currencyID)
	}

	payload := make(map[string]any, len(current.Currency)+2)
	for k, v := range current.Currency {
		payload[k] = v
	}

	payload[fieldFeedEnabled] = false
	payload[fieldAutoRateEnabled] = false

	if err := c.do(ctx, http.MethodPut, path, payload, nil); err != nil {
		return fmt.Errorf("unable to update currency %s: %w", currencyID, err)
	}

	c.logger.Info(
		"disabled exchange rate feed",
		"currency_id", currencyID,
	)

	return nil
}

// CreateExchangeRate adds the rate to the currency's exchange rate history,
// effective on the given date. ErrRateExists is returned if a rate is already
// recorded for that date
func (c *Client) CreateExchangeRate(
	ctx context.Context,
	currencyID string,
	rate decimal.Decimal,
	effectiveDate time.Time,
) error {
	var (
		path = "/settings/currencies/" + url.PathEscape(currencyID) + "/exchangerates"
		req  = exchangeRateRequest{
			Rate:          json.Number(rate.String()),
			EffectiveDate: effectiveDate.Format(types.DateLayout),
		}
	)

	err := c.do(ctx, http.MethodPost, path, req, nil, http.StatusCreated)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && isRateExists(apiErr) {
		return fmt.Errorf("%w: %s", ErrRateExists, apiErr.Message)
	}

	return fmt.Errorf("unable to create exchange rate: %w", err)
}

func isRateExists(apiErr *APIError) bool {
	if apiErr.StatusCode != http.StatusBadRequest {
		return false
	}

	return apiErr.Code == ErrorCodeRateExists ||
		strings.Contains(apiErr.Body, fmt.Sprint(ErrorCodeRateExists))
}

func isSet(b *bool) bool {
	return b != nil && *b
}
