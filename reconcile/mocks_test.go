package reconcile

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type (
	disableFeedDelegate        func(context.Context, string) error
	createExchangeRateDelegate func(context.Context, string, decimal.Decimal, time.Time) error
)

type mockBooks struct {
	disableFeedFn        disableFeedDelegate
	createExchangeRateFn createExchangeRateDelegate
}

func (m *mockBooks) DisableFeed(ctx context.Context, currencyID string) error {
	if m.disableFeedFn != nil {
		return m.disableFeedFn(ctx, currencyID)
	}

	return nil
}

func (m *mockBooks) CreateExchangeRate(
	ctx context.Context,
	currencyID string,
	rate decimal.Decimal,
	effectiveDate time.Time,
) error {
	if m.createExchangeRateFn != nil {
		return m.createExchangeRateFn(ctx, currencyID, rate, effectiveDate)
	}

	return nil
}
