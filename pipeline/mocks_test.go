package pipeline

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sig-0/fxsync/provider/icegate"
	"github.com/sig-0/fxsync/storage/types"
)

type (
	discoverDelegate           func(context.Context, int, icegate.IDRange) (*icegate.Discovery, error)
	loadDirectoryDelegate      func(context.Context) (types.Directory, error)
	disableFeedDelegate        func(context.Context, string) error
	createExchangeRateDelegate func(context.Context, string, decimal.Decimal, time.Time) error
)

type mockFetcher struct {
	discoverFn discoverDelegate
}

func (m *mockFetcher) Discover(ctx context.Context, year int, ids icegate.IDRange) (*icegate.Discovery, error) {
	if m.discoverFn != nil {
		return m.discoverFn(ctx, year, ids)
	}

	return nil, nil
}

type mockLedger struct {
	loadDirectoryFn      loadDirectoryDelegate
	disableFeedFn        disableFeedDelegate
	createExchangeRateFn createExchangeRateDelegate
}

func (m *mockLedger) LoadDirectory(ctx context.Context) (types.Directory, error) {
	if m.loadDirectoryFn != nil {
		return m.loadDirectoryFn(ctx)
	}

	return nil, nil
}

func (m *mockLedger) DisableFeed(ctx context.Context, currencyID string) error {
	if m.disableFeedFn != nil {
		return m.disableFeedFn(ctx, currencyID)
	}

	return nil
}

func (m *mockLedger) CreateExchangeRate(
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
