package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sig-0/fxsync/books"
	"github.com/sig-0/fxsync/notification"
	"github.com/sig-0/fxsync/storage/types"
)

// Books is the accounting system surface used for reconciliation
type Books interface {
	// DisableFeed turns off the automatic exchange rate feed of the currency
	DisableFeed(ctx context.Context, currencyID string) error

	// CreateExchangeRate records the rate for the currency, as of the effective date.
	// A rate that is already recorded yields books.ErrRateExists
	CreateExchangeRate(
		ctx context.Context,
		currencyID string,
		rate decimal.Decimal,
		effectiveDate time.Time,
	) error
}

// Reconciler pushes notification rates into the accounting system
type Reconciler struct {
	books  Books
	logger *slog.Logger
}

// New creates a new Reconciler instance
func New(books Books, opts ...Option) *Reconciler {
	r := &Reconciler{
		books:  books,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Reconcile syncs every targeted currency of the notification, as of its publish date.
// Currencies are handled independently: a failure is recorded in the currency's
// outcome, and never stops the others
func (r *Reconciler) Reconcile(
	ctx context.Context,
	n *types.Notification,
	directory types.Directory,
	targets []types.Currency,
) *types.Report {
	report := &types.Report{
		StartedAt:     time.Now().UTC(),
		Notification:  n.Number,
		EffectiveDate: n.PublishDate,
		Outcomes:      make([]*types.Outcome, 0, len(targets)),
	}

	targeted := make(map[types.Currency]struct{}, len(targets))
	for _, code := range targets {
		targeted[code] = struct{}{}
	}

	for _, detail := range n.Details {
		if _, ok := targeted[detail.Code]; !ok {
			continue
		}

		report.Outcomes = append(
			report.Outcomes,
			r.reconcileCurrency(ctx, detail, directory, n.PublishDate),
		)
	}

	report.FinishedAt = time.Now().UTC()

	return report
}

// reconcileCurrency syncs a single currency
func (r *Reconciler) reconcileCurrency(
	ctx context.Context,
	detail types.CurrencyDetail,
	directory types.Directory,
	effectiveDate time.Time,
) *types.Outcome {
	outcome := &types.Outcome{
		Code: detail.Code,
		Feed: types.FeedActionNone,
	}

	rate, ok := notification.EffectiveRate(detail)
	if !ok {
		r.logger.Warn(
			"no rate published",
			"code", detail.Code,
		)

		outcome.Status = types.StatusSkippedNoRate

		return outcome
	}

	outcome.Rate = &rate

	record, ok := directory[detail.Code]
	if !ok {
		r.logger.Warn(
			"currency not tracked in the accounting system",
			"code", detail.Code,
		)

		outcome.Status = types.StatusSkippedUntracked

		return outcome
	}

	outcome.CurrencyID = record.ID

	r.logger.Debug(
		"currency configuration",
		"code", record.Code,
		"feed_enabled", record.FeedEnabled,
		"active", record.Active,
		"base", record.Base,
	)

	// The feed would overwrite the pushed rate, turn it off first.
	// The push is attempted even if this fails
	if record.FeedEnabled {
		r.logger.Warn(
			"exchange rate feed enabled, disabling",
			"code", record.Code,
			"currency_id", record.ID,
		)

		if err := r.books.DisableFeed(ctx, record.ID); err != nil {
			r.logger.Error(
				"unable to disable exchange rate feed",
				"code", record.Code,
				"currency_id", record.ID,
				"err", err,
			)

			outcome.Feed = types.FeedActionDisableFailed
		} else {
			outcome.Feed = types.FeedActionDisabled
		}
	}

	err := r.books.CreateExchangeRate(ctx, record.ID, rate, effectiveDate)

	switch {
	case err == nil:
		outcome.Status = types.StatusCreated

		r.logger.Info(
			"exchange rate created",
			"code", record.Code,
			"rate", rate.String(),
			"effective_date", effectiveDate.Format(types.DateLayout),
		)
	case errors.Is(err, books.ErrRateExists):
		outcome.Status = types.StatusExists

		r.logger.Info(
			"exchange rate already exists",
			"code", record.Code,
			"effective_date", effectiveDate.Format(types.DateLayout),
		)
	default:
		outcome.Status = types.StatusFailed
		outcome.Error = err.Error()

		r.logger.Error(
			"unable to create exchange rate",
			"code", record.Code,
			"currency_id", record.ID,
			"err", err,
		)
	}

	return outcome
}
