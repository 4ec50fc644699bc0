package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sig-0/fxsync/notification"
	"github.com/sig-0/fxsync/provider/icegate"
	"github.com/sig-0/fxsync/reconcile"
	"github.com/sig-0/fxsync/storage"
	"github.com/sig-0/fxsync/storage/types"
)

var errNoTargets = errors.New("no target currencies")

// DefaultTargets are the currencies synced when none are configured
var DefaultTargets = []types.Currency{
	types.CurrencyUSD,
	types.CurrencyEUR,
	types.CurrencyGBP,
}

// Fetcher discovers the published notifications of a year
type Fetcher interface {
	Discover(ctx context.Context, year int, ids icegate.IDRange) (*icegate.Discovery, error)
}

// Ledger is an authenticated accounting system session
type Ledger interface {
	reconcile.Books

	// LoadDirectory fetches the currencies tracked by the organization
	LoadDirectory(ctx context.Context) (types.Directory, error)
}

// Connector opens a new accounting system session. It is called once per
// reconciliation, so every run authenticates with a fresh access token
type Connector func(ctx context.Context) (Ledger, error)

// Service runs the sync stages: discovery, selection, handoff and reconciliation
type Service struct {
	fetcher Fetcher
	connect Connector
	storage storage.Storage
	logger  *slog.Logger

	targets []types.Currency
	ids     icegate.IDRange

	mu sync.Mutex // one run at a time
}

// New creates a new sync Service
func New(fetcher Fetcher, connect Connector, storage storage.Storage, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		connect: connect,
		storage: storage,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		targets: DefaultTargets,
		ids:     icegate.DefaultIDRange,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run discovers the notification in effect on the target date, hands it off
// and reconciles its rates. Per-currency failures are part of the report,
// only stage failures are returned as errors
func (s *Service) Run(ctx context.Context, target time.Time) (*types.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := xid.New().String()
	logger := s.logger.With("run_id", runID)

	selection, err := s.discover(ctx, logger, target)
	if err != nil {
		return nil, err
	}

	report, err := s.reconcile(ctx, logger, selection.Notification)
	if err != nil {
		return nil, err
	}

	report.RunID = runID
	report.Fallback = selection.Fallback

	s.saveReport(ctx, logger, report)

	return report, nil
}

// Discover runs the discovery stage only, and hands off the selected notification
func (s *Service) Discover(ctx context.Context, target time.Time) (notification.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.discover(ctx, s.logger, target)
}

// Reconcile runs the reconciliation stage only, on the handed off notification
func (s *Service) Reconcile(ctx context.Context) (*types.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := xid.New().String()
	logger := s.logger.With("run_id", runID)

	n, err := s.storage.LoadNotification(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load handed off notification: %w", err)
	}

	report, err := s.reconcile(ctx, logger, n)
	if err != nil {
		return nil, err
	}

	report.RunID = runID

	s.saveReport(ctx, logger, report)

	return report, nil
}

func (s *Service) discover(
	ctx context.Context,
	logger *slog.Logger,
	target time.Time,
) (notification.Selection, error) {
	target = notification.MidnightUTC(target)

	discovery, err := s.fetcher.Discover(ctx, target.Year(), s.ids)
	if err != nil {
		return notification.Selection{}, fmt.Errorf("unable to discover notifications: %w", err)
	}

	selection, err := notification.Select(discovery.Notifications, target)
	if err != nil {
		return notification.Selection{}, fmt.Errorf("unable to select notification: %w", err)
	}

	selected := selection.Notification

	if selection.Fallback {
		logger.Warn(
			"no notification published on or before the target date, using the oldest one",
			"target", target.Format(types.DateLayout),
			"notification", selected.Number,
			"publish_date", selected.PublishDate.Format(types.DateLayout),
		)
	} else {
		logger.Info(
			"selected notification",
			"target", target.Format(types.DateLayout),
			"notification", selected.Number,
			"publish_date", selected.PublishDate.Format(types.DateLayout),
		)
	}

	if err := s.storage.SaveNotification(ctx, selected); err != nil {
		return notification.Selection{}, fmt.Errorf("unable to hand off notification: %w", err)
	}

	return selection, nil
}

func (s *Service) reconcile(
	ctx context.Context,
	logger *slog.Logger,
	n *types.Notification,
) (*types.Report, error) {
	if len(s.targets) == 0 {
		return nil, errNoTargets
	}

	ledger, err := s.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to the accounting system: %w", err)
	}

	directory, err := ledger.LoadDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load currency directory: %w", err)
	}

	logger.Info(
		"reconciling rates",
		"notification", n.Number,
		"effective_date", n.PublishDate.Format(types.DateLayout),
		"tracked", len(directory),
	)

	report := reconcile.New(ledger, reconcile.WithLogger(logger)).Reconcile(ctx, n, directory, s.targets)

	logger.Info(
		"reconciliation finished",
		"created", report.Count(types.StatusCreated),
		"exists", report.Count(types.StatusExists),
		"skipped", report.Count(types.StatusSkippedNoRate)+report.Count(types.StatusSkippedUntracked),
		"failed", report.Count(types.StatusFailed),
	)

	return report, nil
}

// saveReport records the report. The run already happened, so a failure is only logged
func (s *Service) saveReport(ctx context.Context, logger *slog.Logger, report *types.Report) {
	if err := s.storage.SaveReport(ctx, report); err != nil {
		logger.Error(
			"unable to save report",
			"err", err,
		)
	}
}
