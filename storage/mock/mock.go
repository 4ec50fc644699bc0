package mock

import (
	"context"

	"github.com/sig-0/fxsync/storage/types"
)

type (
	SaveNotificationDelegate func(context.Context, *types.Notification) error
	LoadNotificationDelegate func(context.Context) (*types.Notification, error)
	SaveReportDelegate       func(context.Context, *types.Report) error
	LatestReportDelegate     func(context.Context) (*types.Report, error)
)

type Storage struct {
	SaveNotificationFn SaveNotificationDelegate
	LoadNotificationFn LoadNotificationDelegate
	SaveReportFn       SaveReportDelegate
	LatestReportFn     LatestReportDelegate
}

func (m *Storage) SaveNotification(ctx context.Context, n *types.Notification) error {
	if m.SaveNotificationFn != nil {
		return m.SaveNotificationFn(ctx, n)
	}

	return nil
}

func (m *Storage) LoadNotification(ctx context.Context) (*types.Notification, error) {
	if m.LoadNotificationFn != nil {
		return m.LoadNotificationFn(ctx)
	}

	return nil, nil
}

func (m *Storage) SaveReport(ctx context.Context, r *types.Report) error {
	if m.SaveReportFn != nil {
		return m.SaveReportFn(ctx, r)
	}

	return nil
}

func (m *Storage) LatestReport(ctx context.Context) (*types.Report, error) {
	if m.LatestReportFn != nil {
		return m.LatestReportFn(ctx)
	}

	return nil, nil
}
