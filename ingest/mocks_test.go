package ingest

import (
	"context"
	"time"

	"github.com/sig-0/fxsync/storage/types"
)

type (
	nameDelegate     func() string
	intervalDelegate func() time.Duration
	runDelegate      func(context.Context) (*types.Report, error)
	syncDelegate     func(context.Context, time.Time) (*types.Report, error)
)

type mockJob struct {
	nameFn     nameDelegate
	intervalFn intervalDelegate
	runFn      runDelegate
}

func (m *mockJob) Name() string {
	if m.nameFn != nil {
		return m.nameFn()
	}

	return ""
}

func (m *mockJob) Interval() time.Duration {
	if m.intervalFn != nil {
		return m.intervalFn()
	}

	return 0
}

func (m *mockJob) Run(ctx context.Context) (*types.Report, error) {
	if m.runFn != nil {
		return m.runFn(ctx)
	}

	return nil, nil
}

type mockSyncer struct {
	runFn syncDelegate
}

func (m *mockSyncer) Run(ctx context.Context, target time.Time) (*types.Report, error) {
	if m.runFn != nil {
		return m.runFn(ctx, target)
	}

	return nil, nil
}
