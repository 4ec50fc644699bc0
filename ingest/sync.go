package ingest

import (
	"context"
	"time"

	"github.com/sig-0/fxsync/storage/types"
)

// Syncer runs a full sync for the given target date
type Syncer interface {
	Run(ctx context.Context, target time.Time) (*types.Report, error)
}

// SyncJob is the recurring sync, always targeting the current date
type SyncJob struct {
	syncer   Syncer
	name     string
	interval time.Duration
}

// NewSyncJob creates a new recurring sync job
func NewSyncJob(name string, interval time.Duration, syncer Syncer) *SyncJob {
	return &SyncJob{
		syncer:   syncer,
		name:     name,
		interval: interval,
	}
}

func (s *SyncJob) Name() string {
	return s.name
}

func (s *SyncJob) Interval() time.Duration {
	return s.interval
}

func (s *SyncJob) Run(ctx context.Context) (*types.Report, error) {
	return s.syncer.Run(ctx, time.Now().UTC())
}
