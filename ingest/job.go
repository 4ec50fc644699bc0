package ingest

import (
	"context"
	"time"

	"github.com/sig-0/fxsync/storage/types"
)

// Job is a single recurring sync job
type Job interface {
	// Name returns the human-readable name of the job
	Name() string

	// Interval returns the interval at which the job should be run
	Interval() time.Duration

	// Run is the job's main routine, yielding the run report
	Run(context.Context) (*types.Report, error)
}
