package ingest

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/sig-0/fxsync/storage/types"
)

// scheduledRun is a single scheduled Job run
type scheduledRun struct {
	at    time.Time
	job   Job
	jobID xid.ID
}

// Less is utilized to sort scheduled runs by their due-time (earliest == first)
func (a scheduledRun) Less(b scheduledRun) bool {
	return a.at.Before(b.at)
}

// workerInfo is the work context for the job routine
type workerInfo struct {
	job   Job
	resCh chan<- *workerResponse
	jobID xid.ID
}

// workerResponse is the job routine response
type workerResponse struct {
	error  error         // encountered error, if any
	report *types.Report // the run report
	jobID  xid.ID        // the job ID
}

// handleJob runs the job
func handleJob(
	ctx context.Context,
	info *workerInfo,
) {
	report, err := info.job.Run(ctx)

	response := &workerResponse{
		error:  err,
		report: report,
		jobID:  info.jobID,
	}

	select {
	case <-ctx.Done():
	case info.resCh <- response:
	}
}
