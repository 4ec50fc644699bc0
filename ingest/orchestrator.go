package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sig-0/iq"

	"github.com/sig-0/fxsync/storage/types"
)

var (
	errInvalidJob      = errors.New("invalid job")
	errInvalidInterval = errors.New("invalid interval")
)

// DefaultRetryDelay is the delay before a failed job is run again
const DefaultRetryDelay = 5 * time.Minute

// Orchestrator is the main scheduler for registered sync jobs
type Orchestrator struct {
	logger *slog.Logger

	registeredJobs sync.Map

	q             iq.Queue[scheduledRun]
	queryInterval time.Duration
	retryDelay    time.Duration
	qMux          sync.Mutex
}

// New creates a new Orchestrator instance
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		q:             iq.NewQueue[scheduledRun](),
		queryInterval: time.Second, // every second
		retryDelay:    DefaultRetryDelay,
	}

	// Apply the options
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Register registers a new job with the orchestrator.
// The job is immediately queued up for execution
func (o *Orchestrator) Register(j Job) error {
	if j == nil || j.Name() == "" {
		return errInvalidJob
	}

	if j.Interval() <= 0 {
		return errInvalidInterval
	}

	// Register the job
	id := xid.New()
	o.registeredJobs.Store(id, j)

	o.logger.Info(
		"registered new job",
		"name", j.Name(),
		"interval", j.Interval().String(),
	)

	// Schedule the job
	o.scheduleRun(
		time.Now().UTC(),
		id,
		j,
	)

	return nil
}

// Start starts the job orchestration service loop [BLOCKING]
func (o *Orchestrator) Start(ctx context.Context) error {
	collectorCh := make(chan *workerResponse, 100)

	// Start a listener for monitoring jobs
	ticker := time.NewTicker(o.queryInterval)
	defer ticker.Stop()

	// handleRuns initializes all jobs that are executable (due)
	handleRuns := func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				next := o.nextRun()
				if next == nil {
					return // nothing to schedule anymore
				}

				o.logger.Info(
					"starting job run",
					"name", next.job.Name(),
				)

				// Spawn worker
				info := &workerInfo{
					job:   next.job,
					jobID: next.jobID,
					resCh: collectorCh,
				}

				go handleJob(ctx, info)
			}
		}
	}

	// Initialize the first set of due jobs (on boot)
	handleRuns()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator service shut down")

			return nil
		case <-ticker.C:
			handleRuns()
		case response := <-collectorCh:
			now := time.Now().UTC()

			jRaw, ok := o.registeredJobs.Load(response.jobID)
			if !ok {
				o.logger.Error(
					"unable to load registered job",
					"id", response.jobID.String(),
				)

				continue
			}

			j, _ := jRaw.(Job)

			if response.error != nil {
				o.logger.Error(
					"error encountered during job run",
					"name", j.Name(),
					"id", response.jobID.String(),
					"err", response.error,
				)

				// Retry the job soon
				o.scheduleRun(now.Add(o.retryDelay), response.jobID, j)

				continue
			}

			o.logReport(j, response.report)

			// Pushes are idempotent, so a run with failed
			// currencies is safe to retry early
			next := now.Add(j.Interval())
			if response.report != nil && response.report.Failed() {
				next = now.Add(min(o.retryDelay, j.Interval()))
			}

			o.scheduleRun(next, response.jobID, j)
		}
	}
}

func (o *Orchestrator) logReport(j Job, report *types.Report) {
	if report == nil {
		o.logger.Info("job run finished", "name", j.Name())

		return
	}

	o.logger.Info(
		"job run finished",
		"name", j.Name(),
		"run_id", report.RunID,
		"notification", report.Notification,
		"effective_date", report.EffectiveDate.Format(types.DateLayout),
		"created", report.Count(types.StatusCreated),
		"exists", report.Count(types.StatusExists),
		"failed", report.Count(types.StatusFailed),
	)
}

// scheduleRun schedules a new job run
func (o *Orchestrator) scheduleRun(
	at time.Time,
	jobID xid.ID,
	job Job,
) {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	o.q.Push(scheduledRun{
		at:    at,
		jobID: jobID,
		job:   job,
	})
}

// nextRun fetches the next due job run, as of the moment of calling
func (o *Orchestrator) nextRun() *scheduledRun {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	now := time.Now().UTC()

	// Check if anything needs to be scheduled
	if o.q.Len() == 0 {
		return nil // nothing to schedule, all jobs are running
	}

	// Check if the top element is due
	if o.q.Index(0).at.After(now) {
		return nil // nothing to schedule, earliest job is in the future
	}

	return o.q.PopFront()
}
