package serve

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/fxsync/cmd/common"
	"github.com/sig-0/fxsync/ingest"
	"github.com/sig-0/fxsync/server"
	"github.com/sig-0/fxsync/storage"
	"github.com/sig-0/fxsync/storage/memory"
)

const syncJobName = "icegate-zoho-sync"

// serveCfg wraps the serve configuration
type serveCfg struct {
	common *common.Cfg
	fs     *flag.FlagSet

	inMemory   bool
	retryDelay time.Duration
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		common: common.NewCfg(),
		fs:     flag.NewFlagSet("serve", flag.ExitOnError),
	}

	cfg.registerFlags()

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve [flags]",
		ShortHelp:  "runs the sync on a schedule, and serves its state over HTTP",
		LongHelp:   "Runs the sync on a schedule, and serves the latest report and notification over HTTP",
		FlagSet:    cfg.fs,
		Exec:       cfg.exec,
		Options:    common.Options(),
	}
}

func (c *serveCfg) registerFlags() {
	c.common.RegisterFlags(c.fs)

	c.fs.StringVar(
		&c.common.Config.Server.ListenAddress,
		"server-listen",
		c.common.Config.Server.ListenAddress,
		"the IP:PORT URL for the server",
	)

	c.fs.DurationVar(
		&c.common.Config.Sync.Interval,
		"sync-interval",
		c.common.Config.Sync.Interval,
		"the interval between scheduled syncs",
	)

	c.fs.DurationVar(
		&c.retryDelay,
		"sync-retry-delay",
		ingest.DefaultRetryDelay,
		"the delay before a failed sync is retried",
	)

	c.fs.BoolVar(
		&c.inMemory,
		"sync-in-memory",
		false,
		"keep the handoff and reports in memory, instead of files",
	)
}

func (c *serveCfg) exec(ctx context.Context, _ []string) error {
	if err := c.common.Load(c.fs); err != nil {
		return err
	}

	logger := c.common.Logger()

	var store storage.Storage = c.common.NewStorage()
	if c.inMemory {
		store = memory.NewStorage()
	}

	service, err := c.common.NewService(logger, store)
	if err != nil {
		return err
	}

	// Set up the scheduled sync
	orchestrator := ingest.New(
		ingest.WithLogger(logger),
		ingest.WithRetryDelay(c.retryDelay),
	)

	if err := orchestrator.Register(
		ingest.NewSyncJob(syncJobName, c.common.Config.Sync.Interval, service),
	); err != nil {
		return fmt.Errorf("unable to register sync job, %w", err)
	}

	s, err := server.New(
		store,
		service,
		server.WithLogger(logger),
		server.WithConfig(&c.common.Config.Server),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return orchestrator.Start(gCtx)
	})

	group.Go(func() error {
		return s.Serve(gCtx)
	})

	return group.Wait()
}
