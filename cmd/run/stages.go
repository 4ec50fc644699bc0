package run

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/fxsync/cmd/common"
	"github.com/sig-0/fxsync/storage/types"
)

// NewDiscoverCmd creates the discover subcommand, running the discovery stage
// and writing the selected notification to the handoff file
func NewDiscoverCmd() *ffcli.Command {
	cfg := &runCfg{
		common: common.NewCfg(),
		fs:     flag.NewFlagSet("discover", flag.ExitOnError),
	}

	cfg.common.RegisterFlags(cfg.fs)

	return &ffcli.Command{
		Name:       "discover",
		ShortUsage: "discover [flags] [YYYY-MM-DD]",
		ShortHelp:  "discovers the notification in effect and hands it off",
		LongHelp: "Discovers the ICEGATE exchange rate notification in effect on the target date " +
			"(defaults to today), and writes it to the handoff file",
		FlagSet: cfg.fs,
		Exec:    cfg.execDiscover,
		Options: common.Options(),
	}
}

// NewReconcileCmd creates the reconcile subcommand, reconciling the handed off notification
func NewReconcileCmd() *ffcli.Command {
	cfg := &runCfg{
		common: common.NewCfg(),
		fs:     flag.NewFlagSet("reconcile", flag.ExitOnError),
	}

	cfg.common.RegisterFlags(cfg.fs)

	return &ffcli.Command{
		Name:       "reconcile",
		ShortUsage: "reconcile [flags]",
		ShortHelp:  "reconciles the handed off notification",
		LongHelp: "Reads the notification from the handoff file, and records its rates " +
			"in the Zoho Books exchange rate history",
		FlagSet: cfg.fs,
		Exec:    cfg.execReconcile,
		Options: common.Options(),
	}
}

func (c *runCfg) execDiscover(ctx context.Context, args []string) error {
	if err := c.common.Load(c.fs); err != nil {
		return err
	}

	logger := c.common.Logger()

	target, err := c.common.TargetDate(args, logger)
	if err != nil {
		return err
	}

	service, err := c.common.NewService(logger, c.common.NewStorage())
	if err != nil {
		return err
	}

	runCtx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()

	selection, err := service.Discover(runCtx, target)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(
		os.Stdout,
		"Notification %s (published %s) written to %s\n",
		selection.Notification.Number,
		selection.Notification.PublishDate.Format(types.DateLayout),
		c.common.Config.Sync.HandoffPath,
	)

	return nil
}

func (c *runCfg) execReconcile(ctx context.Context, _ []string) error {
	if err := c.common.Load(c.fs); err != nil {
		return err
	}

	logger := c.common.Logger()

	service, err := c.common.NewService(logger, c.common.NewStorage())
	if err != nil {
		return err
	}

	runCtx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()

	report, err := service.Reconcile(runCtx)
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)

	return nil
}
