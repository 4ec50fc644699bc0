package run

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/fxsync/cmd/common"
	"github.com/sig-0/fxsync/storage/types"
)

type runCfg struct {
	common *common.Cfg
	fs     *flag.FlagSet
}

// NewRunCmd creates the run subcommand, syncing in a single process
func NewRunCmd() *ffcli.Command {
	cfg := &runCfg{
		common: common.NewCfg(),
		fs:     flag.NewFlagSet("run", flag.ExitOnError),
	}

	cfg.common.RegisterFlags(cfg.fs)

	return &ffcli.Command{
		Name:       "run",
		ShortUsage: "run [flags] [YYYY-MM-DD]",
		ShortHelp:  "discovers the notification in effect and reconciles its rates",
		LongHelp: "Discovers the ICEGATE exchange rate notification in effect on the target date " +
			"(defaults to today), and records its rates in the Zoho Books exchange rate history",
		FlagSet: cfg.fs,
		Exec:    cfg.exec,
		Options: common.Options(),
	}
}

func (c *runCfg) exec(ctx context.Context, args []string) error {
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

	report, err := service.Run(runCtx, target)
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)

	return nil
}

// printReport prints the per-currency run summary
func printReport(w io.Writer, report *types.Report) {
	_, _ = fmt.Fprintf(
		w,
		"\nNotification %s, effective %s",
		report.Notification,
		report.EffectiveDate.Format(types.DateLayout),
	)

	if report.Fallback {
		_, _ = fmt.Fprint(w, " (fallback: none published on or before the target date)")
	}

	_, _ = fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "CURRENCY\tRATE\tSTATUS\tFEED\tERROR")

	for _, o := range report.Outcomes {
		rate := "-"
		if o.Rate != nil {
			rate = o.Rate.String()
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Code, rate, o.Status, o.Feed, o.Error)
	}

	_ = tw.Flush()

	_, _ = fmt.Fprintf(
		w,
		"created %d, existing %d, skipped %d, failed %d\n",
		report.Count(types.StatusCreated),
		report.Count(types.StatusExists),
		report.Count(types.StatusSkippedNoRate)+report.Count(types.StatusSkippedUntracked),
		report.Count(types.StatusFailed),
	)
}
