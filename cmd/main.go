package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/fxsync/cmd/common"
	"github.com/sig-0/fxsync/cmd/run"
	"github.com/sig-0/fxsync/cmd/serve"
)

func main() {
	// Load .env, so its values back the flags
	if err := godotenv.Load(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "warning: unable to load .env file, using the environment")
	}

	fs := flag.NewFlagSet("root", flag.ExitOnError)

	// Create the root command
	cmd := &ffcli.Command{
		ShortUsage: "<sub-command> [flags] [<arg>...]",
		LongHelp:   "Syncs ICEGATE customs exchange rates into Zoho Books",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
	}

	// Add the subcommands
	cmd.Subcommands = []*ffcli.Command{
		run.NewRunCmd(),
		run.NewDiscoverCmd(),
		run.NewReconcileCmd(),
		serve.NewServeCmd(),
	}

	// Unknown flags are ignored, not rejected
	args := common.KnownArgs(cmd, os.Args[1:], slog.Default())

	if err := cmd.ParseAndRun(context.Background(), args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
