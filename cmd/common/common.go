package common

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/fxsync/books"
	"github.com/sig-0/fxsync/config"
	"github.com/sig-0/fxsync/notification"
	"github.com/sig-0/fxsync/pipeline"
	"github.com/sig-0/fxsync/provider/icegate"
	"github.com/sig-0/fxsync/storage"
	"github.com/sig-0/fxsync/storage/file"
	"github.com/sig-0/fxsync/storage/types"
)

// Options are the ff parse options shared by every command.
// Flags are mirrored by environment variables: -zoho-client-id is ZOHO_CLIENT_ID.
// Flag names are kept qualified (-fxsync-config, -target-date) so they never
// bind to generic host variables like CONFIG or DATE
func Options() []ff.Option {
	return []ff.Option{
		ff.WithEnvVars(),
	}
}

// Cfg wraps the configuration shared by the sync commands
type Cfg struct {
	Config *config.Config

	configPath string
	date       string
	verbose    bool
}

// NewCfg creates a new shared command configuration
func NewCfg() *Cfg {
	return &Cfg{
		Config: config.DefaultConfig(),
	}
}

// RegisterFlags registers the shared flags with the flag set
func (c *Cfg) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.configPath,
		"fxsync-config",
		"",
		"the path to the TOML configuration, if any. Flags and environment take precedence",
	)

	fs.BoolVar(
		&c.verbose,
		"fxsync-verbose",
		false,
		"enable debug logs",
	)

	fs.StringVar(
		&c.date,
		"target-date",
		"",
		"the target date (YYYY-MM-DD), defaults to today",
	)

	// Discovery
	fs.StringVar(
		&c.Config.Discovery.PortalURL,
		"icegate-portal-url",
		c.Config.Discovery.PortalURL,
		"the ICEGATE portal URL, used to initialize the session",
	)

	fs.StringVar(
		&c.Config.Discovery.LookupURL,
		"icegate-lookup-url",
		c.Config.Discovery.LookupURL,
		"the ICEGATE notification lookup endpoint",
	)

	fs.DurationVar(
		&c.Config.Discovery.Timeout,
		"icegate-timeout",
		c.Config.Discovery.Timeout,
		"the ICEGATE request timeout",
	)

	fs.IntVar(
		&c.Config.Discovery.Workers,
		"icegate-workers",
		c.Config.Discovery.Workers,
		"the number of concurrent notification probes",
	)

	fs.IntVar(
		&c.Config.Discovery.FirstID,
		"icegate-first-id",
		c.Config.Discovery.FirstID,
		"the first notification sequence number to probe",
	)

	fs.IntVar(
		&c.Config.Discovery.LastID,
		"icegate-last-id",
		c.Config.Discovery.LastID,
		"the last notification sequence number to probe",
	)

	// Books
	fs.StringVar(
		&c.Config.Books.Region,
		"zoho-region",
		c.Config.Books.Region,
		"the Zoho data center region (com, in, eu...)",
	)

	fs.StringVar(
		&c.Config.Books.ClientID,
		"zoho-client-id",
		"",
		"the Zoho OAuth client ID",
	)

	fs.StringVar(
		&c.Config.Books.ClientSecret,
		"zoho-client-secret",
		"",
		"the Zoho OAuth client secret",
	)

	fs.StringVar(
		&c.Config.Books.RefreshToken,
		"zoho-refresh-token",
		"",
		"the Zoho OAuth refresh token",
	)

	fs.StringVar(
		&c.Config.Books.OrganizationID,
		"zoho-organization-id",
		"",
		"the Zoho Books organization ID",
	)

	fs.StringVar(
		&c.Config.Books.TokenURL,
		"zoho-token-url",
		"",
		"the Zoho OAuth token endpoint, derived from the region if empty",
	)

	fs.StringVar(
		&c.Config.Books.APIURL,
		"zoho-api-url",
		"",
		"the Zoho Books API root, derived from the region if empty",
	)

	fs.DurationVar(
		&c.Config.Books.Timeout,
		"zoho-timeout",
		c.Config.Books.Timeout,
		"the Zoho request timeout",
	)

	// Sync
	fs.Var(
		(*currencyList)(&c.Config.Sync.TargetCurrencies),
		"target-currencies",
		"comma separated currency codes to sync (default USD,EUR,GBP)",
	)

	fs.StringVar(
		&c.Config.Sync.HandoffPath,
		"handoff-path",
		c.Config.Sync.HandoffPath,
		"the path of the notification handoff file",
	)

	fs.StringVar(
		&c.Config.Sync.ReportPath,
		"report-path",
		c.Config.Sync.ReportPath,
		"the path of the latest run report",
	)
}

// Load finalizes the configuration. If a TOML file is given, it becomes the
// base, and every flag set on the command line or through the environment is
// applied on top of it
func (c *Cfg) Load(fs *flag.FlagSet) error {
	if c.configPath != "" {
		set := make(map[string]string)

		fs.Visit(func(f *flag.Flag) {
			set[f.Name] = f.Value.String()
		})

		fileCfg, err := config.Read(c.configPath)
		if err != nil {
			return fmt.Errorf("unable to read config, %w", err)
		}

		// Flags are bound to the fields of c.Config, so it is replaced in place
		*c.Config = *fileCfg

		for name, value := range set {
			if err := fs.Set(name, value); err != nil {
				return fmt.Errorf("unable to apply flag %s, %w", name, err)
			}
		}
	}

	if err := config.ValidateConfig(c.Config); err != nil {
		return fmt.Errorf("invalid configuration, %w", err)
	}

	return nil
}

// Logger creates the command logger
func (c *Cfg) Logger() *slog.Logger {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// TargetDate resolves the run's target date: the -target-date flag, or else the first
// positional argument that is a YYYY-MM-DD date. Other positional arguments are
// ignored. Defaults to today
func (c *Cfg) TargetDate(args []string, logger *slog.Logger) (time.Time, error) {
	if c.date != "" {
		t, err := time.Parse(types.DateLayout, strings.TrimSpace(c.date))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid -target-date %q, expected YYYY-MM-DD", c.date)
		}

		return t, nil
	}

	var (
		target time.Time
		found  bool
	)

	for _, arg := range args {
		t, err := time.Parse(types.DateLayout, strings.TrimSpace(arg))
		if err != nil || found {
			logger.Debug("ignoring argument", "arg", arg)

			continue
		}

		target = t
		found = true
	}

	if !found {
		return notification.MidnightUTC(time.Now()), nil
	}

	return target, nil
}

// NewService wires the sync service from the configuration
func (c *Cfg) NewService(logger *slog.Logger, store storage.Storage) (*pipeline.Service, error) {
	targets, err := c.Config.Sync.Targets()
	if err != nil {
		return nil, err
	}

	fetcher := icegate.NewClient(
		c.Config.Discovery.PortalURL,
		c.Config.Discovery.LookupURL,
		c.Config.Discovery.Timeout,
		icegate.WithLogger(logger),
		icegate.WithWorkers(c.Config.Discovery.Workers),
	)

	bc := c.Config.Books

	connect := func(ctx context.Context) (pipeline.Ledger, error) {
		creds := bc.Credentials()
		if err := creds.Validate(); err != nil {
			return nil, err
		}

		client, err := books.Connect(
			ctx,
			creds,
			bc.ResolvedAPIURL(),
			bc.OrganizationID,
			bc.Timeout,
			books.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}

		return client, nil
	}

	return pipeline.New(
		fetcher,
		connect,
		store,
		pipeline.WithLogger(logger),
		pipeline.WithTargets(targets),
		pipeline.WithIDRange(c.Config.Discovery.IDRange()),
	), nil
}

// NewStorage creates the file storage from the configuration
func (c *Cfg) NewStorage() *file.Storage {
	return file.NewStorage(c.Config.Sync.HandoffPath, c.Config.Sync.ReportPath)
}

// KnownArgs drops the flags the addressed subcommand does not define, so
// they are ignored instead of failing the parse. Arguments that do not address
// a subcommand are returned as is
func KnownArgs(root *ffcli.Command, args []string, logger *slog.Logger) []string {
	if len(args) == 0 {
		return args
	}

	for _, sub := range root.Subcommands {
		if sub.Name != args[0] || sub.FlagSet == nil {
			continue
		}

		return append([]string{args[0]}, StripUnknownFlags(sub.FlagSet, args[1:], logger)...)
	}

	return args
}

// StripUnknownFlags removes the flags not defined in the flag set, logging each.
// Values of defined flags are kept with them, and nothing after "--" is touched
func StripUnknownFlags(fs *flag.FlagSet, args []string, logger *slog.Logger) []string {
	kept := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			return append(kept, args[i:]...)
		}

		if len(arg) < 2 || arg[0] != '-' {
			kept = append(kept, arg)

			continue
		}

		name, _, hasValue := strings.Cut(strings.TrimPrefix(arg[1:], "-"), "=")

		f := fs.Lookup(name)
		if f == nil && name != "h" && name != "help" {
			logger.Debug("ignoring unknown flag", "flag", arg)

			continue
		}

		kept = append(kept, arg)

		if f == nil || hasValue || isBoolFlag(f) || i+1 >= len(args) {
			continue
		}

		// The next argument is the flag value
		i++
		kept = append(kept, args[i])
	}

	return kept
}

func isBoolFlag(f *flag.Flag) bool {
	bf, ok := f.Value.(interface{ IsBoolFlag() bool })

	return ok && bf.IsBoolFlag()
}

// currencyList is a comma separated list flag
type currencyList []string

func (l *currencyList) String() string {
	if l == nil {
		return ""
	}

	return strings.Join(*l, ",")
}

func (l *currencyList) Set(v string) error {
	var codes []string

	for _, code := range strings.Split(v, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}

	*l = codes

	return nil
}
