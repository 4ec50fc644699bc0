package common

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/fxsync/config"
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newParsedCfg(t *testing.T, args ...string) (*Cfg, *flag.FlagSet) {
	t.Helper()

	var (
		cfg = NewCfg()
		fs  = flag.NewFlagSet("test", flag.ContinueOnError)
	)

	fs.SetOutput(io.Discard)
	cfg.RegisterFlags(fs)

	require.NoError(t, fs.Parse(args))

	return cfg, fs
}

func TestCfg_TargetDate(t *testing.T) {
	t.Parallel()

	t.Run("positional date", func(t *testing.T) {
		t.Parallel()

		cfg, fs := newParsedCfg(t, "2026-02-15")

		target, err := cfg.TargetDate(fs.Args(), noopLogger)
		require.NoError(t, err)

		assert.Equal(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC), target)
	})

	t.Run("unknown arguments are ignored", func(t *testing.T) {
		t.Parallel()

		cfg, fs := newParsedCfg(t, "now", "2026-01-05", "2026-03-01")

		target, err := cfg.TargetDate(fs.Args(), noopLogger)
		require.NoError(t, err)

		assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), target)
	})

	t.Run("date flag", func(t *testing.T) {
		t.Parallel()

		cfg, fs := newParsedCfg(t, "-target-date", "2025-12-01", "2026-02-15")

		target, err := cfg.TargetDate(fs.Args(), noopLogger)
		require.NoError(t, err)

		assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), target)
	})

	t.Run("invalid date flag", func(t *testing.T) {
		t.Parallel()

		cfg, fs := newParsedCfg(t, "-target-date", "01-12-2025")

		_, err := cfg.TargetDate(fs.Args(), noopLogger)
		assert.Error(t, err)
	})

	t.Run("defaults to today", func(t *testing.T) {
		t.Parallel()

		cfg, fs := newParsedCfg(t)

		target, err := cfg.TargetDate(fs.Args(), noopLogger)
		require.NoError(t, err)

		now := time.Now().UTC()

		assert.Equal(t, now.Year(), target.Year())
		assert.Equal(t, 0, target.Hour())
		assert.Equal(t, time.UTC, target.Location())
	})
}

func TestCfg_Load(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg, fs := newParsedCfg(t)

		require.NoError(t, cfg.Load(fs))
		assert.Equal(t, config.DefaultConfig(), cfg.Config)
	})

	t.Run("target currencies flag", func(t *testing.T) {
		t.Parallel()

		cfg, fs := newParsedCfg(t, "-target-currencies", "usd, jpy,")

		require.NoError(t, cfg.Load(fs))
		assert.Equal(t, []string{"usd", "jpy"}, cfg.Config.Sync.TargetCurrencies)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		t.Parallel()

		cfg, fs := newParsedCfg(t, "-icegate-workers", "0")

		assert.ErrorIs(t, cfg.Load(fs), config.ErrInvalidWorkers)
	})

	t.Run("flags override the file", func(t *testing.T) {
		t.Parallel()

		content := `
[books]
region = "com"
organization_id = "from-file"
client_id = "file-client"

[sync]
handoff_path = "file.json"
`

		path := filepath.Join(t.TempDir(), "fxsync.toml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, fs := newParsedCfg(
			t,
			"-fxsync-config", path,
			"-zoho-organization-id", "from-flag",
		)

		require.NoError(t, cfg.Load(fs))

		assert.Equal(t, "com", cfg.Config.Books.Region)
		assert.Equal(t, "file-client", cfg.Config.Books.ClientID)
		assert.Equal(t, "from-flag", cfg.Config.Books.OrganizationID)
		assert.Equal(t, "file.json", cfg.Config.Sync.HandoffPath)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		cfg, fs := newParsedCfg(t, "-fxsync-config", filepath.Join(t.TempDir(), "missing.toml"))

		assert.ErrorIs(t, cfg.Load(fs), os.ErrNotExist)
	})
}

func TestCfg_NewService(t *testing.T) {
	t.Parallel()

	cfg, fs := newParsedCfg(t)
	require.NoError(t, cfg.Load(fs))

	service, err := cfg.NewService(noopLogger, cfg.NewStorage())
	require.NoError(t, err)
	assert.NotNil(t, service)
}

func TestStripUnknownFlags(t *testing.T) {
	t.Parallel()

	t.Run("unknown flags are dropped", func(t *testing.T) {
		t.Parallel()

		var (
			cfg = NewCfg()
			fs  = flag.NewFlagSet("test", flag.ContinueOnError)
		)

		fs.SetOutput(io.Discard)
		cfg.RegisterFlags(fs)

		args := StripUnknownFlags(
			fs,
			[]string{
				"--foo",
				"-target-date", "2026-01-05",
				"--bar=1",
				"-fxsync-verbose",
				"-zoho-region=com",
				"2026-02-01",
				"--",
				"-baz",
			},
			noopLogger,
		)

		assert.Equal(
			t,
			[]string{
				"-target-date", "2026-01-05",
				"-fxsync-verbose",
				"-zoho-region=com",
				"2026-02-01",
				"--",
				"-baz",
			},
			args,
		)

		require.NoError(t, fs.Parse(args))

		target, err := cfg.TargetDate(fs.Args(), noopLogger)
		require.NoError(t, err)

		assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), target)
		assert.True(t, cfg.verbose)
		assert.Equal(t, "com", cfg.Config.Books.Region)
	})

	t.Run("help is kept", func(t *testing.T) {
		t.Parallel()

		fs := flag.NewFlagSet("test", flag.ContinueOnError)

		assert.Equal(t, []string{"-h"}, StripUnknownFlags(fs, []string{"-h"}, noopLogger))
	})
}

func TestKnownArgs(t *testing.T) {
	t.Parallel()

	var (
		cfg = NewCfg()
		fs  = flag.NewFlagSet("discover", flag.ContinueOnError)
	)

	fs.SetOutput(io.Discard)
	cfg.RegisterFlags(fs)

	root := &ffcli.Command{
		FlagSet: flag.NewFlagSet("root", flag.ContinueOnError),
		Subcommands: []*ffcli.Command{
			{
				Name:    "discover",
				FlagSet: fs,
			},
		},
	}

	t.Run("subcommand flags", func(t *testing.T) {
		t.Parallel()

		assert.Equal(
			t,
			[]string{"discover", "-target-date", "2026-01-05"},
			KnownArgs(root, []string{"discover", "--foo", "-target-date", "2026-01-05"}, noopLogger),
		)
	})

	t.Run("no subcommand", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, []string{"--foo"}, KnownArgs(root, []string{"--foo"}, noopLogger))
		assert.Empty(t, KnownArgs(root, nil, noopLogger))
	})
}

// The environment is process wide, so these cases do not run in parallel
func TestOptions_Environment(t *testing.T) {
	parse := func(t *testing.T) (*Cfg, *flag.FlagSet) {
		t.Helper()

		var (
			cfg = NewCfg()
			fs  = flag.NewFlagSet("test", flag.ContinueOnError)
		)

		fs.SetOutput(io.Discard)
		cfg.RegisterFlags(fs)

		require.NoError(t, ff.Parse(fs, nil, Options()...))

		return cfg, fs
	}

	t.Run("generic host variables are not bound", func(t *testing.T) {
		t.Setenv("DATE", "yesterday")
		t.Setenv("CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
		t.Setenv("VERBOSE", "true")

		cfg, fs := parse(t)

		require.NoError(t, cfg.Load(fs))
		assert.False(t, cfg.verbose)

		target, err := cfg.TargetDate(fs.Args(), noopLogger)
		require.NoError(t, err)

		now := time.Now().UTC()

		assert.Equal(t, now.Year(), target.Year())
		assert.Equal(t, 0, target.Hour())
	})

	t.Run("qualified variables are bound", func(t *testing.T) {
		t.Setenv("TARGET_DATE", "2026-02-15")
		t.Setenv("ZOHO_ORGANIZATION_ID", "org-env")
		t.Setenv("TARGET_CURRENCIES", "usd,jpy")

		cfg, fs := parse(t)

		require.NoError(t, cfg.Load(fs))

		target, err := cfg.TargetDate(fs.Args(), noopLogger)
		require.NoError(t, err)

		assert.Equal(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC), target)
		assert.Equal(t, "org-env", cfg.Config.Books.OrganizationID)
		assert.Equal(t, []string{"usd", "jpy"}, cfg.Config.Sync.TargetCurrencies)
	})
}
