package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/sig-0/fxsync/books"
	"github.com/sig-0/fxsync/provider/icegate"
	serverconfig "github.com/sig-0/fxsync/server/config"
	"github.com/sig-0/fxsync/storage/file"
	"github.com/sig-0/fxsync/storage/types"
)

const (
	DefaultRegion       = "in"
	DefaultTimeout      = 30 * time.Second
	DefaultSyncInterval = 24 * time.Hour
)

var (
	ErrInvalidURL      = errors.New("invalid URL")
	ErrInvalidWorkers  = errors.New("invalid worker count")
	ErrInvalidIDRange  = errors.New("invalid notification id range")
	ErrInvalidTimeout  = errors.New("invalid timeout")
	ErrInvalidRegion   = errors.New("invalid region")
	ErrInvalidCurrency = errors.New("invalid target currency")
	ErrNoTargets       = errors.New("no target currencies")
	ErrInvalidInterval = errors.New("invalid sync interval")
)

// DefaultTargetCurrencies are synced when none are configured
var DefaultTargetCurrencies = []string{"USD", "EUR", "GBP"}

// Config is the complete fxsync configuration
type Config struct {
	Discovery Discovery           `toml:"discovery"`
	Books     Books               `toml:"books"`
	Sync      Sync                `toml:"sync"`
	Server    serverconfig.Config `toml:"server"`
}

// Discovery configures the ICEGATE notification scan
type Discovery struct {
	PortalURL string        `toml:"portal_url"`
	LookupURL string        `toml:"lookup_url"`
	Timeout   time.Duration `toml:"timeout"`
	Workers   int           `toml:"workers"`

	// Inclusive range of notification sequence numbers to probe
	FirstID int `toml:"first_id"`
	LastID  int `toml:"last_id"`
}

// Books configures the Zoho Books organization access.
// Token and API URLs are derived from the region when empty
type Books struct {
	Region         string        `toml:"region"`
	ClientID       string        `toml:"client_id"`
	ClientSecret   string        `toml:"client_secret"`
	RefreshToken   string        `toml:"refresh_token"`
	OrganizationID string        `toml:"organization_id"`
	TokenURL       string        `toml:"token_url"`
	APIURL         string        `toml:"api_url"`
	Timeout        time.Duration `toml:"timeout"`
}

// Sync configures the sync runs
type Sync struct {
	TargetCurrencies []string      `toml:"target_currencies"`
	HandoffPath      string        `toml:"handoff_path"`
	ReportPath       string        `toml:"report_path"`
	Interval         time.Duration `toml:"interval"` // serve mode only
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Discovery: Discovery{
			PortalURL: icegate.DefaultPortalURL,
			LookupURL: icegate.DefaultLookupURL,
			Timeout:   DefaultTimeout,
			Workers:   icegate.DefaultWorkers,
			FirstID:   icegate.DefaultIDRange.From,
			LastID:    icegate.DefaultIDRange.To,
		},
		Books: Books{
			Region:  DefaultRegion,
			Timeout: DefaultTimeout,
		},
		Sync: Sync{
			TargetCurrencies: append([]string(nil), DefaultTargetCurrencies...),
			HandoffPath:      file.DefaultHandoffPath,
			ReportPath:       file.DefaultReportPath,
			Interval:         DefaultSyncInterval,
		},
		Server: *serverconfig.DefaultConfig(),
	}
}

// ValidateConfig validates the configuration.
// Credentials are not checked here, as discovery runs without them
func ValidateConfig(config *Config) error {
	for _, raw := range []string{
		config.Discovery.PortalURL,
		config.Discovery.LookupURL,
		config.Books.TokenURL,
		config.Books.APIURL,
	} {
		if raw == "" {
			continue
		}

		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
		}
	}

	if config.Discovery.PortalURL == "" || config.Discovery.LookupURL == "" {
		return fmt.Errorf("%w: discovery URLs are required", ErrInvalidURL)
	}

	if config.Discovery.Workers < 1 {
		return ErrInvalidWorkers
	}

	if config.Discovery.FirstID < 1 || config.Discovery.LastID < config.Discovery.FirstID {
		return fmt.Errorf(
			"%w: %d..%d",
			ErrInvalidIDRange,
			config.Discovery.FirstID,
			config.Discovery.LastID,
		)
	}

	if config.Discovery.Timeout <= 0 || config.Books.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if strings.TrimSpace(config.Books.Region) == "" {
		return ErrInvalidRegion
	}

	if config.Sync.Interval <= 0 {
		return ErrInvalidInterval
	}

	if _, err := config.Sync.Targets(); err != nil {
		return err
	}

	return serverconfig.ValidateConfig(&config.Server)
}

// Read reads the configuration from the given path, on top of the defaults
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse it
	cfg := DefaultConfig()

	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IDRange returns the probed notification sequence numbers
func (d Discovery) IDRange() icegate.IDRange {
	return icegate.IDRange{
		From: d.FirstID,
		To:   d.LastID,
	}
}

// Credentials returns the OAuth credentials, resolving the token URL from the region
func (b Books) Credentials() books.Credentials {
	tokenURL := b.TokenURL
	if tokenURL == "" {
		tokenURL = books.TokenURL(b.Region)
	}

	return books.Credentials{
		ClientID:     b.ClientID,
		ClientSecret: b.ClientSecret,
		RefreshToken: b.RefreshToken,
		TokenURL:     tokenURL,
	}
}

// ResolvedAPIURL returns the API base URL, resolving it from the region
func (b Books) ResolvedAPIURL() string {
	if b.APIURL != "" {
		return b.APIURL
	}

	return books.APIURL(b.Region)
}

// Targets normalizes the target currency list: codes are upper-cased,
// and duplicates dropped while keeping the configured order
func (s Sync) Targets() ([]types.Currency, error) {
	var (
		seen    = make(map[types.Currency]struct{}, len(s.TargetCurrencies))
		targets = make([]types.Currency, 0, len(s.TargetCurrencies))
	)

	for _, raw := range s.TargetCurrencies {
		code := types.Currency(strings.ToUpper(strings.TrimSpace(raw)))
		if code == "" {
			continue
		}

		if !isCurrencyCode(code) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, raw)
		}

		if _, ok := seen[code]; ok {
			continue
		}

		seen[code] = struct{}{}
		targets = append(targets, code)
	}

	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	return targets, nil
}

func isCurrencyCode(c types.Currency) bool {
	if len(c) != 3 {
		return false
	}

	for i := 0; i < 3; i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}

	return true
}
