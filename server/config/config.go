package config

import (
	"errors"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml"
)

// DefaultListenAddress is loopback only: the sync route is not authenticated
const DefaultListenAddress = "127.0.0.1:8080"

var (
	ErrInvalidListenAddress = errors.New("invalid listen address")
	ErrInvalidCORSMethod    = errors.New("invalid CORS method")
)

// <IPv4>:<PORT> or :<PORT>
var listenAddressRegex = regexp.MustCompile(`^(\d{1,3}(\.\d{1,3}){3})?:\d+$`)

// Config defines the base-level server configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		CORSConfig:    DefaultCORSConfig(),
	}
}

// ValidateConfig validates the server configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	if config.CORSConfig == nil {
		return nil
	}

	for _, method := range config.CORSConfig.AllowedMethods {
		if _, ok := allowedMethods[strings.ToUpper(method)]; !ok {
			return ErrInvalidCORSMethod
		}
	}

	return nil
}

// Read reads the configuration from the given path
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse it, on top of the defaults
	cfg := DefaultConfig()

	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

var allowedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
}
