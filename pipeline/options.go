package pipeline

import (
	"log/slog"

	"github.com/sig-0/fxsync/provider/icegate"
	"github.com/sig-0/fxsync/storage/types"
)

type Option func(s *Service)

// WithLogger specifies the logger for the service
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithTargets specifies the currencies to sync.
// Defaults to DefaultTargets
func WithTargets(targets []types.Currency) Option {
	return func(s *Service) {
		s.targets = targets
	}
}

// WithIDRange specifies the notification sequence numbers probed during discovery.
// Defaults to icegate.DefaultIDRange
func WithIDRange(ids icegate.IDRange) Option {
	return func(s *Service) {
		s.ids = ids
	}
}
