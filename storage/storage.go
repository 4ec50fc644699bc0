package storage

import (
	"context"
	"errors"

	"github.com/sig-0/fxsync/storage/types"
)

var (
	// ErrNoNotification is returned when no notification was handed off
	ErrNoNotification = errors.New("no notification handed off")

	// ErrNoReport is returned when no reconciliation run was recorded
	ErrNoReport = errors.New("no report recorded")
)

// Handoff is the contract between the discovery and the reconciliation stages.
// It holds the single notification selected by the most recent discovery run
type Handoff interface {
	// SaveNotification hands off the selected notification
	SaveNotification(context.Context, *types.Notification) error

	// LoadNotification loads the most recently handed off notification
	LoadNotification(context.Context) (*types.Notification, error)
}

// Reports keeps track of reconciliation runs
type Reports interface {
	// SaveReport records the reconciliation report
	SaveReport(context.Context, *types.Report) error

	// LatestReport fetches the most recently recorded report
	LatestReport(context.Context) (*types.Report, error)
}

// Storage is an abstraction over the sync run state
type Storage interface {
	Handoff
	Reports
}
