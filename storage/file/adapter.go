package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sig-0/fxsync/notification"
	"github.com/sig-0/fxsync/storage"
	"github.com/sig-0/fxsync/storage/types"
)

const (
	// DefaultHandoffPath is the default location of the handed off notification
	DefaultHandoffPath = "icegate_rates.json"

	// DefaultReportPath is the default location of the latest run report
	DefaultReportPath = "fxsync_report.json"
)

var errEmptyPayload = errors.New("notification has no raw payload")

// Storage keeps the handoff and the latest report as JSON files.
// The handoff file holds the raw notification body exactly as it was fetched
type Storage struct {
	handoffPath string
	reportPath  string

	mu sync.Mutex
}

// NewStorage creates a file-backed storage
func NewStorage(handoffPath, reportPath string) *Storage {
	if handoffPath == "" {
		handoffPath = DefaultHandoffPath
	}

	if reportPath == "" {
		reportPath = DefaultReportPath
	}

	return &Storage{
		handoffPath: handoffPath,
		reportPath:  reportPath,
	}
}

func (s *Storage) SaveNotification(_ context.Context, n *types.Notification) error {
	if len(n.Raw) == 0 {
		return errEmptyPayload
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, n.Raw, "", "  "); err != nil {
		return fmt.Errorf("unable to format notification: %w", err)
	}

	buf.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFile(s.handoffPath, buf.Bytes())
}

// LoadNotification reads the handoff file. A missing file and a body
// carrying an error marker both fail the load
func (s *Storage) LoadNotification(_ context.Context) (*types.Notification, error) {
	s.mu.Lock()
	raw, err := os.ReadFile(s.handoffPath)
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", storage.ErrNoNotification, s.handoffPath)
		}

		return nil, fmt.Errorf("unable to read %s: %w", s.handoffPath, err)
	}

	n, err := notification.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", s.handoffPath, err)
	}

	return n, nil
}

func (s *Storage) SaveReport(_ context.Context, r *types.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFile(s.reportPath, append(data, '\n'))
}

func (s *Storage) LatestReport(_ context.Context) (*types.Report, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.reportPath)
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNoReport
		}

		return nil, fmt.Errorf("unable to read %s: %w", s.reportPath, err)
	}

	var r types.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", s.reportPath, err)
	}

	return &r, nil
}

// writeFile replaces the file contents through a temporary file in the same directory
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}

	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("unable to write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("unable to replace %s: %w", path, err)
	}

	return nil
}
