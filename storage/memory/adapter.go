package memory

import (
	"context"
	"sync"

	"github.com/sig-0/fxsync/storage"
	"github.com/sig-0/fxsync/storage/types"
)

// Storage keeps the latest handoff and report in memory
type Storage struct {
	notification *types.Notification
	report       *types.Report

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{}
}

func (s *Storage) SaveNotification(_ context.Context, n *types.Notification) error {
	elem := *n
	elem.Details = append([]types.CurrencyDetail(nil), n.Details...)
	elem.Raw = append([]byte(nil), n.Raw...)

	s.mu.Lock()
	s.notification = &elem
	s.mu.Unlock()

	return nil
}

func (s *Storage) LoadNotification(_ context.Context) (*types.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.notification == nil {
		return nil, storage.ErrNoNotification
	}

	cp := *s.notification

	return &cp, nil
}

func (s *Storage) SaveReport(_ context.Context, r *types.Report) error {
	elem := *r
	elem.Outcomes = append([]*types.Outcome(nil), r.Outcomes...)

	s.mu.Lock()
	s.report = &elem
	s.mu.Unlock()

	return nil
}

func (s *Storage) LatestReport(_ context.Context) (*types.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.report == nil {
		return nil, storage.ErrNoReport
	}

	cp := *s.report

	return &cp, nil
}
