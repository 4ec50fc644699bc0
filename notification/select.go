package notification

import (
	"errors"
	"sort"
	"time"

	"github.com/sig-0/fxsync/storage/types"
)

var ErrNoCandidates = errors.New("no candidate notifications")

// Selection is the notification in effect for a target date
type Selection struct {
	Notification *types.Notification

	// Fallback is set when no candidate was published on or before
	// the target date, and the earliest known notification was used instead
	Fallback bool
}

// Select picks the notification in effect on the target date: the most recent
// one published on or before it. If the target date precedes every candidate,
// the earliest candidate is selected and the selection is marked as a fallback.
// Candidates sharing a publish date are ordered by their sequence number (highest first)
func Select(candidates []*types.Notification, target time.Time) (Selection, error) {
	sorted := make([]*types.Notification, 0, len(candidates))

	for _, c := range candidates {
		if c != nil {
			sorted = append(sorted, c)
		}
	}

	if len(sorted) == 0 {
		return Selection{}, ErrNoCandidates
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]

		if !a.PublishDate.Equal(b.PublishDate) {
			return a.PublishDate.After(b.PublishDate)
		}

		if sa, sb := sequence(a.Number), sequence(b.Number); sa != sb {
			return sa > sb
		}

		return a.Number > b.Number
	})

	cutoff := MidnightUTC(target)

	for _, n := range sorted {
		if !n.PublishDate.After(cutoff) {
			return Selection{Notification: n}, nil
		}
	}

	return Selection{
		Notification: sorted[len(sorted)-1],
		Fallback:     true,
	}, nil
}

// MidnightUTC truncates the time to its calendar date, at UTC midnight
func MidnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
