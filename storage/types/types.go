package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date layout used by the accounting system
const DateLayout = "2006-01-02"

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

func (c Currency) String() string {
	return string(c)
}

// CurrencyDetail is a single currency line item of a notification
type CurrencyDetail struct {
	ExportRate *float64 // nil if not published
	ImportRate *float64 // nil if not published
	Units      *float64 // nil if absent or unparsable
	Code       Currency
}

// Notification is a dated customs circular publishing exchange rates
type Notification struct {
	PublishDate time.Time // UTC midnight
	Number      string    // NN/YYYY
	Details     []CurrencyDetail
	Raw         json.RawMessage // the body the notification was decoded from
}

// CurrencyRecord is the accounting system's view of a single currency
type CurrencyRecord struct {
	ID          string   `json:"currency_id"`
	Code        Currency `json:"currency_code"`
	Active      bool     `json:"is_active"`
	Base        bool     `json:"is_base_currency"`
	FeedEnabled bool     `json:"feed_enabled"`
}

// Directory maps currency codes to their remote records
type Directory map[Currency]*CurrencyRecord

type Status string

const (
	StatusCreated          Status = "created"
	StatusExists           Status = "exists"
	StatusSkippedNoRate    Status = "skipped_no_rate"
	StatusSkippedUntracked Status = "skipped_untracked"
	StatusFailed           Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

// Success reports if the status counts as a synced rate
func (s Status) Success() bool {
	return s == StatusCreated || s == StatusExists
}

type FeedAction string

const (
	FeedActionNone          FeedAction = "none"
	FeedActionDisabled      FeedAction = "disabled"
	FeedActionDisableFailed FeedAction = "disable_failed"
)

// Outcome is the reconciliation result for a single currency
type Outcome struct {
	Rate       *decimal.Decimal `json:"rate,omitempty"`
	Code       Currency         `json:"code"`
	CurrencyID string           `json:"currency_id,omitempty"`
	Status     Status           `json:"status"`
	Feed       FeedAction       `json:"feed"`
	Error      string           `json:"error,omitempty"`
}

// Report summarizes a single reconciliation run
type Report struct {
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	EffectiveDate time.Time  `json:"effective_date"`
	RunID         string     `json:"run_id"`
	Notification  string     `json:"notification"`
	Outcomes      []*Outcome `json:"outcomes"`
	Fallback      bool       `json:"fallback"`
}

// Count returns the number of outcomes with the given status
func (r *Report) Count(status Status) int {
	var n int

	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}

	return n
}

// Failed reports if any currency failed to sync
func (r *Report) Failed() bool {
	return r.Count(StatusFailed) > 0
}
