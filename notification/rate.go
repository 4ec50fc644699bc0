package notification

import (
	"github.com/shopspring/decimal"

	"github.com/sig-0/fxsync/storage/types"
)

// RatePrecision is the number of decimal places pushed to the accounting system
const RatePrecision = 6

var one = decimal.NewFromInt(1)

// EffectiveRate computes the normalized rate of a currency detail:
// the export rate (or the import rate, if export is missing) divided
// by the unit divisor, rounded to RatePrecision places.
// Zero rates count as missing. The second return value is false
// if no usable rate is published
func EffectiveRate(d types.CurrencyDetail) (decimal.Decimal, bool) {
	raw := d.ExportRate
	if raw == nil || *raw == 0 {
		raw = d.ImportRate
	}

	if raw == nil || *raw == 0 {
		return decimal.Decimal{}, false
	}

	units := one
	if d.Units != nil && *d.Units > 0 {
		units = decimal.NewFromFloat(*d.Units)
	}

	return decimal.NewFromFloat(*raw).
		Div(units).
		Round(RatePrecision), true
}

// Rates computes the effective rate for every usable currency in the notification.
// Currencies without a usable rate are left out
func Rates(n *types.Notification) map[types.Currency]decimal.Decimal {
	out := make(map[types.Currency]decimal.Decimal, len(n.Details))

	for _, d := range n.Details {
		rate, ok := EffectiveRate(d)
		if !ok {
			continue
		}

		out[d.Code] = rate
	}

	return out
}
