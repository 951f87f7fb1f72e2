// Package alertrule holds the moving-average dip rule: distance math, band
// membership and the per-stock latch transitions.
package alertrule

import (
	"time"

	"github.com/shopspring/decimal"

	"stockwatch/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Band is a closed interval of distance-to-MA percentages.
type Band struct {
	Lower decimal.Decimal
	Upper decimal.Decimal
}

// DefaultBand is "at the MA or up to 15% below it".
func DefaultBand() Band {
	return Band{Lower: decimal.NewFromInt(-15), Upper: decimal.Zero}
}

func NewBand(lower, upper float64) Band {
	b := Band{Lower: decimal.NewFromFloat(lower), Upper: decimal.NewFromFloat(upper)}
	if b.Lower.GreaterThan(b.Upper) {
		b.Lower, b.Upper = b.Upper, b.Lower
	}
	return b
}

func (b Band) Contains(distance decimal.Decimal) bool {
	return distance.GreaterThanOrEqual(b.Lower) && distance.LessThanOrEqual(b.Upper)
}

// Usable reports whether a price/MA pair can be acted on. Missing or
// non-positive values count as unavailable.
func Usable(price, ma *decimal.Decimal) bool {
	return price != nil && ma != nil && price.IsPositive() && ma.IsPositive()
}

// Distance returns (price - ma) / ma * 100 rounded to 2 places. ok is false
// when either input is not positive.
func Distance(price, ma decimal.Decimal) (decimal.Decimal, bool) {
	if !price.IsPositive() || !ma.IsPositive() {
		return decimal.Zero, false
	}
	return price.Sub(ma).Div(ma).Mul(hundred).Round(2), true
}

// Decision is what Apply did to a stock and what the caller still owes it.
type Decision struct {
	Distance decimal.Decimal
	InBand   bool
	// NewBreak is set when the stock entered the band and a fresh break date
	// was recorded.
	NewBreak bool
	// Notify asks the caller to attempt delivery and then call MarkNotified
	// on success.
	Notify bool
	// Rearmed is set when the latch was cleared because the stock left the band.
	Rearmed bool
}

// Apply runs the decision rule for one stock against freshly fetched metrics.
// When the metrics are unusable the stock is not touched and ok is false.
func Apply(st *models.Stock, price, ma decimal.Decimal, now time.Time, band Band) (Decision, bool) {
	if st == nil {
		return Decision{}, false
	}
	distance, ok := Distance(price, ma)
	if !ok {
		return Decision{}, false
	}
	prev := st.DistanceToMA
	d := Decision{Distance: distance, InBand: band.Contains(distance)}

	switch {
	case d.InBand && !st.NotificationSent:
		if st.LastMABreakDate == nil || prev == nil || !band.Contains(*prev) {
			at := now
			st.LastMABreakDate = &at
			d.NewBreak = true
		}
		d.Notify = true
	case !d.InBand && st.NotificationSent:
		st.NotificationSent = false
		d.Rearmed = true
	}

	if st.LastMABreakDate != nil {
		days := DaysSince(*st.LastMABreakDate, now)
		st.DaysSinceMABreak = &days
	}

	p, m, checked := price, ma, now
	st.LastPrice = &p
	st.MA200 = &m
	st.DistanceToMA = &distance
	st.LastChecked = &checked
	return d, true
}

// MarkNotified latches the stock after a successful delivery.
func MarkNotified(st *models.Stock) {
	if st != nil {
		st.NotificationSent = true
	}
}

// DaysSince counts whole days between since and now, never negative.
func DaysSince(since, now time.Time) int {
	elapsed := now.Sub(since)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}
