// Package quote fetches the current price and 200-day moving average for a
// ticker symbol.
package quote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockwatch/internal/alertrule"
)

// Quote carries whatever the provider could supply. Missing values are nil,
// never zero.
type Quote struct {
	Symbol       string           `json:"symbol"`
	Price        *decimal.Decimal `json:"price"`
	MA200        *decimal.Decimal `json:"ma_200"`
	DistanceToMA *decimal.Decimal `json:"distance_to_ma"`
	Timestamp    time.Time        `json:"timestamp"`
	// Reason explains missing data. Empty when the quote is complete.
	Reason string `json:"reason,omitempty"`
}

// Usable reports whether both price and MA are present and positive.
func (q Quote) Usable() bool {
	return alertrule.Usable(q.Price, q.MA200)
}

// HasData reports whether the provider knew the symbol at all.
func (q Quote) HasData() bool {
	return q.Price != nil || q.MA200 != nil
}

// Source never returns an error for ordinary upstream failures; they come
// back as a Quote with nil fields and a Reason.
type Source interface {
	Fetch(ctx context.Context, symbol string) Quote
}

func newQuote(symbol string, price, ma *decimal.Decimal, at time.Time) Quote {
	q := Quote{Symbol: symbol, Timestamp: at}
	if price != nil && price.IsPositive() {
		q.Price = price
	}
	if ma != nil && ma.IsPositive() {
		q.MA200 = ma
	}
	if q.Price != nil && q.MA200 != nil {
		if dist, ok := alertrule.Distance(*q.Price, *q.MA200); ok {
			q.DistanceToMA = &dist
		}
	}
	return q
}

func unavailable(symbol, reason string, at time.Time) Quote {
	return Quote{Symbol: symbol, Timestamp: at, Reason: reason}
}
