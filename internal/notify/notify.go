// Package notify delivers dip alerts to users through one or more channels.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Recipient struct {
	// ID identifies the user at the channel. The email address is used.
	ID    string
	Email string
}

func RecipientForEmail(email string) Recipient {
	email = strings.TrimSpace(email)
	return Recipient{ID: email, Email: email}
}

type Alert struct {
	Symbol         string
	Price          decimal.Decimal
	MA200          decimal.Decimal
	DistanceToMA   decimal.Decimal
	DaysSinceBreak int
}

// SampleAlert is what the test notification sends.
func SampleAlert() Alert {
	return Alert{
		Symbol:       "AAPL",
		Price:        decimal.RequireFromString("184.25"),
		MA200:        decimal.RequireFromString("180.50"),
		DistanceToMA: decimal.RequireFromString("2.08"),
	}
}

// MergeTags are the template variables shared by every channel.
func (a Alert) MergeTags() map[string]string {
	return map[string]string{
		"symbol":           a.Symbol,
		"price":            "$" + a.Price.StringFixed(2),
		"ma_200":           "$" + a.MA200.StringFixed(2),
		"distance":         a.DistanceToMA.StringFixed(2) + "%",
		"days_since_break": fmt.Sprint(a.DaysSinceBreak),
	}
}

// Message renders the alert as plain text for chat channels.
func (a Alert) Message() string {
	tags := a.MergeTags()
	var b strings.Builder
	fmt.Fprintf(&b, "Stock Alert: %s is near its 200-day Moving Average\n\n", a.Symbol)
	fmt.Fprintf(&b, "• Symbol: %s\n", a.Symbol)
	fmt.Fprintf(&b, "• Current Price: %s\n", tags["price"])
	fmt.Fprintf(&b, "• 200-day MA: %s\n", tags["ma_200"])
	fmt.Fprintf(&b, "• Distance to MA: %s\n", tags["distance"])
	if a.DaysSinceBreak > 0 {
		fmt.Fprintf(&b, "• Days since break: %d\n", a.DaysSinceBreak)
	}
	return b.String()
}

// Channel is one delivery integration.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, to Recipient, alert Alert) error
}

// Sink hands an alert to the configured channels. Failures collapse to false;
// callers retry on a later cycle.
type Sink interface {
	Name() string
	Send(ctx context.Context, to Recipient, alert Alert) bool
}
