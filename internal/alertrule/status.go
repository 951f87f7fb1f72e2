package alertrule

import "github.com/shopspring/decimal"

type Status string

const (
	StatusAtMA    Status = "at_ma"
	StatusAboveMA Status = "above_ma"
	StatusBelowMA Status = "below_ma"
	StatusUnknown Status = "unknown"
)

var onePercent = decimal.NewFromInt(1)

// Classify labels a stored distance for display. Within 1% either side
// counts as at the MA.
func Classify(distance *decimal.Decimal) Status {
	if distance == nil {
		return StatusUnknown
	}
	switch {
	case distance.Abs().LessThan(onePercent):
		return StatusAtMA
	case distance.IsPositive():
		return StatusAboveMA
	default:
		return StatusBelowMA
	}
}
