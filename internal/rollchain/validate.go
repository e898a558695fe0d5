package rollchain

import "time"

// Rejection reasons produced by the validator.
const (
	RejectTooShort         = "too_short"
	RejectMixedTypeSymbol  = "mixed_type_or_symbol"
	RejectNotChronological = "not_chronological"
	RejectInvalidStart     = "invalid_start"
	RejectMalformedRoll    = "malformed_roll"
	RejectPositionMismatch = "position_mismatch"
	RejectDanglingOpen     = "dangling_open"
	RejectTimeWindow       = "exceeds_time_window"
)

const DefaultMaxChainSpan = 240 * 24 * time.Hour

type Verdict struct {
	Accepted bool
	Trimmed  bool
	Reason   string
	// Orders is the accepted order list, shorter than the input when trimmed.
	Orders []Order
}

// Validate checks a candidate order list against the chain invariants, in
// order, stopping at the first failure. A malformed or discontinuous tail
// after at least two good orders is cut off and the prefix accepted instead.
func Validate(orders []Order, maxSpan time.Duration) Verdict {
	reason, at := check(orders, maxSpan)
	if reason == "" {
		return Verdict{Accepted: true, Orders: orders}
	}
	if (reason == RejectMalformedRoll || reason == RejectPositionMismatch) && at >= 2 {
		prefix := orders[:at]
		if r, _ := check(prefix, maxSpan); r == "" {
			return Verdict{Accepted: true, Trimmed: true, Reason: reason, Orders: prefix}
		}
	}
	return Verdict{Reason: reason}
}

// check returns the first failed rule and the index of the offending order.
func check(orders []Order, maxSpan time.Duration) (string, int) {
	if len(orders) < 2 {
		return RejectTooShort, 0
	}

	first := orders[0]
	for i, o := range orders {
		if o.Symbol != first.Symbol {
			return RejectMixedTypeSymbol, i
		}
		for _, leg := range o.Legs {
			if leg.OptionType != first.Legs[0].OptionType {
				return RejectMixedTypeSymbol, i
			}
		}
	}
	for i := 1; i < len(orders); i++ {
		if !orders[i-1].CreatedAt.Before(orders[i].CreatedAt) {
			return RejectNotChronological, i
		}
	}

	if len(first.Closes()) > 0 {
		return RejectInvalidStart, 0
	}

	last := len(orders) - 1
	for i := 1; i <= last; i++ {
		o := orders[i]
		opens, closes := len(o.Opens()), len(o.Closes())
		if i < last && (opens != 1 || closes != 1 || len(o.Legs) != 2) {
			return RejectMalformedRoll, i
		}
		if i == last && opens > 0 && (opens != 1 || closes != 1) {
			return RejectMalformedRoll, i
		}
	}

	for i := 1; i <= last; i++ {
		prevOpen := orders[i-1].Opens()
		if len(prevOpen) == 0 {
			return RejectPositionMismatch, i
		}
		if _, ok := orders[i].closeMatching(prevOpen[0].Contract()); !ok {
			return RejectPositionMismatch, i
		}
	}

	if len(orders[last].Closes()) == 0 {
		return RejectDanglingOpen, last
	}

	if maxSpan > 0 && orders[last].CreatedAt.Sub(first.CreatedAt) > maxSpan {
		return RejectTimeWindow, last
	}
	return "", -1
}

// StatusOf is active while the last order still opens a contract.
func StatusOf(orders []Order) Status {
	if len(orders) == 0 {
		return StatusClosed
	}
	if len(orders[len(orders)-1].Opens()) > 0 {
		return StatusActive
	}
	return StatusClosed
}
