package rollchain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawOrder is an order record as delivered by the broker. Only the fields the
// detector reads are declared; the rest of the payload is ignored.
type RawOrder struct {
	ID               string     `json:"id"`
	ChainSymbol      string     `json:"chain_symbol"`
	UnderlyingSymbol string     `json:"underlying_symbol"`
	State            string     `json:"state"`
	CreatedAt        string     `json:"created_at"`
	Direction        string     `json:"direction"`
	ProcessedPremium flexString `json:"processed_premium"`
	FormSource       string     `json:"form_source"`
	Strategy         string     `json:"strategy"`
	RolledFrom       string     `json:"rolled_from"`
	RolledTo         string     `json:"rolled_to"`
	Legs             []RawLeg   `json:"legs"`
}

type RawLeg struct {
	Side           string     `json:"side"`
	PositionEffect string     `json:"position_effect"`
	OptionType     string     `json:"option_type"`
	StrikePrice    flexString `json:"strike_price"`
	ExpirationDate string     `json:"expiration_date"`
}

// flexString accepts a JSON string, number or null. Brokers are not
// consistent about quoting decimals.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

const maxLegs = 2

// Skip reasons reported by the normalizer and grouper.
const (
	SkipNotFilled         = "not_filled"
	SkipNoLegs            = "no_legs"
	SkipTooManyLegs       = "too_many_legs"
	SkipMissingID         = "missing_id"
	SkipMissingSymbol     = "missing_symbol"
	SkipBadTimestamp      = "bad_timestamp"
	SkipBadSide           = "bad_side"
	SkipBadPositionEffect = "bad_position_effect"
	SkipBadOptionType     = "bad_option_type"
	SkipBadStrike         = "bad_strike"
	SkipBadExpiration     = "bad_expiration"
	SkipBadDirection      = "bad_direction"
	SkipBadPremium        = "bad_premium"
	SkipDuplicateID       = "duplicate_id"
	SkipMixedOptionType   = "mixed_option_type"
)

// SkipError is the recoverable outcome of a record that cannot become an Order.
type SkipError struct {
	OrderID string
	Reason  string
	Detail  string
}

func (e *SkipError) Error() string {
	msg := "skip order " + e.OrderID + ": " + e.Reason
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func skip(id, reason, detail string) *SkipError {
	return &SkipError{OrderID: id, Reason: reason, Detail: detail}
}

// Normalize turns a raw record into a canonical Order. Any problem is returned
// as a *SkipError; the caller drops the record and carries on.
func Normalize(raw RawOrder) (Order, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return Order{}, skip(id, SkipMissingID, "")
	}
	if !strings.EqualFold(strings.TrimSpace(raw.State), "filled") {
		return Order{}, skip(id, SkipNotFilled, raw.State)
	}
	if len(raw.Legs) == 0 {
		return Order{}, skip(id, SkipNoLegs, "")
	}
	if len(raw.Legs) > maxLegs {
		return Order{}, skip(id, SkipTooManyLegs, "")
	}
	symbol := strings.ToUpper(strings.TrimSpace(raw.UnderlyingSymbol))
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSpace(raw.ChainSymbol))
	}
	if symbol == "" {
		return Order{}, skip(id, SkipMissingSymbol, "")
	}
	createdAt, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return Order{}, skip(id, SkipBadTimestamp, raw.CreatedAt)
	}

	legs := make([]Leg, 0, len(raw.Legs))
	for _, rl := range raw.Legs {
		leg, reason, detail := normalizeLeg(rl)
		if reason != "" {
			return Order{}, skip(id, reason, detail)
		}
		legs = append(legs, leg)
	}

	direction := Direction(strings.ToLower(strings.TrimSpace(raw.Direction)))
	if direction != DirectionCredit && direction != DirectionDebit {
		return Order{}, skip(id, SkipBadDirection, raw.Direction)
	}
	premium := decimal.Zero
	if s := strings.TrimSpace(string(raw.ProcessedPremium)); s != "" {
		premium, err = decimal.NewFromString(s)
		if err != nil || premium.IsNegative() {
			return Order{}, skip(id, SkipBadPremium, s)
		}
	}

	return Order{
		ID:               id,
		Symbol:           symbol,
		State:            "filled",
		CreatedAt:        createdAt,
		Legs:             legs,
		Direction:        direction,
		ProcessedPremium: premium,
		FormSource:       strings.TrimSpace(raw.FormSource),
		Strategy:         strings.TrimSpace(raw.Strategy),
		RolledFrom:       strings.TrimSpace(raw.RolledFrom),
		RolledTo:         strings.TrimSpace(raw.RolledTo),
	}, nil
}

func normalizeLeg(rl RawLeg) (Leg, string, string) {
	side := Side(strings.ToLower(strings.TrimSpace(rl.Side)))
	if side != SideBuy && side != SideSell {
		return Leg{}, SkipBadSide, rl.Side
	}
	effect := PositionEffect(strings.ToLower(strings.TrimSpace(rl.PositionEffect)))
	if effect != EffectOpen && effect != EffectClose {
		return Leg{}, SkipBadPositionEffect, rl.PositionEffect
	}
	optionType := OptionType(strings.ToLower(strings.TrimSpace(rl.OptionType)))
	if optionType != OptionCall && optionType != OptionPut {
		return Leg{}, SkipBadOptionType, rl.OptionType
	}
	strikeRaw := strings.TrimSpace(string(rl.StrikePrice))
	strike, err := decimal.NewFromString(strikeRaw)
	if err != nil || !strike.IsPositive() {
		return Leg{}, SkipBadStrike, strikeRaw
	}
	expiration, err := parseDate(rl.ExpirationDate)
	if err != nil {
		return Leg{}, SkipBadExpiration, rl.ExpirationDate
	}
	return Leg{
		Side:           side,
		PositionEffect: effect,
		OptionType:     optionType,
		Strike:         strike,
		Expiration:     expiration,
	}, "", ""
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// parseDate keeps only the calendar date; some brokers append a time of day.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > len(dateLayout) {
		raw = raw[:len(dateLayout)]
	}
	return time.Parse(dateLayout, raw)
}
