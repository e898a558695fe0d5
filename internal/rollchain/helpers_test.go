package rollchain

import (
	"testing"
	"time"
)

var testBase = time.Date(2025, 1, 6, 15, 30, 0, 0, time.UTC)

func day(n int) string {
	return testBase.AddDate(0, 0, n).Format(time.RFC3339)
}

func rawLeg(side, effect, optionType, strike, exp string) RawLeg {
	return RawLeg{
		Side:           side,
		PositionEffect: effect,
		OptionType:     optionType,
		StrikePrice:    flexString(strike),
		ExpirationDate: exp,
	}
}

func sellOpen(optionType, strike, exp string) RawLeg {
	return rawLeg("sell", "open", optionType, strike, exp)
}

func buyClose(optionType, strike, exp string) RawLeg {
	return rawLeg("buy", "close", optionType, strike, exp)
}

func rawOrder(id, symbol, createdAt, direction, premium string, legs ...RawLeg) RawOrder {
	return RawOrder{
		ID:               id,
		ChainSymbol:      symbol,
		State:            "filled",
		CreatedAt:        createdAt,
		Direction:        direction,
		ProcessedPremium: flexString(premium),
		Legs:             legs,
	}
}

func mustNormalize(t *testing.T, raws ...RawOrder) []Order {
	t.Helper()
	out := make([]Order, 0, len(raws))
	for _, r := range raws {
		o, err := Normalize(r)
		if err != nil {
			t.Fatalf("normalize %s: %v", r.ID, err)
		}
		out = append(out, o)
	}
	return out
}

func orderIDs(orders []Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}

func classifyAll(orders []Order) map[string]Classification {
	out := make(map[string]Classification, len(orders))
	rules := DefaultRollRules()
	for _, o := range orders {
		out[o.ID] = Classify(rules, o)
	}
	return out
}
