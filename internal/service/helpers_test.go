package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"optionchains/internal/client/broker"
	"optionchains/internal/rollchain"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type stubSource struct {
	mu     sync.Mutex
	byUser map[string][]broker.Record
	errs   map[string]error
	calls  []time.Time
}

func (s *stubSource) FetchOrders(ctx context.Context, userID string, since time.Time) ([]broker.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, since)
	if err := s.errs[userID]; err != nil {
		return nil, err
	}
	return s.byUser[userID], nil
}

type leg struct {
	effect, optionType, strike, exp string
}

func open(optionType, strike, exp string) leg { return leg{"open", optionType, strike, exp} }
func closes(optionType, strike, exp string) leg { return leg{"close", optionType, strike, exp} }

func record(id, symbol string, createdAt time.Time, direction, premium string, legs ...leg) broker.Record {
	type rawLeg struct {
		Side           string `json:"side"`
		PositionEffect string `json:"position_effect"`
		OptionType     string `json:"option_type"`
		StrikePrice    string `json:"strike_price"`
		ExpirationDate string `json:"expiration_date"`
	}
	payload := map[string]any{
		"id":                id,
		"chain_symbol":      symbol,
		"state":             "filled",
		"created_at":        createdAt.Format(time.RFC3339),
		"direction":         direction,
		"processed_premium": premium,
	}
	var raws []rawLeg
	for _, l := range legs {
		side := "sell"
		if l.effect == "close" {
			side = "buy"
		}
		raws = append(raws, rawLeg{side, l.effect, l.optionType, l.strike, l.exp})
	}
	payload["legs"] = raws
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	var raw rollchain.RawOrder
	if err := json.Unmarshal(body, &raw); err != nil {
		panic(fmt.Sprintf("decode %s: %v", id, err))
	}
	return broker.Record{Order: raw, Payload: body}
}

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

// simpleRollRecords is open, roll, close on TSLA calls netting 200.
func simpleRollRecords() []broker.Record {
	return []broker.Record{
		record("o1", "TSLA", daysAgo(60), "credit", "500", open("call", "250", "2025-06-20")),
		record("o2", "TSLA", daysAgo(40), "debit", "200",
			closes("call", "250", "2025-06-20"), open("call", "260", "2025-07-18")),
		record("o3", "TSLA", daysAgo(20), "debit", "100", closes("call", "260", "2025-07-18")),
	}
}
