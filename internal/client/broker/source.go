// Package broker fetches raw option order records from a brokerage or from
// local exports of one.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"optionchains/internal/rollchain"
)

// Record is one fetched order: the decoded fields the detector reads and the
// payload exactly as received.
type Record struct {
	Order   rollchain.RawOrder
	Payload json.RawMessage
}

// ErrUnknownUser is returned when the source holds no orders for a user.
var ErrUnknownUser = errors.New("broker: unknown user")

// Source returns every option order of a user updated at or after since. A
// zero since means the full history.
type Source interface {
	FetchOrders(ctx context.Context, userID string, since time.Time) ([]Record, error)
}

// decodeRecords decodes a list of order objects. Elements that are not JSON
// objects or carry no id cannot be cached and are dropped.
func decodeRecords(items []json.RawMessage) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		var raw rollchain.RawOrder
		if err := json.Unmarshal(item, &raw); err != nil || raw.ID == "" {
			continue
		}
		out = append(out, Record{Order: raw, Payload: item})
	}
	return out
}

// RawOrders strips payloads off records.
func RawOrders(records []Record) []rollchain.RawOrder {
	out := make([]rollchain.RawOrder, 0, len(records))
	for _, r := range records {
		out = append(out, r.Order)
	}
	return out
}
