// Package rollchain reconstructs rolled option position histories from flat
// brokerage order records.
package rollchain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type PositionEffect string

const (
	EffectOpen  PositionEffect = "open"
	EffectClose PositionEffect = "close"
)

type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

const dateLayout = "2006-01-02"

// Contract identifies one option contract. Two legs refer to the same position
// only when all three fields match exactly.
type Contract struct {
	Strike     decimal.Decimal
	OptionType OptionType
	Expiration time.Time
}

func (c Contract) Equal(o Contract) bool {
	return c.OptionType == o.OptionType &&
		c.Strike.Equal(o.Strike) &&
		c.Expiration.Equal(o.Expiration)
}

// Key is a comparable form of the contract for map lookups.
func (c Contract) Key() string {
	return c.Strike.String() + "|" + string(c.OptionType) + "|" + c.Expiration.Format(dateLayout)
}

func (c Contract) String() string {
	return fmt.Sprintf("%s %s %s", c.Strike.String(), c.OptionType, c.Expiration.Format(dateLayout))
}

type Leg struct {
	Side           Side            `json:"side"`
	PositionEffect PositionEffect  `json:"position_effect"`
	OptionType     OptionType      `json:"option_type"`
	Strike         decimal.Decimal `json:"strike_price"`
	Expiration     time.Time       `json:"expiration_date"`
}

func (l Leg) Contract() Contract {
	return Contract{Strike: l.Strike, OptionType: l.OptionType, Expiration: l.Expiration}
}

// Order is a filled brokerage transaction after normalization. Orders are
// shared between groups, plans and chains and must never be modified.
type Order struct {
	ID               string          `json:"order_id"`
	Symbol           string          `json:"underlying_symbol"`
	State            string          `json:"state"`
	CreatedAt        time.Time       `json:"created_at"`
	Legs             []Leg           `json:"legs"`
	Direction        Direction       `json:"direction"`
	ProcessedPremium decimal.Decimal `json:"processed_premium"`
	FormSource       string          `json:"form_source,omitempty"`
	Strategy         string          `json:"strategy,omitempty"`
	RolledFrom       string          `json:"rolled_from,omitempty"`
	RolledTo         string          `json:"rolled_to,omitempty"`
}

func (o Order) Opens() []Leg  { return o.legsWithEffect(EffectOpen) }
func (o Order) Closes() []Leg { return o.legsWithEffect(EffectClose) }

func (o Order) legsWithEffect(effect PositionEffect) []Leg {
	var out []Leg
	for _, leg := range o.Legs {
		if leg.PositionEffect == effect {
			out = append(out, leg)
		}
	}
	return out
}

func (o Order) IsSingleLegOpen() bool {
	return len(o.Legs) == 1 && o.Legs[0].PositionEffect == EffectOpen
}

func (o Order) IsSingleLegClose() bool {
	return len(o.Legs) == 1 && o.Legs[0].PositionEffect == EffectClose
}

// OptionType is the option type of the first leg, which is the grouping key.
func (o Order) OptionType() OptionType {
	if len(o.Legs) == 0 {
		return ""
	}
	return o.Legs[0].OptionType
}

// closeMatching returns the first close leg on the given contract.
func (o Order) closeMatching(c Contract) (Leg, bool) {
	for _, leg := range o.Legs {
		if leg.PositionEffect == EffectClose && leg.Contract().Equal(c) {
			return leg, true
		}
	}
	return Leg{}, false
}

type GroupKey struct {
	Symbol     string
	OptionType OptionType
}

func (k GroupKey) String() string {
	return k.Symbol + "/" + string(k.OptionType)
}

type Financials struct {
	TotalCreditsCollected decimal.Decimal `json:"total_credits_collected"`
	TotalDebitsPaid       decimal.Decimal `json:"total_debits_paid"`
	NetPremium            decimal.Decimal `json:"net_premium"`
	// TotalPnL equals NetPremium: open legs are not marked to market.
	TotalPnL decimal.Decimal `json:"total_pnl"`
}

type Chain struct {
	ChainID    string     `json:"chain_id"`
	Symbol     string     `json:"underlying_symbol"`
	OptionType OptionType `json:"option_type"`
	Orders     []Order    `json:"orders"`
	Status     Status     `json:"status"`
	IsEnhanced bool       `json:"is_enhanced"`
	Trimmed    bool       `json:"trimmed,omitempty"`
	Financials Financials `json:"financials"`
	RollCount  int        `json:"roll_count"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    time.Time  `json:"ended_at"`
	// OpenLeg is the contract still held when the chain is active.
	OpenLeg *Leg `json:"open_leg,omitempty"`
}

func (c Chain) First() Order { return c.Orders[0] }
func (c Chain) Last() Order  { return c.Orders[len(c.Orders)-1] }

// ChainID derives the stable identifier of a chain from its first order, so
// repeated runs over the same history produce the same id.
func ChainID(symbol string, optionType OptionType, firstOrderID string) string {
	return strings.ToUpper(symbol) + "_" + string(optionType) + "_" + firstOrderID
}
