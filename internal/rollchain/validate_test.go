package rollchain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejections(t *testing.T) {
	open250 := rawOrder("o1", "TSLA", day(0), "credit", "1", sellOpen("call", "250", "2025-06-20"))
	roll := rawOrder("o2", "TSLA", day(10), "debit", "1",
		buyClose("call", "250", "2025-06-20"), sellOpen("call", "260", "2025-07-18"))
	close260 := rawOrder("o3", "TSLA", day(20), "debit", "1", buyClose("call", "260", "2025-07-18"))

	cases := []struct {
		name   string
		orders []RawOrder
		reason string
	}{
		{"single order", []RawOrder{open250}, RejectTooShort},
		{"other symbol", []RawOrder{open250, func() RawOrder {
			r := close260
			r.ChainSymbol = "AAPL"
			return r
		}()}, RejectMixedTypeSymbol},
		{"put leg", []RawOrder{open250,
			rawOrder("o2", "TSLA", day(10), "debit", "1", buyClose("put", "250", "2025-06-20"))},
			RejectMixedTypeSymbol},
		{"same timestamp", []RawOrder{open250,
			rawOrder("o2", "TSLA", day(0), "debit", "1", buyClose("call", "250", "2025-06-20"))},
			RejectNotChronological},
		{"starts with roll", []RawOrder{roll, close260}, RejectInvalidStart},
		{"middle single leg", []RawOrder{open250,
			rawOrder("o2", "TSLA", day(10), "credit", "1", sellOpen("call", "260", "2025-07-18")),
			close260}, RejectMalformedRoll},
		{"close wrong contract", []RawOrder{open250,
			rawOrder("o2", "TSLA", day(10), "debit", "1", buyClose("call", "255", "2025-06-20"))},
			RejectPositionMismatch},
		{"ends with plain open", []RawOrder{open250,
			rawOrder("o2", "TSLA", day(10), "credit", "1", sellOpen("call", "250", "2025-06-20"))},
			RejectMalformedRoll},
		{"too long", []RawOrder{open250,
			rawOrder("o2", "TSLA", day(250), "debit", "1", buyClose("call", "250", "2025-06-20"))},
			RejectTimeWindow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Validate(mustNormalize(t, tc.orders...), DefaultMaxChainSpan)
			if v.Accepted {
				t.Fatalf("expected rejection %q, got accepted", tc.reason)
			}
			if v.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", v.Reason, tc.reason)
			}
		})
	}
}

func TestValidateAcceptsClosedAndActive(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("o1", "TSLA", day(0), "credit", "1", sellOpen("call", "250", "2025-06-20")),
		rawOrder("o2", "TSLA", day(10), "debit", "1",
			buyClose("call", "250", "2025-06-20"), sellOpen("call", "260", "2025-07-18")),
		rawOrder("o3", "TSLA", day(20), "debit", "1", buyClose("call", "260", "2025-07-18")),
	)
	v := Validate(orders, DefaultMaxChainSpan)
	require.True(t, v.Accepted)
	assert.False(t, v.Trimmed)
	assert.Equal(t, StatusClosed, StatusOf(v.Orders))

	v = Validate(orders[:2], DefaultMaxChainSpan)
	require.True(t, v.Accepted)
	assert.Equal(t, StatusActive, StatusOf(v.Orders))
}

func TestValidateExactlyAtWindowBound(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("o1", "TSLA", day(0), "credit", "1", sellOpen("call", "250", "2025-06-20")),
		rawOrder("o2", "TSLA", day(240), "debit", "1", buyClose("call", "250", "2025-06-20")),
	)
	assert.True(t, Validate(orders, DefaultMaxChainSpan).Accepted)
	assert.False(t, Validate(orders, DefaultMaxChainSpan-1).Accepted)
	assert.True(t, Validate(orders, 0).Accepted, "zero disables the bound")
}

func TestValidateTrimsBrokenTail(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("o1", "TSLA", day(0), "credit", "1", sellOpen("call", "250", "2025-06-20")),
		rawOrder("o2", "TSLA", day(10), "debit", "1",
			buyClose("call", "250", "2025-06-20"), sellOpen("call", "260", "2025-07-18")),
		rawOrder("o3", "TSLA", day(20), "debit", "1",
			buyClose("call", "270", "2025-07-18"), sellOpen("call", "280", "2025-08-15")),
	)
	v := Validate(orders, DefaultMaxChainSpan)
	require.True(t, v.Accepted)
	assert.True(t, v.Trimmed)
	assert.Equal(t, RejectPositionMismatch, v.Reason)
	assert.Equal(t, []string{"o1", "o2"}, orderIDs(v.Orders))
}

func TestSummarizeFinancialIdentity(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("o1", "TSLA", day(0), "credit", "500.10", sellOpen("call", "250", "2025-06-20")),
		rawOrder("o2", "TSLA", day(10), "credit", "80.05",
			buyClose("call", "250", "2025-06-20"), sellOpen("call", "260", "2025-07-18")),
		rawOrder("o3", "TSLA", day(20), "debit", "200.30",
			buyClose("call", "260", "2025-07-18"), sellOpen("call", "270", "2025-08-15")),
		rawOrder("o4", "TSLA", day(30), "debit", "99.99", buyClose("call", "270", "2025-08-15")),
	)
	fin := Summarize(orders)
	assert.Equal(t, "580.15", fin.TotalCreditsCollected.String())
	assert.Equal(t, "300.29", fin.TotalDebitsPaid.String())
	assert.True(t, fin.NetPremium.Equal(fin.TotalCreditsCollected.Sub(fin.TotalDebitsPaid)))
	assert.True(t, fin.TotalPnL.Equal(fin.NetPremium))
	assert.True(t, fin.NetPremium.Equal(decimal.RequireFromString("279.86")))

	chain := Assemble(orders, false, false)
	assert.Equal(t, 2, chain.RollCount)
	assert.Equal(t, StatusClosed, chain.Status)
	assert.Nil(t, chain.OpenLeg)
	assert.Equal(t, "TSLA_call_o1", chain.ChainID)

	active := Assemble(orders[:3], true, false)
	require.NotNil(t, active.OpenLeg)
	assert.Equal(t, "270", active.OpenLeg.Strike.String())
	assert.True(t, active.IsEnhanced)
}
