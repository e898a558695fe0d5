package rollchain

import "github.com/shopspring/decimal"

// Summarize computes premium totals over exactly the given orders.
func Summarize(orders []Order) Financials {
	credits := decimal.Zero
	debits := decimal.Zero
	for _, o := range orders {
		switch o.Direction {
		case DirectionCredit:
			credits = credits.Add(o.ProcessedPremium)
		case DirectionDebit:
			debits = debits.Add(o.ProcessedPremium)
		}
	}
	net := credits.Sub(debits)
	return Financials{
		TotalCreditsCollected: credits,
		TotalDebitsPaid:       debits,
		NetPremium:            net,
		TotalPnL:              net,
	}
}

// Assemble builds the final chain value from a validated order list.
func Assemble(orders []Order, enhanced, trimmed bool) Chain {
	first := orders[0]
	last := orders[len(orders)-1]
	c := Chain{
		ChainID:    ChainID(first.Symbol, first.OptionType(), first.ID),
		Symbol:     first.Symbol,
		OptionType: first.OptionType(),
		Orders:     orders,
		Status:     StatusOf(orders),
		IsEnhanced: enhanced,
		Trimmed:    trimmed,
		Financials: Summarize(orders),
		StartedAt:  first.CreatedAt,
		EndedAt:    last.CreatedAt,
	}
	for _, o := range orders[1:] {
		if len(o.Opens()) > 0 && len(o.Closes()) > 0 {
			c.RollCount++
		}
	}
	if c.Status == StatusActive {
		leg := last.Opens()[0]
		c.OpenLeg = &leg
	}
	return c
}
