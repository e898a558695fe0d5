package rollchain

import "sort"

// Group is the chronologically sorted order list for one (symbol, type) pair.
type Group struct {
	Key    GroupKey
	Orders []Order
}

type Rejected struct {
	OrderID string
	Reason  string
}

// GroupOrders partitions orders by (symbol, option type of the first leg) and
// sorts each partition by timestamp. Same-timestamp orders keep input order.
// Orders whose legs disagree on option type are returned as rejects.
func GroupOrders(orders []Order) ([]Group, []Rejected) {
	byKey := map[GroupKey][]Order{}
	var rejected []Rejected
	for _, o := range orders {
		if mixedOptionType(o) {
			rejected = append(rejected, Rejected{OrderID: o.ID, Reason: SkipMixedOptionType})
			continue
		}
		key := GroupKey{Symbol: o.Symbol, OptionType: o.OptionType()}
		byKey[key] = append(byKey[key], o)
	}

	groups := make([]Group, 0, len(byKey))
	for key, items := range byKey {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		})
		groups = append(groups, Group{Key: key, Orders: items})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Key.Symbol != groups[j].Key.Symbol {
			return groups[i].Key.Symbol < groups[j].Key.Symbol
		}
		return groups[i].Key.OptionType < groups[j].Key.OptionType
	})
	return groups, rejected
}

func mixedOptionType(o Order) bool {
	if len(o.Legs) < 2 {
		return false
	}
	for _, leg := range o.Legs[1:] {
		if leg.OptionType != o.Legs[0].OptionType {
			return true
		}
	}
	return false
}

// orderBefore is chronological order with the order id breaking ties. The
// history index uses it; groups keep input order for equal timestamps.
func orderBefore(a, b Order) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
