package rollchain

import (
	"sort"
	"time"
)

// History indexes the single-leg opening orders of a comprehensive order set
// by group. It is built once per run and only read afterwards, so one History
// can be shared by every group worker.
type History struct {
	opens map[GroupKey][]Order
	size  int
}

func NewHistory(orders []Order) *History {
	h := &History{opens: map[GroupKey][]Order{}}
	seen := map[string]struct{}{}
	for _, o := range orders {
		if !o.IsSingleLegOpen() {
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		key := GroupKey{Symbol: o.Symbol, OptionType: o.OptionType()}
		h.opens[key] = append(h.opens[key], o)
		h.size++
	}
	for key := range h.opens {
		items := h.opens[key]
		sort.SliceStable(items, func(i, j int) bool {
			return orderBefore(items[i], items[j])
		})
	}
	return h
}

// Len is the number of indexed opening orders.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return h.size
}

// FindOpening returns the most recent single-leg open on the contract strictly
// before the given time. Orders for which skip returns true are passed over.
func (h *History) FindOpening(key GroupKey, c Contract, before time.Time, skip func(id string) bool) (Order, bool) {
	if h == nil {
		return Order{}, false
	}
	items := h.opens[key]
	i := sort.Search(len(items), func(i int) bool {
		return !items[i].CreatedAt.Before(before)
	})
	for i--; i >= 0; i-- {
		o := items[i]
		if skip != nil && skip(o.ID) {
			continue
		}
		if o.Legs[0].Contract().Equal(c) {
			return o, true
		}
	}
	return Order{}, false
}

type traceResult struct {
	Traced   int
	Untraced int
}

// traceHeads prepends the originating open to every roll-headed candidate
// that has one in history. Orders already in the group window and openings
// claimed by an earlier candidate are not eligible.
func traceHeads(key GroupKey, cands []Candidate, window map[string]struct{}, h *History) ([]Candidate, traceResult) {
	var res traceResult
	claimed := map[string]struct{}{}
	skip := func(id string) bool {
		if _, ok := window[id]; ok {
			return true
		}
		_, ok := claimed[id]
		return ok
	}

	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if !c.HeadIsRoll() {
			out = append(out, c)
			continue
		}
		head := c.Head()
		closeLeg := head.Closes()[0]
		opening, ok := h.FindOpening(key, closeLeg.Contract(), head.CreatedAt, skip)
		if !ok {
			res.Untraced++
			out = append(out, c)
			continue
		}
		claimed[opening.ID] = struct{}{}
		res.Traced++
		out = append(out, c.prepend(opening))
	}
	return out, res
}

func (c Candidate) prepend(o Order) Candidate {
	orders := make([]Order, 0, len(c.Orders)+1)
	orders = append(orders, o)
	orders = append(orders, c.Orders...)
	return Candidate{Orders: orders, Enhanced: true, cur: c.cur, open: c.open}
}
