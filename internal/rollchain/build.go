package rollchain

import "time"

// cursor is the contract a candidate currently holds open. It is replaced, not
// updated, each time the candidate is extended.
type cursor struct {
	contract Contract
	openedAt time.Time
}

// Candidate is a chain before tracing and validation.
type Candidate struct {
	Orders   []Order
	Enhanced bool

	cur  cursor
	open bool
}

func (c Candidate) Head() Order { return c.Orders[0] }

// HeadIsRoll reports whether the candidate starts mid-sequence and needs its
// opening order traced.
func (c Candidate) HeadIsRoll() bool {
	return len(c.Orders) > 0 && len(c.Orders[0].Closes()) > 0
}

// extend returns a copy of the candidate with o appended and the cursor moved
// to o's open leg, or closed when o opens nothing.
func (c Candidate) extend(o Order) Candidate {
	orders := make([]Order, len(c.Orders), len(c.Orders)+1)
	copy(orders, c.Orders)
	next := Candidate{Orders: append(orders, o), Enhanced: c.Enhanced}
	if opens := o.Opens(); len(opens) > 0 {
		next.cur = cursor{contract: opens[0].Contract(), openedAt: o.CreatedAt}
		next.open = true
	}
	return next
}

func startCandidate(o Order) Candidate {
	c := Candidate{Orders: []Order{o}}
	if opens := o.Opens(); len(opens) > 0 {
		c.cur = cursor{contract: opens[0].Contract(), openedAt: o.CreatedAt}
		c.open = true
	}
	return c
}

type buildResult struct {
	Candidates []Candidate
	Conflicts  []string
	Orphans    []string
	Unlinked   []string
	// Stranded lists orders whose second close leg matched another open
	// candidate. An order joins one chain only, so that candidate stays open.
	Stranded []string
}

// buildCandidates links one group's sorted orders into candidate chains.
//
// A single-leg open starts a candidate. An order whose close leg matches an
// open candidate's cursor extends the oldest such candidate. A close on a
// contract that an earlier order already closed (and nothing reopened) is a
// conflict and is excluded. Unmatched rolls start roll-headed candidates for
// the tracer; unmatched single closes are orphans.
func buildCandidates(orders []Order, classes map[string]Classification) buildResult {
	var res buildResult
	consumed := map[string]time.Time{}

	for _, o := range orders {
		if o.IsSingleLegOpen() {
			res.Candidates = append(res.Candidates, startCandidate(o))
			continue
		}
		closes := o.Closes()
		if len(closes) == 0 {
			res.Unlinked = append(res.Unlinked, o.ID)
			continue
		}

		idx, leg := findExtendable(res.Candidates, o)
		if idx >= 0 {
			res.Candidates[idx] = res.Candidates[idx].extend(o)
			consumed[leg.Contract().Key()] = o.CreatedAt
			if strandsOther(res.Candidates, idx, o, leg) {
				res.Stranded = append(res.Stranded, o.ID)
			}
			continue
		}

		if conflicting(consumed, closes) {
			res.Conflicts = append(res.Conflicts, o.ID)
			continue
		}
		if classes[o.ID].IsRoll && len(o.Opens()) > 0 {
			res.Candidates = append(res.Candidates, startCandidate(o))
			for _, c := range closes {
				consumed[c.Contract().Key()] = o.CreatedAt
			}
			continue
		}
		res.Orphans = append(res.Orphans, o.ID)
	}
	return res
}

func findExtendable(cands []Candidate, o Order) (int, Leg) {
	for i := range cands {
		c := &cands[i]
		if !c.open || !c.cur.openedAt.Before(o.CreatedAt) {
			continue
		}
		if leg, ok := o.closeMatching(c.cur.contract); ok {
			return i, leg
		}
	}
	return -1, Leg{}
}

// strandsOther reports whether a close leg of o other than used matches an
// open candidate besides the one at skip.
func strandsOther(cands []Candidate, skip int, o Order, used Leg) bool {
	for _, leg := range o.Closes() {
		if leg.Contract().Equal(used.Contract()) {
			continue
		}
		for i := range cands {
			c := &cands[i]
			if i == skip || !c.open || !c.cur.openedAt.Before(o.CreatedAt) {
				continue
			}
			if c.cur.contract.Equal(leg.Contract()) {
				return true
			}
		}
	}
	return false
}

// conflicting reports whether every close leg of the order targets a contract
// that was already closed earlier in the group.
func conflicting(consumed map[string]time.Time, closes []Leg) bool {
	for _, c := range closes {
		if _, ok := consumed[c.Contract().Key()]; !ok {
			return false
		}
	}
	return true
}
