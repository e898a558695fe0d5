package rollchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCandidatesLinksRolls(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("o1", "TSLA", day(0), "credit", "500", sellOpen("call", "250", "2025-06-20")),
		rawOrder("o2", "TSLA", day(10), "debit", "200",
			buyClose("call", "250", "2025-06-20"), sellOpen("call", "260", "2025-07-18")),
		rawOrder("o3", "TSLA", day(20), "debit", "100", buyClose("call", "260", "2025-07-18")),
	)
	res := buildCandidates(orders, classifyAll(orders))
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, []string{"o1", "o2", "o3"}, orderIDs(res.Candidates[0].Orders))
	assert.False(t, res.Candidates[0].open)
	assert.Empty(t, res.Conflicts)
	assert.Empty(t, res.Orphans)
}

func TestBuildCandidatesOldestOpenWins(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("a", "TSLA", day(0), "credit", "1", sellOpen("call", "250", "2025-06-20")),
		rawOrder("b", "TSLA", day(1), "credit", "1", sellOpen("call", "250", "2025-06-20")),
		rawOrder("c", "TSLA", day(2), "debit", "1", buyClose("call", "250", "2025-06-20")),
	)
	res := buildCandidates(orders, classifyAll(orders))
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, []string{"a", "c"}, orderIDs(res.Candidates[0].Orders))
	assert.Equal(t, []string{"b"}, orderIDs(res.Candidates[1].Orders))
}

func TestBuildCandidatesConflictingClose(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("a", "TSLA", day(0), "credit", "1", sellOpen("call", "250", "2025-06-20")),
		rawOrder("c1", "TSLA", day(1), "debit", "1", buyClose("call", "250", "2025-06-20")),
		rawOrder("c2", "TSLA", day(2), "debit", "1", buyClose("call", "250", "2025-06-20")),
	)
	res := buildCandidates(orders, classifyAll(orders))
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, []string{"a", "c1"}, orderIDs(res.Candidates[0].Orders))
	assert.Equal(t, []string{"c2"}, res.Conflicts)
}

func TestBuildCandidatesOrphansAndRollHeads(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("x", "TSLA", day(0), "debit", "1", buyClose("call", "240", "2025-06-20")),
		rawOrder("r", "TSLA", day(1), "debit", "1",
			buyClose("call", "250", "2025-06-20"), sellOpen("call", "260", "2025-07-18")),
		rawOrder("s", "TSLA", day(2), "credit", "1",
			sellOpen("call", "300", "2025-06-20"), sellOpen("call", "310", "2025-06-20")),
	)
	res := buildCandidates(orders, classifyAll(orders))
	assert.Equal(t, []string{"x"}, res.Orphans)
	assert.Equal(t, []string{"s"}, res.Unlinked)
	require.Len(t, res.Candidates, 1)
	assert.True(t, res.Candidates[0].HeadIsRoll())
	assert.Equal(t, "r", res.Candidates[0].Head().ID)
}

func TestBuildCandidatesSameTimestampDoesNotLink(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("a", "TSLA", day(0), "credit", "1", sellOpen("call", "250", "2025-06-20")),
		rawOrder("c", "TSLA", day(0), "debit", "1", buyClose("call", "250", "2025-06-20")),
	)
	res := buildCandidates(orders, classifyAll(orders))
	require.Len(t, res.Candidates, 1)
	assert.Len(t, res.Candidates[0].Orders, 1)
	assert.Equal(t, []string{"c"}, res.Orphans)
}

func TestCandidateExtendCopiesOrders(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("a", "TSLA", day(0), "credit", "1", sellOpen("call", "250", "2025-06-20")),
		rawOrder("b", "TSLA", day(1), "debit", "1", buyClose("call", "250", "2025-06-20")),
	)
	base := startCandidate(orders[0])
	next := base.extend(orders[1])
	assert.Len(t, base.Orders, 1)
	assert.True(t, base.open)
	assert.Len(t, next.Orders, 2)
	assert.False(t, next.open)
}

func TestBuildCandidatesDoubleCloseStrandsSecondCandidate(t *testing.T) {
	orders := mustNormalize(t,
		rawOrder("a", "TSLA", day(0), "credit", "1", sellOpen("call", "250", "2025-06-20")),
		rawOrder("b", "TSLA", day(1), "credit", "1", sellOpen("call", "260", "2025-06-20")),
		rawOrder("x", "TSLA", day(2), "debit", "2",
			buyClose("call", "250", "2025-06-20"), buyClose("call", "260", "2025-06-20")),
	)
	res := buildCandidates(orders, classifyAll(orders))
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, []string{"a", "x"}, orderIDs(res.Candidates[0].Orders))
	assert.Equal(t, []string{"b"}, orderIDs(res.Candidates[1].Orders))
	assert.True(t, res.Candidates[1].open)
	assert.Equal(t, []string{"x"}, res.Stranded)

	plain := mustNormalize(t,
		rawOrder("a", "TSLA", day(0), "credit", "1", sellOpen("call", "250", "2025-06-20")),
		rawOrder("x", "TSLA", day(2), "debit", "2",
			buyClose("call", "250", "2025-06-20"), buyClose("call", "260", "2025-06-20")),
	)
	assert.Empty(t, buildCandidates(plain, classifyAll(plain)).Stranded)
}
