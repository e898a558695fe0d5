package rollchain

// Report carries the diagnostics of one detection run. Plan-level counts are
// filled by Prepare, per-group counts by DetectGroup, and both are combined
// with Merge.
type Report struct {
	OrdersSeen       int            `json:"orders_seen"`
	OrdersNormalized int            `json:"orders_normalized"`
	OrdersSkipped    map[string]int `json:"orders_skipped,omitempty"`
	HistoryOrders    int            `json:"history_orders"`
	RollOrders       map[string]int `json:"roll_orders,omitempty"`
	Groups           int            `json:"groups"`

	Candidates     int `json:"candidates"`
	Conflicts      int `json:"conflicts"`
	OrphanCloses   int `json:"orphan_closes"`
	UnlinkedOrders int `json:"unlinked_orders"`
	StrandedCloses int `json:"stranded_closes"`
	TracedHeads    int `json:"traced_heads"`
	UntracedHeads  int `json:"untraced_heads"`

	ChainsAccepted int            `json:"chains_accepted"`
	ChainsTrimmed  int            `json:"chains_trimmed"`
	ChainsRejected map[string]int `json:"chains_rejected,omitempty"`
	ChainsEnhanced int            `json:"chains_enhanced"`
}

func (r *Report) Merge(o Report) {
	r.OrdersSeen += o.OrdersSeen
	r.OrdersNormalized += o.OrdersNormalized
	r.OrdersSkipped = mergeCounts(r.OrdersSkipped, o.OrdersSkipped)
	r.HistoryOrders += o.HistoryOrders
	r.RollOrders = mergeCounts(r.RollOrders, o.RollOrders)
	r.Groups += o.Groups
	r.Candidates += o.Candidates
	r.Conflicts += o.Conflicts
	r.OrphanCloses += o.OrphanCloses
	r.UnlinkedOrders += o.UnlinkedOrders
	r.StrandedCloses += o.StrandedCloses
	r.TracedHeads += o.TracedHeads
	r.UntracedHeads += o.UntracedHeads
	r.ChainsAccepted += o.ChainsAccepted
	r.ChainsTrimmed += o.ChainsTrimmed
	r.ChainsRejected = mergeCounts(r.ChainsRejected, o.ChainsRejected)
	r.ChainsEnhanced += o.ChainsEnhanced
}

// TotalRejected sums rejected chains over all reasons.
func (r Report) TotalRejected() int {
	n := 0
	for _, v := range r.ChainsRejected {
		n += v
	}
	return n
}

func (r Report) TotalSkipped() int {
	n := 0
	for _, v := range r.OrdersSkipped {
		n += v
	}
	return n
}

func mergeCounts(dst, src map[string]int) map[string]int {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]int, len(src))
	}
	for k, v := range src {
		dst[k] += v
	}
	return dst
}

func bump(m *map[string]int, key string) {
	if *m == nil {
		*m = map[string]int{}
	}
	(*m)[key]++
}
