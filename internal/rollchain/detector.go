package rollchain

import (
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
)

var ErrNoOrders = errors.New("rollchain: no orders to process")

type Config struct {
	// MaxChainSpan bounds the time between the first and last order of a
	// chain. Zero disables the bound.
	MaxChainSpan time.Duration
}

func DefaultConfig() Config {
	return Config{MaxChainSpan: DefaultMaxChainSpan}
}

type Detector struct {
	Config Config
	Rules  []RollRule
	Logger *zap.Logger
}

func NewDetector(cfg Config, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{Config: cfg, Rules: DefaultRollRules(), Logger: logger}
}

// Input is one detection request. Orders is the processing window. History
// is the comprehensive set searched by the backward tracer; when empty the
// window doubles as history.
type Input struct {
	Orders  []RawOrder
	History []RawOrder
}

type Result struct {
	Chains []Chain `json:"chains"`
	Report Report  `json:"report"`
}

type GroupResult struct {
	Key    GroupKey
	Chains []Chain
	Report Report
}

// Plan is the immutable output of Prepare. DetectGroup may be called for
// different groups from separate goroutines.
type Plan struct {
	Groups []Group
	Report Report

	cfg     Config
	classes map[string]Classification
	history *History
	log     *zap.Logger
}

func (d *Detector) logger() *zap.Logger {
	if d == nil || d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Prepare normalizes and classifies the window, partitions it into groups and
// indexes the history.
func (d *Detector) Prepare(in Input) (*Plan, error) {
	if len(in.Orders) == 0 {
		return nil, ErrNoOrders
	}
	log := d.logger()
	rules := d.Rules
	if rules == nil {
		rules = DefaultRollRules()
	}

	var rep Report
	rep.OrdersSeen = len(in.Orders)
	orders := normalizeAll(in.Orders, func(e *SkipError) {
		bump(&rep.OrdersSkipped, e.Reason)
		log.Debug("order skipped",
			zap.String("order_id", e.OrderID),
			zap.String("reason", e.Reason),
			zap.String("detail", e.Detail))
	})

	classes := make(map[string]Classification, len(orders))
	for _, o := range orders {
		cl := Classify(rules, o)
		classes[o.ID] = cl
		if cl.IsRoll {
			bump(&rep.RollOrders, cl.Rule)
		}
	}

	groups, rejected := GroupOrders(orders)
	for _, r := range rejected {
		bump(&rep.OrdersSkipped, r.Reason)
		log.Debug("order skipped", zap.String("order_id", r.OrderID), zap.String("reason", r.Reason))
	}
	rep.OrdersNormalized = len(orders) - len(rejected)
	rep.Groups = len(groups)

	var history *History
	if len(in.History) > 0 {
		history = NewHistory(normalizeAll(in.History, nil))
	} else {
		history = NewHistory(orders)
	}
	rep.HistoryOrders = history.Len()

	return &Plan{
		Groups:  groups,
		Report:  rep,
		cfg:     d.Config,
		classes: classes,
		history: history,
		log:     log,
	}, nil
}

func normalizeAll(raws []RawOrder, onSkip func(*SkipError)) []Order {
	out := make([]Order, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		o, err := Normalize(raw)
		if err != nil {
			var se *SkipError
			if onSkip != nil && errors.As(err, &se) {
				onSkip(se)
			}
			continue
		}
		if _, dup := seen[o.ID]; dup {
			if onSkip != nil {
				onSkip(skip(o.ID, SkipDuplicateID, ""))
			}
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	return out
}

// DetectGroup links, traces, validates and aggregates the chains of a single
// group.
func (p *Plan) DetectGroup(g Group) GroupResult {
	res := GroupResult{Key: g.Key}
	rep := &res.Report
	log := p.log.With(zap.String("group", g.Key.String()))

	built := buildCandidates(g.Orders, p.classes)
	rep.Candidates = len(built.Candidates)
	rep.Conflicts = len(built.Conflicts)
	rep.OrphanCloses = len(built.Orphans)
	rep.UnlinkedOrders = len(built.Unlinked)
	rep.StrandedCloses = len(built.Stranded)
	for _, id := range built.Conflicts {
		log.Info("conflicting close excluded", zap.String("order_id", id))
	}
	for _, id := range built.Stranded {
		log.Info("close leg left unlinked", zap.String("order_id", id))
	}

	window := make(map[string]struct{}, len(g.Orders))
	for _, o := range g.Orders {
		window[o.ID] = struct{}{}
	}
	cands, traced := traceHeads(g.Key, built.Candidates, window, p.history)
	rep.TracedHeads = traced.Traced
	rep.UntracedHeads = traced.Untraced

	for _, c := range cands {
		v := Validate(c.Orders, p.cfg.MaxChainSpan)
		if !v.Accepted {
			bump(&rep.ChainsRejected, v.Reason)
			log.Debug("candidate rejected",
				zap.String("head_order_id", c.Head().ID),
				zap.Int("orders", len(c.Orders)),
				zap.String("reason", v.Reason))
			continue
		}
		chain := Assemble(v.Orders, c.Enhanced, v.Trimmed)
		if v.Trimmed {
			rep.ChainsTrimmed++
			log.Info("chain trimmed",
				zap.String("chain_id", chain.ChainID),
				zap.String("reason", v.Reason),
				zap.Int("dropped", len(c.Orders)-len(v.Orders)))
		}
		if chain.IsEnhanced {
			rep.ChainsEnhanced++
		}
		rep.ChainsAccepted++
		res.Chains = append(res.Chains, chain)
	}
	return res
}

// Merge combines group results in a deterministic order.
func (p *Plan) Merge(results []GroupResult) Result {
	var out Result
	out.Report.Merge(p.Report)
	for _, r := range results {
		out.Chains = append(out.Chains, r.Chains...)
		out.Report.Merge(r.Report)
	}
	SortChains(out.Chains)
	return out
}

// SortChains orders chains by start time, then chain id.
func SortChains(chains []Chain) {
	sort.SliceStable(chains, func(i, j int) bool {
		if !chains[i].StartedAt.Equal(chains[j].StartedAt) {
			return chains[i].StartedAt.Before(chains[j].StartedAt)
		}
		return chains[i].ChainID < chains[j].ChainID
	})
}

// Detect runs the whole pipeline sequentially.
func (d *Detector) Detect(in Input) (Result, error) {
	plan, err := d.Prepare(in)
	if err != nil {
		return Result{}, err
	}
	results := make([]GroupResult, 0, len(plan.Groups))
	for _, g := range plan.Groups {
		results = append(results, plan.DetectGroup(g))
	}
	res := plan.Merge(results)
	d.logger().Info("chain detection finished",
		zap.Int("orders", res.Report.OrdersSeen),
		zap.Int("groups", res.Report.Groups),
		zap.Int("chains", len(res.Chains)),
		zap.Int("rejected", res.Report.TotalRejected()))
	return res, nil
}

// SplitWindow builds an Input from a user's full order history. Orders created
// at or after windowStart form the processing window; all orders are searched
// when tracing. A zero windowStart puts every order in the window. Records
// with unreadable timestamps stay in the window so the normalizer reports them.
func SplitWindow(raws []RawOrder, windowStart time.Time) Input {
	in := Input{History: raws}
	for _, raw := range raws {
		if !windowStart.IsZero() {
			if ts, err := parseTimestamp(raw.CreatedAt); err == nil && ts.Before(windowStart) {
				continue
			}
		}
		in.Orders = append(in.Orders, raw)
	}
	return in
}
