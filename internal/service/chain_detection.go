package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"optionchains/internal/models"
	"optionchains/internal/repository"
	"optionchains/internal/rollchain"
)

const (
	TriggerAPI  = "api"
	TriggerCron = "cron"
)

// ChainDetectionService runs the detector over a user's cached orders and
// replaces the user's stored chains with the result.
type ChainDetectionService struct {
	Repo     repository.Repository
	Sync     *OrderSyncService
	Detector *rollchain.Detector
	Logger   *zap.Logger

	// WindowDays bounds the orders linked into chains; HistoryDays bounds the
	// orders searched for traced openings.
	WindowDays   int
	HistoryDays  int
	GroupWorkers int
	Users        []string
	Now          func() time.Time
}

type DetectionResult struct {
	RunID      string            `json:"run_id"`
	UserID     string            `json:"user_id"`
	FullResync bool              `json:"full_resync"`
	Chains     []rollchain.Chain `json:"chains"`
	Report     rollchain.Report  `json:"report"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func (s *ChainDetectionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ChainDetectionService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *ChainDetectionService) Detect(ctx context.Context, userID string, fullResync bool) (DetectionResult, error) {
	return s.detect(ctx, userID, fullResync, TriggerAPI)
}

func (s *ChainDetectionService) detect(ctx context.Context, userID string, fullResync bool, trigger string) (DetectionResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return DetectionResult{}, ErrUnknownUser
	}
	if s == nil || s.Repo == nil {
		return DetectionResult{}, errors.New("chain detection: not configured")
	}
	res := DetectionResult{
		RunID:      uuid.NewString(),
		UserID:     userID,
		FullResync: fullResync,
		StartedAt:  s.now(),
	}
	run := &models.DetectionRun{
		RunID:      res.RunID,
		UserID:     userID,
		FullResync: fullResync,
		Trigger:    trigger,
		Status:     models.RunStatusRunning,
		StartedAt:  res.StartedAt,
	}
	if err := s.Repo.InsertDetectionRun(ctx, run); err != nil {
		return res, fmt.Errorf("record run: %w", err)
	}

	if err := s.execute(ctx, &res); err != nil {
		s.finishRun(ctx, run, res, err)
		s.logger().Warn("chain detection failed",
			zap.String("run_id", res.RunID),
			zap.String("user_id", userID),
			zap.Error(err))
		return res, err
	}
	s.finishRun(ctx, run, res, nil)
	s.logger().Info("chain detection done",
		zap.String("run_id", res.RunID),
		zap.String("user_id", userID),
		zap.Int("chains", len(res.Chains)),
		zap.Int("rejected", res.Report.TotalRejected()),
		zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}

func (s *ChainDetectionService) execute(ctx context.Context, res *DetectionResult) error {
	defer func() { res.FinishedAt = s.now() }()

	cached, err := s.Repo.CountBrokerOrders(ctx, res.UserID)
	if err != nil {
		return err
	}
	if res.FullResync || cached == 0 {
		if s.Sync == nil {
			if cached == 0 {
				return ErrUnknownUser
			}
		} else if _, err := s.Sync.Sync(ctx, res.UserID, true); err != nil {
			return err
		}
	}

	in, err := s.loadInput(ctx, res.UserID, res.StartedAt)
	if err != nil {
		return err
	}
	detector := s.Detector
	if detector == nil {
		detector = rollchain.NewDetector(rollchain.DefaultConfig(), s.Logger)
	}
	plan, err := detector.Prepare(in)
	if err != nil {
		return err
	}
	results, err := s.detectGroups(ctx, plan)
	if err != nil {
		return err
	}
	out := plan.Merge(results)
	res.Chains = out.Chains
	res.Report = out.Report

	items := make([]models.RolledChain, 0, len(out.Chains))
	for _, c := range out.Chains {
		item, err := chainModel(res.UserID, res.RunID, res.StartedAt, c)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	if err := s.Repo.ReplaceChains(ctx, res.UserID, items); err != nil {
		return fmt.Errorf("store chains: %w", err)
	}
	return nil
}

// loadInput reads the cached history and splits off the processing window.
func (s *ChainDetectionService) loadInput(ctx context.Context, userID string, now time.Time) (rollchain.Input, error) {
	var since time.Time
	if s.HistoryDays > 0 {
		since = now.AddDate(0, 0, -s.HistoryDays)
	}
	cached, err := s.Repo.ListBrokerOrdersSince(ctx, userID, since)
	if err != nil {
		return rollchain.Input{}, err
	}
	raws := make([]rollchain.RawOrder, 0, len(cached))
	for _, item := range cached {
		var raw rollchain.RawOrder
		if err := json.Unmarshal(item.Payload, &raw); err != nil {
			s.logger().Debug("cached order unreadable", zap.String("order_id", item.OrderID), zap.Error(err))
			continue
		}
		raws = append(raws, raw)
	}
	var windowStart time.Time
	if s.WindowDays > 0 {
		windowStart = now.AddDate(0, 0, -s.WindowDays)
	}
	return rollchain.SplitWindow(raws, windowStart), nil
}

// detectGroups fans the plan's groups out over a bounded worker pool. Results
// keep the plan's group order.
func (s *ChainDetectionService) detectGroups(ctx context.Context, plan *rollchain.Plan) ([]rollchain.GroupResult, error) {
	results := make([]rollchain.GroupResult, len(plan.Groups))
	g, gctx := errgroup.WithContext(ctx)
	workers := s.GroupWorkers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, group := range plan.Groups {
		i, group := i, group
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = plan.DetectGroup(group)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *ChainDetectionService) finishRun(ctx context.Context, run *models.DetectionRun, res DetectionResult, runErr error) {
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = s.now()
	}
	report, _ := json.Marshal(res.Report)
	run.Status = models.RunStatusSucceeded
	run.OrdersSeen = res.Report.OrdersSeen
	run.ChainsAccepted = res.Report.ChainsAccepted
	run.ChainsRejected = res.Report.TotalRejected()
	run.Report = datatypes.JSON(report)
	run.FinishedAt = &finished
	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = strPtr(runErr.Error())
	}
	if err := s.Repo.UpdateDetectionRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger().Warn("update detection run failed", zap.String("run_id", run.RunID), zap.Error(err))
	}
}

// KnownUsers merges configured users with users that have cached orders.
func (s *ChainDetectionService) KnownUsers(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var users []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		users = append(users, u)
	}
	for _, u := range s.Users {
		add(u)
	}
	cached, err := s.Repo.ListOrderUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range cached {
		add(u)
	}
	sort.Strings(users)
	return users, nil
}

// DetectAll runs detection for every known user. A failing user does not
// stop the others; all failures are returned joined.
func (s *ChainDetectionService) DetectAll(ctx context.Context) ([]DetectionResult, error) {
	users, err := s.KnownUsers(ctx)
	if err != nil {
		return nil, err
	}
	var (
		out  []DetectionResult
		errs []error
	)
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := s.detect(ctx, u, false, TriggerCron)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}
		out = append(out, res)
	}
	return out, errors.Join(errs...)
}

func chainModel(userID, runID string, detectedAt time.Time, c rollchain.Chain) (models.RolledChain, error) {
	orders, err := json.Marshal(c.Orders)
	if err != nil {
		return models.RolledChain{}, fmt.Errorf("encode chain %s: %w", c.ChainID, err)
	}
	item := models.RolledChain{
		UserID:       userID,
		ChainID:      c.ChainID,
		Symbol:       c.Symbol,
		OptionType:   string(c.OptionType),
		Status:       string(c.Status),
		IsEnhanced:   c.IsEnhanced,
		Trimmed:      c.Trimmed,
		OrderCount:   len(c.Orders),
		RollCount:    c.RollCount,
		TotalCredits: c.Financials.TotalCreditsCollected,
		TotalDebits:  c.Financials.TotalDebitsPaid,
		NetPremium:   c.Financials.NetPremium,
		TotalPnL:     c.Financials.TotalPnL,
		StartedAt:    c.StartedAt,
		EndedAt:      c.EndedAt,
		Orders:       datatypes.JSON(orders),
		RunID:        runID,
		DetectedAt:   detectedAt,
	}
	if c.OpenLeg != nil {
		strike := c.OpenLeg.Strike
		exp := c.OpenLeg.Expiration
		item.OpenStrike = &strike
		item.OpenExpiration = &exp
	}
	return item, nil
}
