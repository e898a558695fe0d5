package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"optionchains/internal/client/broker"
	"optionchains/internal/models"
	"optionchains/internal/repository"
)

var ErrUnknownUser = errors.New("service: unknown user")

// OrderSyncService copies a user's broker orders into the local cache and
// tracks a per-user watermark so later syncs only fetch recent changes.
type OrderSyncService struct {
	Repo         repository.Repository
	Source       broker.Source
	Logger       *zap.Logger
	LookbackDays int
	// Overlap is subtracted from the watermark to pick up late updates.
	Overlap   time.Duration
	BatchSize int
	Now       func() time.Time
}

type OrderSyncResult struct {
	UserID    string    `json:"user_id"`
	Full      bool      `json:"full"`
	Since     time.Time `json:"since"`
	Fetched   int       `json:"fetched"`
	Stored    int       `json:"stored"`
	Watermark time.Time `json:"watermark"`
}

func (s *OrderSyncService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OrderSyncService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Sync fetches orders for one user. A full sync reaches back the configured
// lookback; otherwise it resumes from the stored watermark.
func (s *OrderSyncService) Sync(ctx context.Context, userID string, full bool) (OrderSyncResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return OrderSyncResult{}, ErrUnknownUser
	}
	if s == nil || s.Repo == nil || s.Source == nil {
		return OrderSyncResult{}, errors.New("order sync: not configured")
	}
	started := s.now()
	scope := models.OrderSyncScope(userID)
	state, err := s.Repo.GetSyncState(ctx, scope)
	if err != nil {
		return OrderSyncResult{}, err
	}

	res := OrderSyncResult{UserID: userID, Full: full || state == nil || state.WatermarkTS == nil}
	if !res.Full {
		res.Since = state.WatermarkTS.Add(-s.Overlap)
	} else if s.LookbackDays > 0 {
		res.Since = started.AddDate(0, 0, -s.LookbackDays)
	}

	records, err := s.Source.FetchOrders(ctx, userID, res.Since)
	if err != nil {
		s.writeSyncError(ctx, scope, state, started, err)
		return res, fmt.Errorf("fetch orders for %s: %w", userID, err)
	}
	res.Fetched = len(records)

	items := make([]models.BrokerOrder, 0, len(records))
	for _, r := range records {
		items = append(items, brokerOrderModel(userID, r))
	}
	for start := 0; start < len(items); start += s.batchSize() {
		end := min(start+s.batchSize(), len(items))
		if err := s.Repo.UpsertBrokerOrders(ctx, items[start:end]); err != nil {
			s.writeSyncError(ctx, scope, state, started, err)
			return res, fmt.Errorf("store orders for %s: %w", userID, err)
		}
		res.Stored = end
	}

	res.Watermark = started
	stats, _ := json.Marshal(map[string]any{"fetched": res.Fetched, "stored": res.Stored, "full": res.Full})
	if err := s.Repo.SaveSyncState(ctx, &models.SyncState{
		Scope:         scope,
		WatermarkTS:   &started,
		LastSuccessAt: &started,
		LastAttemptAt: &started,
		StatsJSON:     datatypes.JSON(stats),
	}); err != nil {
		return res, err
	}
	s.logger().Info("order sync done",
		zap.String("user_id", userID),
		zap.Bool("full", res.Full),
		zap.Time("since", res.Since),
		zap.Int("fetched", res.Fetched))
	return res, nil
}

// SyncAll runs an incremental sync for every user and keeps going past
// individual failures.
func (s *OrderSyncService) SyncAll(ctx context.Context, users []string) error {
	var errs []error
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.Sync(ctx, u, false); err != nil {
			s.logger().Warn("order sync failed", zap.String("user_id", u), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *OrderSyncService) batchSize() int {
	if s.BatchSize <= 0 {
		return 500
	}
	return s.BatchSize
}

// writeSyncError records a failed attempt without moving the watermark.
func (s *OrderSyncService) writeSyncError(ctx context.Context, scope string, prev *models.SyncState, at time.Time, err error) {
	s.logger().Warn("order sync failed", zap.String("scope", scope), zap.Error(err))
	state := &models.SyncState{Scope: scope, LastAttemptAt: &at, LastError: strPtr(err.Error())}
	if prev != nil {
		state.WatermarkTS = prev.WatermarkTS
		state.LastSuccessAt = prev.LastSuccessAt
		state.StatsJSON = prev.StatsJSON
	}
	_ = s.Repo.SaveSyncState(ctx, state)
}

func brokerOrderModel(userID string, r broker.Record) models.BrokerOrder {
	symbol := strings.TrimSpace(r.Order.UnderlyingSymbol)
	if symbol == "" {
		symbol = strings.TrimSpace(r.Order.ChainSymbol)
	}
	item := models.BrokerOrder{
		UserID:  userID,
		OrderID: strings.TrimSpace(r.Order.ID),
		Symbol:  strings.ToUpper(symbol),
		State:   strings.ToLower(strings.TrimSpace(r.Order.State)),
		Payload: datatypes.JSON(r.Payload),
	}
	if ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(r.Order.CreatedAt)); err == nil {
		ts = ts.UTC()
		item.OrderCreatedAt = &ts
	}
	if len(item.Payload) == 0 {
		raw, _ := json.Marshal(r.Order)
		item.Payload = datatypes.JSON(raw)
	}
	return item
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
