package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"optionchains/internal/models"
	"optionchains/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- order cache ------------------------------------------------------------

func (s *Store) UpsertBrokerOrders(ctx context.Context, items []models.BrokerOrder) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return upsertInBatches(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"symbol",
			"state",
			"order_created_at",
			"payload",
			"updated_at",
		}),
	}), items, 200)
}

func (s *Store) ListBrokerOrdersSince(ctx context.Context, userID string, since time.Time) ([]models.BrokerOrder, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.BrokerOrder{}).Where("user_id = ?", strings.TrimSpace(userID))
	if !since.IsZero() {
		query = query.Where("order_created_at >= ?", since)
	}
	var items []models.BrokerOrder
	if err := query.Order("order_created_at asc").Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBrokerOrders(ctx context.Context, userID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.BrokerOrder{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Count(&total).Error
	return total, err
}

func (s *Store) ListOrderUsers(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var users []string
	if err := s.db.WithContext(ctx).Model(&models.BrokerOrder{}).
		Distinct("user_id").
		Order("user_id asc").
		Pluck("user_id", &users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// --- chains -----------------------------------------------------------------

// ReplaceChains makes items the complete stored chain set for the user.
// Chains not present in items are removed; the rest are upserted by chain id.
func (s *Store) ReplaceChains(ctx context.Context, userID string, items []models.RolledChain) error {
	if s == nil || s.db == nil {
		return nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("replace chains: empty user id")
	}
	ids := make([]string, 0, len(items))
	for i := range items {
		items[i].UserID = userID
		ids = append(ids, items[i].ChainID)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("user_id = ?", userID)
		if len(ids) > 0 {
			del = del.Where("chain_id NOT IN ?", ids)
		}
		if err := del.Delete(&models.RolledChain{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return upsertInBatches(tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "chain_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"symbol",
				"option_type",
				"status",
				"is_enhanced",
				"trimmed",
				"order_count",
				"roll_count",
				"total_credits",
				"total_debits",
				"net_premium",
				"total_pnl",
				"started_at",
				"ended_at",
				"open_strike",
				"open_expiration",
				"orders",
				"run_id",
				"detected_at",
				"updated_at",
			}),
		}), items, 200)
	})
}

func (s *Store) ListChains(ctx context.Context, params repository.ListChainsParams) ([]models.RolledChain, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := chainFilters(s.db.WithContext(ctx).Model(&models.RolledChain{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "started_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.RolledChain
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountChains(ctx context.Context, params repository.ListChainsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := chainFilters(s.db.WithContext(ctx).Model(&models.RolledChain{}), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func chainFilters(query *gorm.DB, params repository.ListChainsParams) *gorm.DB {
	query = query.Where("user_id = ?", strings.TrimSpace(params.UserID))
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.ToUpper(strings.TrimSpace(*params.Symbol)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Enhanced != nil {
		query = query.Where("is_enhanced = ?", *params.Enhanced)
	}
	return query
}

func (s *Store) GetChain(ctx context.Context, userID, chainID string) (*models.RolledChain, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.RolledChain
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND chain_id = ?", strings.TrimSpace(userID), strings.TrimSpace(chainID)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SummarizeChains(ctx context.Context, userID string) (*models.ChainSummary, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var out models.ChainSummary
	err := s.db.WithContext(ctx).Model(&models.RolledChain{}).
		Select(`count(*) AS chains,
			count(*) FILTER (WHERE status = 'active') AS active,
			count(*) FILTER (WHERE status = 'closed') AS closed,
			count(*) FILTER (WHERE is_enhanced) AS enhanced,
			COALESCE(sum(net_premium), 0) AS net_premium`).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// --- detection runs ---------------------------------------------------------

func (s *Store) InsertDetectionRun(ctx context.Context, item *models.DetectionRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateDetectionRun(ctx context.Context, item *models.DetectionRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.DetectionRun{}).
		Where("run_id = ?", item.RunID).
		Updates(map[string]any{
			"status":          item.Status,
			"orders_seen":     item.OrdersSeen,
			"chains_accepted": item.ChainsAccepted,
			"chains_rejected": item.ChainsRejected,
			"report":          item.Report,
			"error":           item.Error,
			"finished_at":     item.FinishedAt,
		}).Error
}

func (s *Store) ListDetectionRuns(ctx context.Context, params repository.ListDetectionRunsParams) ([]models.DetectionRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := runFilters(s.db.WithContext(ctx).Model(&models.DetectionRun{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "started_at")
	var items []models.DetectionRun
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountDetectionRuns(ctx context.Context, params repository.ListDetectionRunsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := runFilters(s.db.WithContext(ctx).Model(&models.DetectionRun{}), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func runFilters(query *gorm.DB, params repository.ListDetectionRunsParams) *gorm.DB {
	if params.UserID != nil && strings.TrimSpace(*params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*params.UserID))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

// --- sync state -------------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.SyncState
	err := s.db.WithContext(ctx).First(&state, "scope = ?", scope).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"watermark_ts",
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := settingFilters(s.db.WithContext(ctx).Model(&models.SystemSetting{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	var items []models.SystemSetting
	if err := query.Limit(normalizeLimit(params.Limit, 500)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := settingFilters(s.db.WithContext(ctx).Model(&models.SystemSetting{}), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func settingFilters(query *gorm.DB, params repository.ListSystemSettingsParams) *gorm.DB {
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	return query
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func upsertInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return db.CreateInBatches(items, batchSize).Error
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var _ repository.Repository = (*Store)(nil)
