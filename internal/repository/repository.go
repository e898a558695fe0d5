package repository

import (
	"context"
	"time"

	"optionchains/internal/models"
)

// Repository is the persistence surface used by services and handlers.
type Repository interface {
	// Order cache.
	UpsertBrokerOrders(ctx context.Context, items []models.BrokerOrder) error
	ListBrokerOrdersSince(ctx context.Context, userID string, since time.Time) ([]models.BrokerOrder, error)
	CountBrokerOrders(ctx context.Context, userID string) (int64, error)
	ListOrderUsers(ctx context.Context) ([]string, error)

	// Chains.
	ReplaceChains(ctx context.Context, userID string, items []models.RolledChain) error
	ListChains(ctx context.Context, params ListChainsParams) ([]models.RolledChain, error)
	CountChains(ctx context.Context, params ListChainsParams) (int64, error)
	GetChain(ctx context.Context, userID, chainID string) (*models.RolledChain, error)
	SummarizeChains(ctx context.Context, userID string) (*models.ChainSummary, error)

	// Detection runs.
	InsertDetectionRun(ctx context.Context, item *models.DetectionRun) error
	UpdateDetectionRun(ctx context.Context, item *models.DetectionRun) error
	ListDetectionRuns(ctx context.Context, params ListDetectionRunsParams) ([]models.DetectionRun, error)
	CountDetectionRuns(ctx context.Context, params ListDetectionRunsParams) (int64, error)

	// Sync watermarks.
	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error

	// System settings.
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
}

type ListChainsParams struct {
	Limit    int
	Offset   int
	UserID   string
	Symbol   *string
	Status   *string
	Enhanced *bool
	OrderBy  string
	Asc      *bool
}

type ListDetectionRunsParams struct {
	Limit   int
	Offset  int
	UserID  *string
	Status  *string
	OrderBy string
	Asc     *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
