package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"optionchains/internal/models"
	"optionchains/internal/repository"
)

// stubRepo is a test-only in-memory repository. Methods the handlers never
// reach fall through to the embedded nil interface and panic.
type stubRepo struct {
	repository.Repository

	mu       sync.Mutex
	orders   map[string][]models.BrokerOrder
	chains   map[string][]models.RolledChain
	runs     []models.DetectionRun
	states   map[string]models.SyncState
	settings map[string]models.SystemSetting
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		orders:   map[string][]models.BrokerOrder{},
		chains:   map[string][]models.RolledChain{},
		states:   map[string]models.SyncState{},
		settings: map[string]models.SystemSetting{},
	}
}

func (r *stubRepo) UpsertBrokerOrders(ctx context.Context, items []models.BrokerOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.orders[it.UserID] = append(r.orders[it.UserID], it)
	}
	return nil
}

func (r *stubRepo) ListBrokerOrdersSince(ctx context.Context, userID string, since time.Time) ([]models.BrokerOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.BrokerOrder(nil), r.orders[userID]...), nil
}

func (r *stubRepo) CountBrokerOrders(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.orders[userID])), nil
}

func (r *stubRepo) ReplaceChains(ctx context.Context, userID string, items []models.RolledChain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[userID] = append([]models.RolledChain(nil), items...)
	return nil
}

func (r *stubRepo) ListChains(ctx context.Context, params repository.ListChainsParams) ([]models.RolledChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RolledChain
	for _, c := range r.chains[params.UserID] {
		if params.Status != nil && c.Status != *params.Status {
			continue
		}
		if params.Enhanced != nil && c.IsEnhanced != *params.Enhanced {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *stubRepo) CountChains(ctx context.Context, params repository.ListChainsParams) (int64, error) {
	items, _ := r.ListChains(ctx, params)
	return int64(len(items)), nil
}

func (r *stubRepo) GetChain(ctx context.Context, userID, chainID string) (*models.RolledChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chains[userID] {
		if c.ChainID == chainID {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) SummarizeChains(ctx context.Context, userID string) (*models.ChainSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out models.ChainSummary
	for _, c := range r.chains[userID] {
		out.Chains++
		if c.Status == "active" {
			out.Active++
		} else {
			out.Closed++
		}
		out.NetPremium = out.NetPremium.Add(c.NetPremium)
	}
	return &out, nil
}

func (r *stubRepo) InsertDetectionRun(ctx context.Context, item *models.DetectionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *item)
	return nil
}

func (r *stubRepo) UpdateDetectionRun(ctx context.Context, item *models.DetectionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.runs {
		if r.runs[i].RunID == item.RunID {
			r.runs[i] = *item
		}
	}
	return nil
}

func (r *stubRepo) ListDetectionRuns(ctx context.Context, params repository.ListDetectionRunsParams) ([]models.DetectionRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DetectionRun
	for _, run := range r.runs {
		if params.UserID != nil && run.UserID != *params.UserID {
			continue
		}
		if params.Status != nil && run.Status != *params.Status {
			continue
		}
		out = append(out, run)
	}
	return out, nil
}

func (r *stubRepo) CountDetectionRuns(ctx context.Context, params repository.ListDetectionRunsParams) (int64, error) {
	items, _ := r.ListDetectionRuns(ctx, params)
	return int64(len(items)), nil
}

func (r *stubRepo) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[scope]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *stubRepo) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.Scope] = *state
	return nil
}

func (r *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[item.Key] = *item
	return nil
}

func (r *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.settings[key]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *stubRepo) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SystemSetting
	for _, it := range r.settings {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *stubRepo) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.settings)), nil
}
