package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"optionchains/internal/models"
	"optionchains/internal/repository"
)

// memRepo is an in-memory repository.Repository for service tests.
type memRepo struct {
	mu       sync.Mutex
	orders   map[string]map[string]models.BrokerOrder
	chains   map[string][]models.RolledChain
	runs     []models.DetectionRun
	states   map[string]models.SyncState
	settings map[string]models.SystemSetting

	replaceErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:   map[string]map[string]models.BrokerOrder{},
		chains:   map[string][]models.RolledChain{},
		states:   map[string]models.SyncState{},
		settings: map[string]models.SystemSetting{},
	}
}

func (r *memRepo) UpsertBrokerOrders(ctx context.Context, items []models.BrokerOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		if r.orders[it.UserID] == nil {
			r.orders[it.UserID] = map[string]models.BrokerOrder{}
		}
		r.orders[it.UserID][it.OrderID] = it
	}
	return nil
}

func (r *memRepo) ListBrokerOrdersSince(ctx context.Context, userID string, since time.Time) ([]models.BrokerOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BrokerOrder
	for _, it := range r.orders[userID] {
		if !since.IsZero() && it.OrderCreatedAt != nil && it.OrderCreatedAt.Before(since) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (r *memRepo) CountBrokerOrders(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.orders[userID])), nil
}

func (r *memRepo) ListOrderUsers(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for u := range r.orders {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (r *memRepo) ReplaceChains(ctx context.Context, userID string, items []models.RolledChain) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[userID] = append([]models.RolledChain(nil), items...)
	return nil
}

func (r *memRepo) ListChains(ctx context.Context, params repository.ListChainsParams) ([]models.RolledChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RolledChain
	for _, c := range r.chains[params.UserID] {
		if params.Status != nil && c.Status != *params.Status {
			continue
		}
		if params.Symbol != nil && c.Symbol != *params.Symbol {
			continue
		}
		if params.Enhanced != nil && c.IsEnhanced != *params.Enhanced {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *memRepo) CountChains(ctx context.Context, params repository.ListChainsParams) (int64, error) {
	items, _ := r.ListChains(ctx, params)
	return int64(len(items)), nil
}

func (r *memRepo) GetChain(ctx context.Context, userID, chainID string) (*models.RolledChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chains[userID] {
		if c.ChainID == chainID {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memRepo) SummarizeChains(ctx context.Context, userID string) (*models.ChainSummary, error) {
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
		if c.IsEnhanced {
			out.Enhanced++
		}
		out.NetPremium = out.NetPremium.Add(c.NetPremium)
	}
	return &out, nil
}

func (r *memRepo) InsertDetectionRun(ctx context.Context, item *models.DetectionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *item)
	return nil
}

func (r *memRepo) UpdateDetectionRun(ctx context.Context, item *models.DetectionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.runs {
		if r.runs[i].RunID == item.RunID {
			r.runs[i] = *item
			return nil
		}
	}
	return errors.New("run not found")
}

func (r *memRepo) ListDetectionRuns(ctx context.Context, params repository.ListDetectionRunsParams) ([]models.DetectionRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DetectionRun
	for _, run := range r.runs {
		if params.UserID != nil && run.UserID != *params.UserID {
			continue
		}
		out = append(out, run)
	}
	return out, nil
}

func (r *memRepo) CountDetectionRuns(ctx context.Context, params repository.ListDetectionRunsParams) (int64, error) {
	items, _ := r.ListDetectionRuns(ctx, params)
	return int64(len(items)), nil
}

func (r *memRepo) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[scope]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *memRepo) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.Scope] = *state
	return nil
}

func (r *memRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[item.Key] = *item
	return nil
}

func (r *memRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.settings[key]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *memRepo) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SystemSetting
	for _, it := range r.settings {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *memRepo) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.settings)), nil
}

var _ repository.Repository = (*memRepo)(nil)
