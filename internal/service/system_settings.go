package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"optionchains/internal/models"
	"optionchains/internal/repository"
)

const (
	FeatureOrderSync      = "feature.order_sync"
	FeatureChainDetection = "feature.chain_detection"
)

var ErrUnknownSetting = errors.New("service: unknown setting")

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureOrderSync:      true,
		FeatureChainDetection: true,
	}
}

func FeatureKeys() []string {
	keys := make([]string, 0, len(DefaultFeatureSwitches()))
	for k := range DefaultFeatureSwitches() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SystemSettingsService reads and writes the feature switches that gate the
// scheduled jobs.
type SystemSettingsService struct {
	Repo repository.Repository
}

// EnsureDefaultSwitches inserts missing switches. Existing values are kept.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for _, key := range FeatureKeys() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.Repo.UpsertSystemSetting(ctx, switchSetting(key, DefaultFeatureSwitches()[key], now)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	key = strings.TrimSpace(key)
	if _, ok := DefaultFeatureSwitches()[key]; !ok {
		return ErrUnknownSetting
	}
	if s == nil || s.Repo == nil {
		return nil
	}
	return s.Repo.UpsertSystemSetting(ctx, switchSetting(key, enabled, time.Now().UTC()))
}

// Switches returns every known switch with its effective value.
func (s *SystemSettingsService) Switches(ctx context.Context) map[string]bool {
	out := DefaultFeatureSwitches()
	for key, def := range out {
		out[key] = s.IsEnabled(ctx, key, def)
	}
	return out
}

func switchSetting(key string, enabled bool, now time.Time) *models.SystemSetting {
	raw, _ := json.Marshal(enabled)
	return &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
