package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"stockwatch/internal/models"
	"stockwatch/internal/repository"
)

const (
	FeatureStockChecker  = "feature.stock_checker"
	FeatureAlertDelivery = "feature.alert_delivery"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureStockChecker:  true,
		FeatureAlertDelivery: true,
	}
}

var featureDescriptions = map[string]string{
	FeatureStockChecker:  "run the scheduled moving-average pass",
	FeatureAlertDelivery: "deliver alerts from scheduled and manual checks",
}

type SystemSettingsService struct {
	Repo repository.Repository
}

// EnsureDefaultSwitches inserts missing switches. Existing values are left
// alone so an operator's choice survives restarts.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: featureDescriptions[key],
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
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
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if _, known := DefaultFeatureSwitches()[key]; !known {
		return invalidf("unknown feature switch %q", key)
	}
	raw, _ := json.Marshal(enabled)
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: featureDescriptions[key],
		UpdatedAt:   time.Now().UTC(),
	}
	return s.Repo.UpsertSystemSetting(ctx, item)
}

func (s *SystemSettingsService) List(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, int64, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, nil
	}
	items, err := s.Repo.ListSystemSettings(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountSystemSettings(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
