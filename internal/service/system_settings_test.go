package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stockwatch/internal/repository"
)

func TestFeatureSwitches(t *testing.T) {
	svc := &SystemSettingsService{Repo: newTestRepo(t)}
	ctx := context.Background()

	require.False(t, svc.IsEnabled(ctx, FeatureStockChecker, false))
	require.NoError(t, svc.EnsureDefaultSwitches(ctx))
	require.True(t, svc.IsEnabled(ctx, FeatureStockChecker, false))

	require.NoError(t, svc.SetEnabled(ctx, FeatureStockChecker, false))
	require.NoError(t, svc.EnsureDefaultSwitches(ctx))
	require.False(t, svc.IsEnabled(ctx, FeatureStockChecker, true))

	require.ErrorIs(t, svc.SetEnabled(ctx, "feature.nope", true), ErrInvalidInput)

	items, total, err := svc.List(ctx, repository.ListSystemSettingsParams{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)
}

func TestNilSettingsServiceFallsBack(t *testing.T) {
	var svc *SystemSettingsService
	require.True(t, svc.IsEnabled(context.Background(), FeatureAlertDelivery, true))
}
