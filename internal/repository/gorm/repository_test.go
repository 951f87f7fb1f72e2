package gormrepository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"stockwatch/internal/config"
	"stockwatch/internal/db"
	"stockwatch/internal/models"
	"stockwatch/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(config.DBConfig{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	require.NoError(t, db.AutoMigrate(conn))
	return New(conn.Gorm)
}

func seedPortfolio(t *testing.T, s *Store, pinHash string, symbols ...string) (*models.User, *models.Portfolio) {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Email: "alice@example.com", PINHash: pinHash}
	require.NoError(t, s.CreateUser(ctx, user))
	p := &models.Portfolio{UserID: user.ID, Name: "Main", PollingRate: 24}
	require.NoError(t, s.CreatePortfolio(ctx, p))
	for _, sym := range symbols {
		require.NoError(t, s.InsertStock(ctx, &models.Stock{PortfolioID: p.ID, Symbol: sym}))
	}
	return user, p
}

func TestUserLookupByPINHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, _ := seedPortfolio(t, s, "hash-1")

	got, err := s.GetUserByPINHash(ctx, "hash-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, user.ID, got.ID)

	missing, err := s.GetUserByPINHash(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	dup := &models.User{Email: "bob@example.com", PINHash: "hash-1"}
	require.Error(t, s.CreateUser(ctx, dup))
}

func TestPortfolioPreloadsStocksInSymbolOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, p := seedPortfolio(t, s, "hash-2", "MSFT", "AAPL", "TSLA")

	got, err := s.GetPortfolioByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, p.ID, got.ID)
	require.Len(t, got.Stocks, 3)
	require.Equal(t, "AAPL", got.Stocks[0].Symbol)
	require.Equal(t, "TSLA", got.Stocks[2].Symbol)

	all, err := s.ListPortfolios(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Len(t, all[0].Stocks, 3)
}

func TestStockSymbolUniquePerPortfolio(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, p := seedPortfolio(t, s, "hash-3", "AAPL")

	err := s.InsertStock(ctx, &models.Stock{PortfolioID: p.ID, Symbol: "AAPL"})
	require.Error(t, err)

	n, err := s.DeleteStock(ctx, p.ID, "aapl")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.DeleteStock(ctx, p.ID, "AAPL")
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestSaveStockChecksWritesNullsAndDeliveries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, p := seedPortfolio(t, s, "hash-4", "AAPL", "MSFT")

	stocks, err := s.ListStocksByPortfolioID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stocks, 2)

	now := time.Now().UTC().Truncate(time.Second)
	price := decimal.RequireFromString("95.5")
	ma := decimal.RequireFromString("100")
	dist := decimal.RequireFromString("-4.5")
	days := 0
	stocks[0].LastPrice = &price
	stocks[0].MA200 = &ma
	stocks[0].DistanceToMA = &dist
	stocks[0].LastChecked = &now
	stocks[0].NotificationSent = true
	stocks[0].LastMABreakDate = &now
	stocks[0].DaysSinceMABreak = &days

	stockID := stocks[0].ID
	deliveries := []models.AlertDelivery{{
		PortfolioID: p.ID,
		StockID:     &stockID,
		Symbol:      "AAPL",
		Recipient:   "alice@example.com",
		Channel:     "log",
		Trigger:     models.TriggerScheduled,
		Success:     true,
		Payload:     datatypes.JSON(`{"symbol":"AAPL"}`),
	}}
	require.NoError(t, s.SaveStockChecks(ctx, stocks[:1], deliveries))

	got, err := s.GetStockBySymbol(ctx, p.ID, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got.LastPrice)
	require.True(t, got.LastPrice.Equal(price))
	require.True(t, got.DistanceToMA.Equal(dist))
	require.True(t, got.NotificationSent)
	require.NotNil(t, got.DaysSinceMABreak)
	require.Equal(t, 0, *got.DaysSinceMABreak)

	// Clearing the break must write NULLs, not leave the old values behind.
	got.NotificationSent = false
	got.LastMABreakDate = nil
	got.DaysSinceMABreak = nil
	require.NoError(t, s.SaveStockChecks(ctx, []models.Stock{*got}, nil))
	again, err := s.GetStockBySymbol(ctx, p.ID, "AAPL")
	require.NoError(t, err)
	require.False(t, again.NotificationSent)
	require.Nil(t, again.LastMABreakDate)
	require.Nil(t, again.DaysSinceMABreak)

	pid := p.ID
	total, err := s.CountAlertDeliveries(ctx, repository.ListAlertDeliveriesParams{PortfolioID: &pid})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestDeletePortfolioCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, p := seedPortfolio(t, s, "hash-5", "AAPL", "MSFT")
	require.NoError(t, s.InsertAlertDelivery(ctx, &models.AlertDelivery{
		PortfolioID: p.ID, Symbol: "AAPL", Recipient: "alice@example.com", Channel: "log", Trigger: models.TriggerTest,
	}))

	require.NoError(t, s.DeletePortfolio(ctx, p.ID))

	got, err := s.GetPortfolioByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, got)
	stocks, err := s.ListStocksByPortfolioID(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, stocks)
	pid := p.ID
	total, err := s.CountAlertDeliveries(ctx, repository.ListAlertDeliveriesParams{PortfolioID: &pid})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestSystemSettingsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertSystemSetting(ctx, &models.SystemSetting{Key: "feature.x", Value: datatypes.JSON("true")}))
	require.NoError(t, s.UpsertSystemSetting(ctx, &models.SystemSetting{Key: "feature.x", Value: datatypes.JSON("false")}))

	got, err := s.GetSystemSettingByKey(ctx, "feature.x")
	require.NoError(t, err)
	require.JSONEq(t, "false", string(got.Value))

	prefix := "feature."
	total, err := s.CountSystemSettings(ctx, repository.ListSystemSettingsParams{Prefix: &prefix})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	got, err := s.GetPortfolioByID(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, s.SaveStockChecks(context.Background(), []models.Stock{{ID: 1}}, nil))
}
