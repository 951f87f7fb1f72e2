package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"stockwatch/internal/models"
	"stockwatch/internal/repository"
)

// failingRepo delegates to a real store but fails writes of check results
// for the listed portfolios.
type failingRepo struct {
	repository.Repository
	failFor map[uint64]bool
}

var errWriteFailed = errors.New("write failed")

func (r *failingRepo) SaveStockChecks(ctx context.Context, stocks []models.Stock, deliveries []models.AlertDelivery) error {
	for _, st := range stocks {
		if r.failFor[st.PortfolioID] {
			return errWriteFailed
		}
	}
	return r.Repository.SaveStockChecks(ctx, stocks, deliveries)
}

func TestCheckPortfolioSurfacesCommitFailure(t *testing.T) {
	f := newCheckerFixture(t)
	_, p := seedPortfolio(t, f.repo, "alice@example.com", "AAPL")
	f.checker.Repo = &failingRepo{Repository: f.repo, failFor: map[uint64]bool{p.ID: true}}
	f.quotes.set("AAPL", "95", "100")

	_, err := f.checker.CheckPortfolio(context.Background(), p.ID, manual)
	require.ErrorIs(t, err, errWriteFailed)

	st := loadStock(t, f.repo, p.ID, "AAPL")
	require.False(t, st.NotificationSent)
	require.Nil(t, st.LastChecked)
}

func TestRunScheduledContinuesPastFailingPortfolio(t *testing.T) {
	f := newCheckerFixture(t)
	_, bad := seedPortfolio(t, f.repo, "alice@example.com", "AAPL")
	_, good := seedPortfolio(t, f.repo, "bob@example.com", "MSFT")
	f.checker.Repo = &failingRepo{Repository: f.repo, failFor: map[uint64]bool{bad.ID: true}}
	f.quotes.set("AAPL", "95", "100")
	f.quotes.set("MSFT", "95", "100")

	out, err := f.checker.RunScheduled(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, out.Portfolios)
	require.Equal(t, 1, out.SkippedPortfolios)
	require.True(t, loadStock(t, f.repo, good.ID, "MSFT").NotificationSent)
	require.False(t, loadStock(t, f.repo, bad.ID, "AAPL").NotificationSent)
}
