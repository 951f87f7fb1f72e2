package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/config"
	"stockwatch/internal/db"
	"stockwatch/internal/models"
	"stockwatch/internal/notify"
	"stockwatch/internal/quote"
	gormrepository "stockwatch/internal/repository/gorm"
)

func newTestRepo(t *testing.T) *gormrepository.Store {
	t.Helper()
	conn, err := db.Open(config.DBConfig{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	require.NoError(t, db.AutoMigrate(conn))
	return gormrepository.New(conn.Gorm)
}

type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[string]quote.Quote
	calls  map[string]int
	panics map[string]bool
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{quotes: map[string]quote.Quote{}, calls: map[string]int{}, panics: map[string]bool{}}
}

func (f *fakeQuotes) set(symbol, price, ma string) {
	q := quote.Quote{Symbol: symbol, Timestamp: time.Now()}
	if price != "" {
		p := decimal.RequireFromString(price)
		q.Price = &p
	}
	if ma != "" {
		m := decimal.RequireFromString(ma)
		q.MA200 = &m
	}
	f.mu.Lock()
	f.quotes[symbol] = q
	f.mu.Unlock()
}

func (f *fakeQuotes) Fetch(_ context.Context, symbol string) quote.Quote {
	f.mu.Lock()
	f.calls[symbol]++
	q, ok := f.quotes[symbol]
	boom := f.panics[symbol]
	f.mu.Unlock()
	if boom {
		panic("quote source exploded")
	}
	if !ok {
		return quote.Quote{Symbol: symbol, Reason: "unknown symbol"}
	}
	return q
}

func (f *fakeQuotes) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

type fakeSink struct {
	mu   sync.Mutex
	ok   bool
	boom bool
	sent []notify.Alert
	tos  []notify.Recipient
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Send(_ context.Context, to notify.Recipient, alert notify.Alert) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.boom {
		panic("sink exploded")
	}
	f.sent = append(f.sent, alert)
	f.tos = append(f.tos, to)
	return f.ok
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func seedPortfolio(t *testing.T, repo *gormrepository.Store, email string, symbols ...string) (*models.User, *models.Portfolio) {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Email: email, PINHash: "hash-" + email}
	require.NoError(t, repo.CreateUser(ctx, user))
	p := &models.Portfolio{UserID: user.ID, Name: "Main", PollingRate: 24}
	require.NoError(t, repo.CreatePortfolio(ctx, p))
	for _, sym := range symbols {
		require.NoError(t, repo.InsertStock(ctx, &models.Stock{PortfolioID: p.ID, Symbol: sym}))
	}
	return user, p
}

func loadStock(t *testing.T, repo *gormrepository.Store, portfolioID uint64, symbol string) *models.Stock {
	t.Helper()
	st, err := repo.GetStockBySymbol(context.Background(), portfolioID, symbol)
	require.NoError(t, err)
	require.NotNil(t, st)
	return st
}
