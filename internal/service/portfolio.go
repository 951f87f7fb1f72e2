package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"stockwatch/internal/models"
	"stockwatch/internal/notify"
	"stockwatch/internal/quote"
	"stockwatch/internal/repository"
)

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// NormalizeSymbol uppercases and validates a ticker.
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolPattern.MatchString(symbol) {
		return "", invalidf("symbol %q must be 1-5 letters", raw)
	}
	return symbol, nil
}

type PortfolioService struct {
	Repo    repository.Repository
	Quotes  quote.Source
	Sink    notify.Sink
	Checker *StockChecker
	Flags   *SystemSettingsService
	Logger  *zap.Logger

	DefaultPollingRate int
}

type PortfolioUpdate struct {
	Name        *string
	PollingRate *int
}

func (s *PortfolioService) Get(ctx context.Context, userID uint64) (*PortfolioView, error) {
	p, err := s.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	v := NewPortfolioView(*p, time.Now().UTC())
	return &v, nil
}

// Create makes the user's portfolio. Each user has at most one.
func (s *PortfolioService) Create(ctx context.Context, userID uint64, name string, pollingRate int) (*models.Portfolio, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrNotFound
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if pollingRate == 0 {
		pollingRate = s.defaultPollingRate()
	}
	if pollingRate < 1 {
		return nil, invalidf("polling_rate must be at least 1 hour")
	}
	existing, err := s.Repo.GetPortfolioByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictf("user already has a portfolio")
	}
	p := &models.Portfolio{UserID: userID, Name: name, PollingRate: pollingRate}
	if err := s.Repo.CreatePortfolio(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("user already has a portfolio")
		}
		return nil, err
	}
	s.logger().Info("portfolio created", zap.Uint64("user_id", userID), zap.Uint64("portfolio_id", p.ID))
	return p, nil
}

func (s *PortfolioService) Update(ctx context.Context, userID uint64, in PortfolioUpdate) (*PortfolioView, error) {
	p, err := s.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.Name != nil {
		name, err := cleanName(*in.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if in.PollingRate != nil {
		if *in.PollingRate < 1 {
			return nil, invalidf("polling_rate must be at least 1 hour")
		}
		updates["polling_rate"] = *in.PollingRate
	}
	if len(updates) == 0 {
		return nil, invalidf("nothing to update")
	}
	if err := s.Repo.UpdatePortfolio(ctx, p.ID, updates); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *PortfolioService) Delete(ctx context.Context, userID uint64) error {
	p, err := s.own(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Repo.DeletePortfolio(ctx, p.ID); err != nil {
		return err
	}
	s.logger().Info("portfolio deleted", zap.Uint64("user_id", userID), zap.Uint64("portfolio_id", p.ID))
	return nil
}

// AddStock validates the symbol against the quote source and seeds its
// metrics when the provider returned a complete quote.
func (s *PortfolioService) AddStock(ctx context.Context, userID uint64, rawSymbol string) (*models.Stock, error) {
	symbol, err := NormalizeSymbol(rawSymbol)
	if err != nil {
		return nil, err
	}
	p, err := s.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing, err := s.Repo.GetStockBySymbol(ctx, p.ID, symbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictf("%s is already in the portfolio", symbol)
	}
	if s.Quotes == nil {
		return nil, invalidf("no quote source configured")
	}
	q := s.Quotes.Fetch(ctx, symbol)
	if !q.HasData() {
		return nil, invalidf("stock symbol %s not found", symbol)
	}

	st := &models.Stock{PortfolioID: p.ID, Symbol: symbol}
	if q.Usable() {
		st.LastPrice = q.Price
		st.MA200 = q.MA200
		st.DistanceToMA = q.DistanceToMA
	}
	if err := s.Repo.InsertStock(ctx, st); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("%s is already in the portfolio", symbol)
		}
		return nil, err
	}
	s.logger().Info("stock added", zap.Uint64("portfolio_id", p.ID), zap.String("symbol", symbol))
	return st, nil
}

func (s *PortfolioService) RemoveStock(ctx context.Context, userID uint64, rawSymbol string) error {
	symbol := strings.ToUpper(strings.TrimSpace(rawSymbol))
	p, err := s.own(ctx, userID)
	if err != nil {
		return err
	}
	n, err := s.Repo.DeleteStock(ctx, p.ID, symbol)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFoundf("%s is not in the portfolio", symbol)
	}
	s.logger().Info("stock removed", zap.Uint64("portfolio_id", p.ID), zap.String("symbol", symbol))
	return nil
}

// Refresh updates every stock's metrics with the same rule as a check but
// never delivers alerts.
func (s *PortfolioService) Refresh(ctx context.Context, userID uint64) (CheckSummary, error) {
	p, err := s.own(ctx, userID)
	if err != nil {
		return CheckSummary{}, err
	}
	return s.Checker.CheckPortfolio(ctx, p.ID, CheckOptions{Trigger: models.TriggerRefresh, Deliver: false})
}

// CheckAlerts runs the full rule, including delivery, for the user's
// portfolio right now.
func (s *PortfolioService) CheckAlerts(ctx context.Context, userID uint64) (CheckSummary, error) {
	p, err := s.own(ctx, userID)
	if err != nil {
		return CheckSummary{}, err
	}
	deliver := s.Flags == nil || s.Flags.IsEnabled(ctx, FeatureAlertDelivery, true)
	return s.Checker.CheckPortfolio(ctx, p.ID, CheckOptions{Trigger: models.TriggerManual, Deliver: deliver})
}

// SendTestNotification sends a fixed sample alert to the user.
func (s *PortfolioService) SendTestNotification(ctx context.Context, userID uint64) (bool, error) {
	if s == nil || s.Repo == nil {
		return false, ErrNotFound
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, notFoundf("user %d", userID)
	}
	if s.Sink == nil {
		return false, nil
	}
	to := notify.RecipientForEmail(user.Email)
	alert := notify.SampleAlert()
	ok := s.Sink.Send(ctx, to, alert)

	var portfolioID uint64
	if p, err := s.Repo.GetPortfolioByUserID(ctx, userID); err == nil && p != nil {
		portfolioID = p.ID
	}
	payload, _ := json.Marshal(alert.MergeTags())
	if err := s.Repo.InsertAlertDelivery(ctx, &models.AlertDelivery{
		PortfolioID: portfolioID,
		Symbol:      alert.Symbol,
		Recipient:   to.Email,
		Channel:     s.Sink.Name(),
		Trigger:     models.TriggerTest,
		Success:     ok,
		Payload:     datatypes.JSON(payload),
	}); err != nil {
		s.logger().Warn("test delivery not recorded", zap.Error(err))
	}
	return ok, nil
}

func (s *PortfolioService) ListAlerts(ctx context.Context, userID uint64, params repository.ListAlertDeliveriesParams) ([]models.AlertDelivery, int64, error) {
	p, err := s.own(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	params.PortfolioID = &p.ID
	items, err := s.Repo.ListAlertDeliveries(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountAlertDeliveries(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *PortfolioService) own(ctx context.Context, userID uint64) (*models.Portfolio, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrNotFound
	}
	p, err := s.Repo.GetPortfolioByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFoundf("portfolio")
	}
	return p, nil
}

func (s *PortfolioService) defaultPollingRate() int {
	if s.DefaultPollingRate > 0 {
		return s.DefaultPollingRate
	}
	return models.DefaultPollingRateHours
}

func (s *PortfolioService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func cleanName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalidf("name is required")
	}
	if len(name) > 120 {
		return "", invalidf("name is longer than 120 characters")
	}
	return name, nil
}
