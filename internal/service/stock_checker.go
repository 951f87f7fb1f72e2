package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"stockwatch/internal/alertrule"
	"stockwatch/internal/errtrack"
	"stockwatch/internal/metrics"
	"stockwatch/internal/models"
	"stockwatch/internal/notify"
	"stockwatch/internal/quote"
	"stockwatch/internal/repository"
	"stockwatch/internal/stream"
)

type CheckOptions struct {
	Trigger string
	// Deliver controls whether in-band stocks are handed to the sink. Without
	// it the latch never sets, so a later delivering check still alerts.
	Deliver bool
	// IgnoreDue checks every stock regardless of its polling interval.
	IgnoreDue bool
}

type CheckSummary struct {
	PortfolioID      uint64 `json:"portfolio_id"`
	Checked          int    `json:"checked"`
	Updated          int    `json:"updated"`
	Unavailable      int    `json:"unavailable"`
	NotDue           int    `json:"not_due"`
	Alerted          int    `json:"alerted"`
	DeliveryFailures int    `json:"delivery_failures"`
	Rearmed          int    `json:"rearmed"`
	Failed           int    `json:"failed"`
}

func (c *CheckSummary) add(o CheckSummary) {
	c.Checked += o.Checked
	c.Updated += o.Updated
	c.Unavailable += o.Unavailable
	c.NotDue += o.NotDue
	c.Alerted += o.Alerted
	c.DeliveryFailures += o.DeliveryFailures
	c.Rearmed += o.Rearmed
	c.Failed += o.Failed
}

type PassSummary struct {
	Portfolios        int          `json:"portfolios"`
	SkippedPortfolios int          `json:"skipped_portfolios"`
	Totals            CheckSummary `json:"totals"`
	Duration          string       `json:"duration"`
}

var errOwnerMissing = fmt.Errorf("%w: portfolio owner", ErrNotFound)

// StockChecker refreshes tracked stocks from the quote source and fires
// alerts when a stock dips into the band.
type StockChecker struct {
	Repo    repository.Repository
	Quotes  quote.Source
	Sink    notify.Sink
	Logger  *zap.Logger
	Flags   *SystemSettingsService
	Tracker errtrack.Tracker
	Events  *stream.Hub

	Band             alertrule.Band
	FetchConcurrency int

	Now func() time.Time
}

// RunScheduled is the periodic pass over every portfolio. Per-portfolio
// failures are logged and never stop the pass.
func (s *StockChecker) RunScheduled(ctx context.Context) (PassSummary, error) {
	var out PassSummary
	if s == nil || s.Repo == nil || s.Quotes == nil {
		return out, nil
	}
	started := time.Now()
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureStockChecker, true) {
		metrics.PassRuns.WithLabelValues(models.TriggerScheduled, "skipped").Inc()
		s.logger().Info("stock check pass skipped by feature switch")
		return out, nil
	}
	portfolios, err := s.Repo.ListPortfolios(ctx)
	if err != nil {
		metrics.PassRuns.WithLabelValues(models.TriggerScheduled, "error").Inc()
		return out, err
	}
	opts := CheckOptions{
		Trigger: models.TriggerScheduled,
		Deliver: s.Flags == nil || s.Flags.IsEnabled(ctx, FeatureAlertDelivery, true),
	}
	for i := range portfolios {
		if ctx.Err() != nil {
			break
		}
		sum, err := s.checkPortfolio(ctx, &portfolios[i], opts)
		if err != nil {
			out.SkippedPortfolios++
			s.logger().Warn("portfolio check skipped",
				zap.Uint64("portfolio_id", portfolios[i].ID),
				zap.Error(err),
			)
			continue
		}
		out.Portfolios++
		out.Totals.add(sum)
	}
	elapsed := time.Since(started)
	out.Duration = elapsed.Round(time.Millisecond).String()
	metrics.PassRuns.WithLabelValues(models.TriggerScheduled, "ok").Inc()
	metrics.PassDuration.WithLabelValues(models.TriggerScheduled).Observe(elapsed.Seconds())
	s.logger().Info("stock check pass finished",
		zap.Int("portfolios", out.Portfolios),
		zap.Int("skipped_portfolios", out.SkippedPortfolios),
		zap.Int("checked", out.Totals.Checked),
		zap.Int("updated", out.Totals.Updated),
		zap.Int("alerted", out.Totals.Alerted),
		zap.Duration("elapsed", elapsed),
	)
	return out, nil
}

// CheckPortfolio runs the rule for one portfolio on demand. Every stock is
// checked regardless of when it was last refreshed.
func (s *StockChecker) CheckPortfolio(ctx context.Context, portfolioID uint64, opts CheckOptions) (CheckSummary, error) {
	if s == nil || s.Repo == nil || s.Quotes == nil {
		return CheckSummary{}, nil
	}
	p, err := s.Repo.GetPortfolioByID(ctx, portfolioID)
	if err != nil {
		return CheckSummary{}, err
	}
	if p == nil {
		return CheckSummary{}, notFoundf("portfolio %d", portfolioID)
	}
	if opts.Trigger == "" {
		opts.Trigger = models.TriggerManual
	}
	opts.IgnoreDue = true
	started := time.Now()
	sum, err := s.checkPortfolio(ctx, p, opts)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.PassRuns.WithLabelValues(opts.Trigger, status).Inc()
	metrics.PassDuration.WithLabelValues(opts.Trigger).Observe(time.Since(started).Seconds())
	return sum, err
}

func (s *StockChecker) checkPortfolio(ctx context.Context, p *models.Portfolio, opts CheckOptions) (CheckSummary, error) {
	sum := CheckSummary{PortfolioID: p.ID}
	user, err := s.Repo.GetUserByID(ctx, p.UserID)
	if err != nil {
		return sum, err
	}
	if user == nil {
		return sum, errOwnerMissing
	}

	now := s.now()
	interval := p.PollingInterval()
	due := make([]models.Stock, 0, len(p.Stocks))
	for _, st := range p.Stocks {
		if opts.IgnoreDue || st.Due(now, interval) {
			due = append(due, st)
			continue
		}
		sum.NotDue++
	}
	if len(due) == 0 {
		return sum, nil
	}

	quotes := s.prefetch(ctx, due)
	recipient := notify.RecipientForEmail(user.Email)
	changed := make([]models.Stock, 0, len(due))
	var deliveries []models.AlertDelivery
	for i := range due {
		st := &due[i]
		sum.Checked++
		res := s.evaluate(ctx, st, quotes[st.Symbol], recipient, p, opts, now)
		switch {
		case res.failed:
			sum.Failed++
			continue
		case !res.updated:
			sum.Unavailable++
			continue
		}
		sum.Updated++
		changed = append(changed, *st)
		if res.rearmed {
			sum.Rearmed++
		}
		if res.delivery != nil {
			deliveries = append(deliveries, *res.delivery)
			if res.delivery.Success {
				sum.Alerted++
			} else {
				sum.DeliveryFailures++
			}
		}
	}

	if err := s.Repo.SaveStockChecks(ctx, changed, deliveries); err != nil {
		return sum, err
	}
	s.Events.Publish(user.ID, stream.Event{
		Type:        stream.EventCheckComplete,
		PortfolioID: p.ID,
		Data:        sum,
	})
	return sum, nil
}

type evaluation struct {
	updated  bool
	failed   bool
	rearmed  bool
	delivery *models.AlertDelivery
}

// evaluate applies the rule to one stock. A panic is contained here so the
// remaining stocks still run; the stock is then left as it was.
func (s *StockChecker) evaluate(ctx context.Context, st *models.Stock, q quote.Quote, to notify.Recipient, p *models.Portfolio, opts CheckOptions, now time.Time) (res evaluation) {
	defer func() {
		if r := recover(); r != nil {
			res = evaluation{failed: true}
			metrics.StockChecks.WithLabelValues("panic").Inc()
			err := fmt.Errorf("stock check panic: %v", r)
			s.logger().Error("stock check panicked",
				zap.String("symbol", st.Symbol),
				zap.Uint64("portfolio_id", p.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			errtrack.OrNoop(s.Tracker).CaptureError(ctx, err, map[string]string{
				"symbol":  st.Symbol,
				"trigger": opts.Trigger,
			})
		}
	}()

	if !q.Usable() {
		metrics.StockChecks.WithLabelValues("unavailable").Inc()
		s.logger().Info("quote unavailable, stock left unchanged",
			zap.String("symbol", st.Symbol),
			zap.String("reason", q.Reason),
		)
		return res
	}
	decision, ok := alertrule.Apply(st, *q.Price, *q.MA200, now, s.band())
	if !ok {
		metrics.StockChecks.WithLabelValues("unavailable").Inc()
		return res
	}
	metrics.StockChecks.WithLabelValues("updated").Inc()
	res.updated = true
	res.rearmed = decision.Rearmed

	if decision.Notify && opts.Deliver && s.Sink != nil {
		alert := notify.Alert{
			Symbol:       st.Symbol,
			Price:        *q.Price,
			MA200:        *q.MA200,
			DistanceToMA: decision.Distance,
		}
		if st.DaysSinceMABreak != nil {
			alert.DaysSinceBreak = *st.DaysSinceMABreak
		}
		delivered := s.Sink.Send(ctx, to, alert)
		if delivered {
			alertrule.MarkNotified(st)
			s.Events.Publish(p.UserID, stream.Event{
				Type:        stream.EventAlertSent,
				PortfolioID: p.ID,
				Symbol:      st.Symbol,
				Data:        alert.MergeTags(),
			})
		}
		res.delivery = newDelivery(p.ID, st, to, s.Sink.Name(), opts.Trigger, delivered, alert)
	}

	s.Events.Publish(p.UserID, stream.Event{
		Type:        stream.EventStockUpdated,
		PortfolioID: p.ID,
		Symbol:      st.Symbol,
		Data:        NewStockView(*st, now),
	})
	return res
}

// prefetch loads quotes for all stocks with bounded concurrency. The source
// bounds its own upstream calls; a queued fetch waits on the pass context.
// Missing entries in the result mean the fetch did not complete.
func (s *StockChecker) prefetch(ctx context.Context, stocks []models.Stock) map[string]quote.Quote {
	out := make(map[string]quote.Quote, len(stocks))
	var mu sync.Mutex
	limit := s.FetchConcurrency
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, st := range stocks {
		symbol := st.Symbol
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger().Error("quote fetch panicked", zap.String("symbol", symbol), zap.Any("panic", r))
				}
			}()
			q := s.Quotes.Fetch(gctx, symbol)
			mu.Lock()
			out[symbol] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *StockChecker) band() alertrule.Band {
	if s.Band.Lower.IsZero() && s.Band.Upper.IsZero() {
		return alertrule.DefaultBand()
	}
	return s.Band
}

func (s *StockChecker) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *StockChecker) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func newDelivery(portfolioID uint64, st *models.Stock, to notify.Recipient, channel, trigger string, success bool, alert notify.Alert) *models.AlertDelivery {
	payload, _ := json.Marshal(alert.MergeTags())
	d := &models.AlertDelivery{
		PortfolioID: portfolioID,
		Symbol:      alert.Symbol,
		Recipient:   to.Email,
		Channel:     channel,
		Trigger:     trigger,
		Success:     success,
		Payload:     datatypes.JSON(payload),
	}
	if st != nil && st.ID != 0 {
		id := st.ID
		d.StockID = &id
	}
	return d
}
