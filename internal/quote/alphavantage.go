package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"stockwatch/internal/config"
	"stockwatch/internal/logger"
	"stockwatch/internal/metrics"
)

const (
	ModeIndicator = "indicator"
	ModeComputed  = "computed"
)

// AlphaVantage reads the moving average either from the SMA indicator
// endpoint or by averaging daily closes locally.
type AlphaVantage struct {
	BaseURL  string
	APIKey   string
	Mode     string
	MAPeriod int
	Timeout  time.Duration
	HTTP     *http.Client
	Limiter  *rate.Limiter
	Logger   *zap.Logger

	now func() time.Time
}

func NewAlphaVantage(cfg config.QuoteConfig, log *zap.Logger) *AlphaVantage {
	mode := strings.ToLower(strings.TrimSpace(cfg.MAMode))
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		// burst holds one symbol's worth of calls so a fetch reserves them together
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), callsPerFetch(mode))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AlphaVantage{
		BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:   cfg.APIKey,
		Mode:     mode,
		MAPeriod: cfg.MAPeriod,
		Timeout:  timeout,
		HTTP:     &http.Client{Timeout: timeout},
		Limiter:  limiter,
		Logger:   logger.OrNop(log),
	}
}

func callsPerFetch(mode string) int {
	if mode == ModeComputed {
		return 1
	}
	return 2
}

func (a *AlphaVantage) Fetch(ctx context.Context, symbol string) Quote {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	now := a.clock()
	if a == nil || symbol == "" {
		return unavailable(symbol, "no source", now)
	}
	log := logger.OrNop(a.Logger)
	// Pacing waits only on the caller's context. The timeout below bounds
	// the upstream requests themselves.
	if err := a.pace(ctx); err != nil {
		metrics.QuoteFetches.WithLabelValues("error").Inc()
		log.Warn("quote fetch not paced", zap.String("symbol", symbol), zap.Error(err))
		return unavailable(symbol, err.Error(), now)
	}
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	started := time.Now()
	var (
		q   Quote
		err error
	)
	if a.Mode == ModeComputed {
		q, err = a.fetchComputed(ctx, symbol, now)
	} else {
		q, err = a.fetchIndicator(ctx, symbol, now)
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		q = unavailable(symbol, err.Error(), now)
		log.Warn("quote fetch failed", zap.String("symbol", symbol), zap.Error(err))
	case !q.Usable():
		outcome = "partial"
		if q.Reason == "" {
			q.Reason = "incomplete data"
		}
		log.Warn("quote incomplete", zap.String("symbol", symbol), zap.String("reason", q.Reason))
	}
	metrics.QuoteFetches.WithLabelValues(outcome).Inc()
	metrics.QuoteLatency.Observe(time.Since(started).Seconds())
	return q
}

func (a *AlphaVantage) fetchIndicator(ctx context.Context, symbol string, now time.Time) (Quote, error) {
	period := a.MAPeriod
	if period <= 0 {
		period = 200
	}
	var sma struct {
		Analysis map[string]struct {
			SMA string `json:"SMA"`
		} `json:"Technical Analysis: SMA"`
	}
	if err := a.get(ctx, url.Values{
		"function":    {"SMA"},
		"symbol":      {symbol},
		"interval":    {"daily"},
		"time_period": {fmt.Sprint(period)},
		"series_type": {"close"},
	}, &sma); err != nil {
		return Quote{}, err
	}
	if len(sma.Analysis) == 0 {
		return unavailable(symbol, "no SMA data", now), nil
	}
	latest := latestKey(sma.Analysis)
	ma := parsePositive(sma.Analysis[latest].SMA)

	var gq struct {
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	if err := a.get(ctx, url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
	}, &gq); err != nil {
		return Quote{}, err
	}
	if len(gq.GlobalQuote) == 0 {
		return unavailable(symbol, "no quote data", now), nil
	}
	price := parsePositive(gq.GlobalQuote["05. price"])
	return newQuote(symbol, price, ma, now), nil
}

// fetchComputed uses one daily series request: the latest close is the
// price and the MA is the simple average of the last MAPeriod closes.
func (a *AlphaVantage) fetchComputed(ctx context.Context, symbol string, now time.Time) (Quote, error) {
	period := a.MAPeriod
	if period <= 0 {
		period = 200
	}
	var series struct {
		Daily map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := a.get(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {"full"},
	}, &series); err != nil {
		return Quote{}, err
	}
	if len(series.Daily) == 0 {
		return unavailable(symbol, "no daily series", now), nil
	}
	dates := make([]string, 0, len(series.Daily))
	for date := range series.Daily {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	closes := make([]float64, 0, len(dates))
	for _, date := range dates {
		v, err := decimal.NewFromString(strings.TrimSpace(series.Daily[date]["4. close"]))
		if err != nil {
			continue
		}
		closes = append(closes, v.InexactFloat64())
	}
	if len(closes) == 0 {
		return unavailable(symbol, "no closes", now), nil
	}
	price := decimal.NewFromFloat(closes[len(closes)-1])
	if len(closes) < period {
		q := newQuote(symbol, &price, nil, now)
		q.Reason = fmt.Sprintf("only %d closes, need %d", len(closes), period)
		return q, nil
	}
	sma := talib.Sma(closes, period)
	ma := decimal.NewFromFloat(sma[len(sma)-1]).Round(4)
	return newQuote(symbol, &price, &ma, now), nil
}

// pace reserves every request one fetch will make in a single wait.
func (a *AlphaVantage) pace(ctx context.Context) error {
	if a.Limiter == nil {
		return nil
	}
	n := callsPerFetch(a.Mode)
	if b := a.Limiter.Burst(); b > 0 && n > b {
		n = b
	}
	return a.Limiter.WaitN(ctx, n)
}

// get performs one request. Provider throttling and error bodies come back
// as errors.
func (a *AlphaVantage) get(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", a.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	client := a.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alphavantage: status %d", resp.StatusCode)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("alphavantage: decode: %w", err)
	}
	for _, key := range []string{"Error Message", "Note", "Information"} {
		if raw, ok := envelope[key]; ok {
			var msg string
			_ = json.Unmarshal(raw, &msg)
			return errors.New("alphavantage: " + strings.ToLower(key) + ": " + msg)
		}
	}
	return json.Unmarshal(body, out)
}

func (a *AlphaVantage) clock() time.Time {
	if a != nil && a.now != nil {
		return a.now()
	}
	return time.Now().UTC()
}

// latestKey returns the most recent ISO date key.
func latestKey[V any](m map[string]V) string {
	latest := ""
	for k := range m {
		if k > latest {
			latest = k
		}
	}
	return latest
}

func parsePositive(raw string) *decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !v.IsPositive() {
		return nil
	}
	return &v
}
