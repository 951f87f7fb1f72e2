package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mode string) *AlphaVantage {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a := NewAlphaVantage(config.QuoteConfig{
		BaseURL:  srv.URL,
		APIKey:   "test",
		Timeout:  2 * time.Second,
		MAMode:   mode,
		MAPeriod: 200,
	}, nil)
	a.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	return a
}

func TestIndicatorModeUsesLatestSMAAndGlobalQuote(t *testing.T) {
	a := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test", r.URL.Query().Get("apikey"))
		switch r.URL.Query().Get("function") {
		case "SMA":
			assert.Equal(t, "200", r.URL.Query().Get("time_period"))
			assert.Equal(t, "daily", r.URL.Query().Get("interval"))
			fmt.Fprint(w, `{"Technical Analysis: SMA": {
				"2024-02-28": {"SMA": "90.0"},
				"2024-02-29": {"SMA": "100.0000"},
				"2024-02-27": {"SMA": "80.0"}}}`)
		case "GLOBAL_QUOTE":
			fmt.Fprint(w, `{"Global Quote": {"01. symbol": "AAPL", "05. price": "95.0000"}}`)
		default:
			t.Errorf("unexpected function %q", r.URL.Query().Get("function"))
		}
	}, ModeIndicator)

	q := a.Fetch(context.Background(), "aapl")
	require.True(t, q.Usable(), q.Reason)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.True(t, q.MA200.Equal(decimal.NewFromInt(100)))
	assert.True(t, q.Price.Equal(decimal.NewFromInt(95)))
	assert.True(t, q.DistanceToMA.Equal(decimal.NewFromInt(-5)))
}

func TestIndicatorModeRateLimitNoteIsUnavailable(t *testing.T) {
	a := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`)
	}, ModeIndicator)

	q := a.Fetch(context.Background(), "AAPL")
	assert.False(t, q.Usable())
	assert.False(t, q.HasData())
	assert.Nil(t, q.Price)
	assert.Nil(t, q.DistanceToMA)
	assert.Contains(t, q.Reason, "note")
}

func TestIndicatorModeUnknownSymbol(t *testing.T) {
	a := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") == "SMA" {
			fmt.Fprint(w, `{"Error Message": "Invalid API call."}`)
			return
		}
		fmt.Fprint(w, `{"Global Quote": {}}`)
	}, ModeIndicator)

	q := a.Fetch(context.Background(), "ZZZZZ")
	assert.False(t, q.HasData())
}

func TestIndicatorModeNonPositiveValuesAreNil(t *testing.T) {
	a := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") == "SMA" {
			fmt.Fprint(w, `{"Technical Analysis: SMA": {"2024-02-29": {"SMA": "0.0000"}}}`)
			return
		}
		fmt.Fprint(w, `{"Global Quote": {"05. price": "12.50"}}`)
	}, ModeIndicator)

	q := a.Fetch(context.Background(), "PENNY")
	assert.True(t, q.HasData())
	assert.False(t, q.Usable())
	assert.Nil(t, q.MA200)
	assert.Nil(t, q.DistanceToMA)
	require.NotNil(t, q.Price)
}

func TestHTTPErrorIsUnavailable(t *testing.T) {
	a := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, ModeIndicator)

	q := a.Fetch(context.Background(), "AAPL")
	assert.False(t, q.HasData())
	assert.Contains(t, q.Reason, "502")
}

func TestComputedModeAveragesDailyCloses(t *testing.T) {
	var calls int32
	a := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "TIME_SERIES_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, "full", r.URL.Query().Get("outputsize"))
		// 250 sessions: the last 200 close at 100, the older ones at 50,
		// the latest close is 90.
		fmt.Fprint(w, `{"Time Series (Daily)": {`)
		start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 250; i++ {
			px := "50"
			if i >= 50 {
				px = "100"
			}
			if i == 249 {
				px = "90"
			}
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `"%s": {"1. open": "1", "4. close": "%s"}`, start.AddDate(0, 0, i).Format("2006-01-02"), px)
		}
		fmt.Fprint(w, `}}`)
	}, ModeComputed)

	q := a.Fetch(context.Background(), "MSFT")
	require.True(t, q.Usable(), q.Reason)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.True(t, q.Price.Equal(decimal.NewFromInt(90)))
	// (199*100 + 90) / 200
	assert.True(t, q.MA200.Equal(decimal.RequireFromString("99.95")), q.MA200.String())
	assert.True(t, q.DistanceToMA.Equal(decimal.RequireFromString("-9.95")), q.DistanceToMA.String())
}

func TestComputedModeShortHistoryHasPriceOnly(t *testing.T) {
	a := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Time Series (Daily)": {"2024-02-29": {"4. close": "10"}, "2024-02-28": {"4. close": "11"}}}`)
	}, ModeComputed)

	q := a.Fetch(context.Background(), "NEWCO")
	assert.True(t, q.HasData())
	assert.False(t, q.Usable())
	assert.True(t, q.Price.Equal(decimal.NewFromInt(10)))
	assert.Contains(t, q.Reason, "need 200")
}

func indicatorUpstream(calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Query().Get("function") == "SMA" {
			fmt.Fprint(w, `{"Technical Analysis: SMA": {"2024-02-29": {"SMA": "100"}}}`)
			return
		}
		fmt.Fprint(w, `{"Global Quote": {"05. price": "95"}}`)
	}
}

func TestDefaultPacingReservesBothIndicatorCalls(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(indicatorUpstream(&calls))
	t.Cleanup(srv.Close)
	a := NewAlphaVantage(config.QuoteConfig{
		BaseURL:           srv.URL,
		APIKey:            "test",
		Timeout:           10 * time.Second,
		RequestsPerMinute: 5,
		MAMode:            ModeIndicator,
		MAPeriod:          200,
	}, nil)
	require.NotNil(t, a.Limiter)
	assert.Equal(t, 2, a.Limiter.Burst())

	q := a.Fetch(context.Background(), "AAPL")
	require.True(t, q.Usable(), q.Reason)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	// the next symbol's calls are 24s away, past this caller's deadline
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	q = a.Fetch(ctx, "MSFT")
	assert.False(t, q.HasData())
	assert.Contains(t, q.Reason, "rate")
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestComputedModePacesOneCallPerFetch(t *testing.T) {
	a := NewAlphaVantage(config.QuoteConfig{RequestsPerMinute: 5, MAMode: "Computed"}, nil)
	require.NotNil(t, a.Limiter)
	assert.Equal(t, 1, a.Limiter.Burst())
}

func TestFetchWithoutLoggerDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	a := &AlphaVantage{BaseURL: srv.URL, Mode: ModeIndicator, Timeout: time.Second}

	var q Quote
	require.NotPanics(t, func() { q = a.Fetch(context.Background(), "AAPL") })
	assert.False(t, q.HasData())
}
