package service

import (
	"time"

	"github.com/dustin/go-humanize"

	"stockwatch/internal/alertrule"
	"stockwatch/internal/models"
)

type StockView struct {
	models.Stock
	MAStatus       alertrule.Status `json:"ma_status"`
	LastCheckedAgo string           `json:"last_checked_ago"`
}

func NewStockView(st models.Stock, now time.Time) StockView {
	v := StockView{
		Stock:          st,
		MAStatus:       alertrule.Classify(st.DistanceToMA),
		LastCheckedAgo: "never",
	}
	if st.LastChecked != nil && !st.LastChecked.IsZero() {
		v.LastCheckedAgo = humanize.RelTime(*st.LastChecked, now, "ago", "from now")
	}
	return v
}

type PortfolioView struct {
	models.Portfolio
	Stocks []StockView `json:"stocks"`
	// Alerted counts stocks whose latch is currently set.
	Alerted int `json:"alerted"`
}

func NewPortfolioView(p models.Portfolio, now time.Time) PortfolioView {
	v := PortfolioView{Portfolio: p, Stocks: make([]StockView, 0, len(p.Stocks))}
	for _, st := range p.Stocks {
		v.Stocks = append(v.Stocks, NewStockView(st, now))
		if st.NotificationSent {
			v.Alerted++
		}
	}
	return v
}
