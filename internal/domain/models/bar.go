package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyBar is one trading day's observation for one symbol.
//
// (Symbol, TradingDate) is the natural unique key: re-fetching the same day
// supersedes the stored row rather than appending a new one. Prices are kept
// as decimals to preserve the exact values returned by the API.
//
// Fields:
//   - Symbol: uppercase ticker (e.g. "AAPL").
//   - TradingDate: calendar date of the observation (time part zero, UTC).
//   - Open/High/Low/Close: daily prices.
//   - Volume: shares traded, non-negative.
//   - ChangePct: (close-open)/open*100, derived at transform time.
//   - FetchedAt: extraction timestamp of the run that produced the bar.
type DailyBar struct {
	Symbol      string
	TradingDate time.Time
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      int64
	ChangePct   decimal.Decimal
	FetchedAt   time.Time
}
