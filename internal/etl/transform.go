package etl

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse/internal/domain/models"
	"github.com/stockpulse/stockpulse/internal/logger"
	"github.com/stockpulse/stockpulse/internal/marketdata"
)

const tradingDateLayout = "2006-01-02"

// hundred is the factor for the derived daily change percentage.
var hundred = decimal.NewFromInt(100)

// Transform converts the raw dated-series payload for one symbol into a
// sequence of typed DailyBar records, most recent date first.
//
// Date entries with a missing or unparseable field are skipped with a
// logged warning rather than failing the whole payload. If no valid
// entries remain, Transform returns ErrEmptyResult.
func Transform(symbol string, payload *marketdata.TimeSeriesResponse) ([]models.DailyBar, error) {
	fetchedAt := time.Now().UTC()

	bars := make([]models.DailyBar, 0, len(payload.Series))
	for dateStr, quote := range payload.Series {
		bar, err := toBar(symbol, dateStr, quote, fetchedAt)
		if err != nil {
			logger.L().Warn().
				Str("symbol", symbol).
				Str("date", dateStr).
				Err(err).
				Msg("skipping invalid series entry")
			continue
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("transform %s: %w", symbol, ErrEmptyResult)
	}

	// The API serves most-recent-first; JSON maps lose that, so restore it
	// for deterministic output.
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].TradingDate.After(bars[j].TradingDate)
	})

	return bars, nil
}

// toBar parses one string-encoded date entry into a DailyBar.
func toBar(symbol, dateStr string, q marketdata.DailyQuote, fetchedAt time.Time) (models.DailyBar, error) {
	var bar models.DailyBar

	d, err := time.Parse(tradingDateLayout, dateStr)
	if err != nil {
		return bar, fmt.Errorf("invalid trading date: %w", err)
	}

	open, err := decimal.NewFromString(q.Open)
	if err != nil {
		return bar, fmt.Errorf("invalid open %q: %w", q.Open, err)
	}
	high, err := decimal.NewFromString(q.High)
	if err != nil {
		return bar, fmt.Errorf("invalid high %q: %w", q.High, err)
	}
	low, err := decimal.NewFromString(q.Low)
	if err != nil {
		return bar, fmt.Errorf("invalid low %q: %w", q.Low, err)
	}
	closep, err := decimal.NewFromString(q.Close)
	if err != nil {
		return bar, fmt.Errorf("invalid close %q: %w", q.Close, err)
	}

	volume, err := strconv.ParseInt(q.Volume, 10, 64)
	if err != nil {
		return bar, fmt.Errorf("invalid volume %q: %w", q.Volume, err)
	}
	if volume < 0 {
		return bar, fmt.Errorf("negative volume %d", volume)
	}

	// Daily change percentage, derived once here so the store carries it.
	changePct := decimal.Zero
	if !open.IsZero() {
		changePct = closep.Sub(open).Div(open).Mul(hundred)
	}

	return models.DailyBar{
		Symbol:      symbol,
		TradingDate: d.UTC(),
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closep,
		Volume:      volume,
		ChangePct:   changePct,
		FetchedAt:   fetchedAt,
	}, nil
}
