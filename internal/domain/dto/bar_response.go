package dto

import (
	"github.com/stockpulse/stockpulse/internal/domain/models"
)

// BarResponse is the JSON representation of one stored daily bar.
//
// Prices are rendered as decimal strings to preserve the exact values the
// upstream API provided.
//
// swagger:model BarResponse
type BarResponse struct {
	Symbol      string `json:"symbol" example:"AAPL"`
	TradingDate string `json:"trading_date" example:"2024-01-02"`
	Open        string `json:"open" example:"185.00"`
	High        string `json:"high" example:"186.50"`
	Low         string `json:"low" example:"184.25"`
	Close       string `json:"close" example:"185.75"`
	Volume      int64  `json:"volume" example:"1000000"`
	ChangePct   string `json:"change_pct" example:"0.4054"`
}

// BarsResponse is the body of GET /api/v1/bars.
//
// swagger:model BarsResponse
type BarsResponse struct {
	Symbol string        `json:"symbol" example:"AAPL"`
	Count  int           `json:"count" example:"100"`
	Bars   []BarResponse `json:"bars"`
}

// NewBarResponse maps a domain bar onto its API representation.
func NewBarResponse(b models.DailyBar) BarResponse {
	return BarResponse{
		Symbol:      b.Symbol,
		TradingDate: b.TradingDate.Format("2006-01-02"),
		Open:        b.Open.String(),
		High:        b.High.String(),
		Low:         b.Low.String(),
		Close:       b.Close.String(),
		Volume:      b.Volume,
		ChangePct:   b.ChangePct.StringFixed(4),
	}
}

// NewBarsResponse maps a bar list onto the collection response.
func NewBarsResponse(symbol string, bars []models.DailyBar) BarsResponse {
	out := BarsResponse{Symbol: symbol, Count: len(bars), Bars: make([]BarResponse, 0, len(bars))}
	for _, b := range bars {
		out.Bars = append(out.Bars, NewBarResponse(b))
	}
	return out
}
