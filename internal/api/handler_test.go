package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse/internal/domain/dto"
	"github.com/stockpulse/stockpulse/internal/domain/models"
)

type stubService struct {
	bars    []models.DailyBar
	latest  *models.DailyBar
	err     error
	gotSym  string
	gotFrom *time.Time
	gotTo   *time.Time
}

func (s *stubService) GetBars(_ context.Context, symbol string, start, end *time.Time) ([]models.DailyBar, error) {
	s.gotSym, s.gotFrom, s.gotTo = symbol, start, end
	return s.bars, s.err
}

func (s *stubService) GetLatestBar(_ context.Context, symbol string) (*models.DailyBar, error) {
	s.gotSym = symbol
	return s.latest, s.err
}

func sampleBar(symbol string, date string) models.DailyBar {
	d, _ := time.Parse("2006-01-02", date)
	return models.DailyBar{
		Symbol:      symbol,
		TradingDate: d,
		Open:        decimal.RequireFromString("185.00"),
		High:        decimal.RequireFromString("186.50"),
		Low:         decimal.RequireFromString("184.25"),
		Close:       decimal.RequireFromString("185.75"),
		Volume:      1000000,
		ChangePct:   decimal.RequireFromString("0.4054"),
		FetchedAt:   time.Now().UTC(),
	}
}

func serveGet(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/bars", h.GetBars)
	r.GET("/api/v1/bars/latest", h.GetLatestBar)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetBars(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		svc        *stubService
		wantStatus int
	}{
		{
			name:       "success",
			path:       "/api/v1/bars?symbol=aapl",
			svc:        &stubService{bars: []models.DailyBar{sampleBar("AAPL", "2024-01-02")}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing symbol",
			path:       "/api/v1/bars",
			svc:        &stubService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad start date",
			path:       "/api/v1/bars?symbol=AAPL&start=02-01-2024",
			svc:        &stubService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad end date",
			path:       "/api/v1/bars?symbol=AAPL&end=notadate",
			svc:        &stubService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no rows",
			path:       "/api/v1/bars?symbol=AAPL",
			svc:        &stubService{},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "service error",
			path:       "/api/v1/bars?symbol=AAPL",
			svc:        &stubService{err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveGet(t, NewHandler(tt.svc), tt.path)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d (body %s)", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetBars_NormalizesSymbolAndDates(t *testing.T) {
	svc := &stubService{bars: []models.DailyBar{sampleBar("AAPL", "2024-01-02")}}
	w := serveGet(t, NewHandler(svc), "/api/v1/bars?symbol=%20aapl%20&start=2024-01-01&end=2024-01-31")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.gotSym != "AAPL" {
		t.Fatalf("expected symbol normalized to AAPL, got %q", svc.gotSym)
	}
	if svc.gotFrom == nil || svc.gotFrom.Format("2006-01-02") != "2024-01-01" {
		t.Fatalf("start not forwarded: %v", svc.gotFrom)
	}
	if svc.gotTo == nil || svc.gotTo.Format("2006-01-02") != "2024-01-31" {
		t.Fatalf("end not forwarded: %v", svc.gotTo)
	}

	var body dto.BarsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Count != 1 || len(body.Bars) != 1 {
		t.Fatalf("unexpected payload: %+v", body)
	}
	if body.Bars[0].Open != "185.00" {
		t.Fatalf("expected open 185.00, got %s", body.Bars[0].Open)
	}
}

func TestGetLatestBar(t *testing.T) {
	bar := sampleBar("GOOG", "2024-01-03")

	tests := []struct {
		name       string
		path       string
		svc        *stubService
		wantStatus int
	}{
		{
			name:       "success",
			path:       "/api/v1/bars/latest?symbol=goog",
			svc:        &stubService{latest: &bar},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing symbol",
			path:       "/api/v1/bars/latest",
			svc:        &stubService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not found",
			path:       "/api/v1/bars/latest?symbol=GOOG",
			svc:        &stubService{},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "service error",
			path:       "/api/v1/bars/latest?symbol=GOOG",
			svc:        &stubService{err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveGet(t, NewHandler(tt.svc), tt.path)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d (body %s)", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetLatestBar_Body(t *testing.T) {
	bar := sampleBar("GOOG", "2024-01-03")
	w := serveGet(t, NewHandler(&stubService{latest: &bar}), "/api/v1/bars/latest?symbol=GOOG")

	var body dto.BarResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Symbol != "GOOG" || body.TradingDate != "2024-01-03" {
		t.Fatalf("unexpected payload: %+v", body)
	}
	if body.ChangePct != "0.4054" {
		t.Fatalf("expected change_pct 0.4054, got %s", body.ChangePct)
	}
}
