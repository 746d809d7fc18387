package service

import (
	"context"
	"time"

	"github.com/stockpulse/stockpulse/internal/domain/models"
	"github.com/stockpulse/stockpulse/internal/storage"
)

// BarsService defines business logic for reading stored daily bars.
// This decouples HTTP handlers from data access.
type BarsService interface {
	GetBars(ctx context.Context, symbol string, start, end *time.Time) ([]models.DailyBar, error)
	GetLatestBar(ctx context.Context, symbol string) (*models.DailyBar, error)
}

type barsService struct {
	repo storage.BarsRepository
}

func NewBarsService(repo storage.BarsRepository) BarsService {
	return &barsService{repo: repo}
}

func (s *barsService) GetBars(ctx context.Context, symbol string, start, end *time.Time) ([]models.DailyBar, error) {
	return s.repo.GetBars(symbol, start, end)
}

func (s *barsService) GetLatestBar(ctx context.Context, symbol string) (*models.DailyBar, error) {
	return s.repo.GetLatestBar(symbol)
}
