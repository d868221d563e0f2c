package repository

import (
	"context"
	"time"

	"github.com/nofumex/onion-shop/internal/models"
)

// SaleRepository is the append-only sales log. Aggregate queries take the
// admin identity set to exclude; admin sales are also dropped before they
// reach Append, so the filter here only matters for logs that predate it.
type SaleRepository interface {
	Append(ctx context.Context, sale *models.Sale) error
	UniqueBuyers(ctx context.Context, exclude []int64) (int64, error)
	SumForDay(ctx context.Context, day time.Time, exclude []int64) (int64, error)
	SumForMonth(ctx context.Context, month time.Time, exclude []int64) (int64, error)
	TotalOrders(ctx context.Context, exclude []int64) (int64, error)
	AvgTicketForDay(ctx context.Context, day time.Time, exclude []int64) (float64, error)
	RevenueTotal(ctx context.Context, exclude []int64) (int64, error)
	TopBuyers(ctx context.Context, limit int, exclude []int64) ([]models.TopBuyer, error)
}
