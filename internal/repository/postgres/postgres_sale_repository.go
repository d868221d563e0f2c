package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/nofumex/onion-shop/internal/infrastructure/observability"
	"github.com/nofumex/onion-shop/internal/models"
	pkgerrors "github.com/nofumex/onion-shop/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresSaleRepository struct {
	db *sql.DB
}

func NewPostgresSaleRepository(db *sql.DB) *PostgresSaleRepository {
	return &PostgresSaleRepository{db: db}
}

func (r *PostgresSaleRepository) Append(ctx context.Context, sale *models.Sale) error {
	var err error
	tracer := otel.Tracer("sale-repository")
	ctx, span := tracer.Start(ctx, "AppendSale")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("AppendSale", status).Inc()
		observability.RepositoryDuration.WithLabelValues("AppendSale").Observe(time.Since(start).Seconds())
	}()

	if sale == nil {
		err = pkgerrors.ErrInvalidInput
		slog.Error("failed to append sale", "method", "Append", "error", err)
		return err
	}
	if sale.Kind != models.KindAccount && sale.Kind != models.KindProxy {
		err = fmt.Errorf("%w: unknown item kind %q", pkgerrors.ErrInvalidInput, sale.Kind)
		slog.Error("invalid item kind", "method", "Append", "kind", sale.Kind, "error", err)
		return err
	}
	if sale.Quantity <= 0 || sale.TotalPrice < 0 {
		err = fmt.Errorf("%w: quantity and total price must be positive", pkgerrors.ErrInvalidInput)
		slog.Error("invalid sale values", "method", "Append", "quantity", sale.Quantity, "total_price", sale.TotalPrice, "error", err)
		return err
	}

	span.SetAttributes(
		attribute.Int64("user_id", sale.UserID),
		attribute.Int64("total_price", sale.TotalPrice),
		attribute.Int("quantity", sale.Quantity),
		attribute.String("folder", sale.Folder),
	)

	query := `
	INSERT INTO sales (user_id, total_price, quantity, folder, kind, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
	`
	createdAt := sale.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	err = r.db.QueryRowContext(ctx, query,
		sale.UserID, sale.TotalPrice, sale.Quantity, sale.Folder, string(sale.Kind), createdAt,
	).Scan(&sale.ID)
	if err != nil {
		slog.Error("failed to append sale", "method", "Append", "user_id", sale.UserID, "folder", sale.Folder, "error", err)
		return fmt.Errorf("failed to append sale: %w", err)
	}
	sale.CreatedAt = createdAt

	slog.Info("sale appended", "method", "Append", "id", sale.ID, "user_id", sale.UserID, "total_price", sale.TotalPrice, "quantity", sale.Quantity, "folder", sale.Folder)
	return nil
}

func (r *PostgresSaleRepository) UniqueBuyers(ctx context.Context, exclude []int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(DISTINCT user_id) FROM sales WHERE user_id <> ALL($1)`
	if err := r.db.QueryRowContext(ctx, query, pq.Array(excludeOrEmpty(exclude))).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unique buyers: %w", err)
	}
	return count, nil
}

func (r *PostgresSaleRepository) SumForDay(ctx context.Context, day time.Time, exclude []int64) (int64, error) {
	from, to := dayBounds(day)
	return r.sumBetween(ctx, from, to, exclude)
}

func (r *PostgresSaleRepository) SumForMonth(ctx context.Context, month time.Time, exclude []int64) (int64, error) {
	from, to := monthBounds(month)
	return r.sumBetween(ctx, from, to, exclude)
}

func (r *PostgresSaleRepository) sumBetween(ctx context.Context, from, to time.Time, exclude []int64) (int64, error) {
	var sum int64
	query := `
	SELECT COALESCE(SUM(total_price), 0)
	FROM sales
	WHERE user_id <> ALL($1) AND created_at >= $2 AND created_at < $3
	`
	if err := r.db.QueryRowContext(ctx, query, pq.Array(excludeOrEmpty(exclude)), from, to).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum sales: %w", err)
	}
	return sum, nil
}

func (r *PostgresSaleRepository) TotalOrders(ctx context.Context, exclude []int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM sales WHERE user_id <> ALL($1)`
	if err := r.db.QueryRowContext(ctx, query, pq.Array(excludeOrEmpty(exclude))).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

func (r *PostgresSaleRepository) AvgTicketForDay(ctx context.Context, day time.Time, exclude []int64) (float64, error) {
	from, to := dayBounds(day)
	var avg float64
	query := `
	SELECT COALESCE(AVG(total_price), 0)
	FROM sales
	WHERE user_id <> ALL($1) AND created_at >= $2 AND created_at < $3
	`
	if err := r.db.QueryRowContext(ctx, query, pq.Array(excludeOrEmpty(exclude)), from, to).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to compute avg ticket: %w", err)
	}
	return avg, nil
}

func (r *PostgresSaleRepository) RevenueTotal(ctx context.Context, exclude []int64) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(total_price), 0) FROM sales WHERE user_id <> ALL($1)`
	if err := r.db.QueryRowContext(ctx, query, pq.Array(excludeOrEmpty(exclude))).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return sum, nil
}

func (r *PostgresSaleRepository) TopBuyers(ctx context.Context, limit int, exclude []int64) ([]models.TopBuyer, error) {
	query := `
	SELECT s.user_id, COALESCE(u.username, ''), SUM(s.total_price) AS spent
	FROM sales s
	LEFT JOIN users u ON u.id = s.user_id
	WHERE s.user_id <> ALL($1)
	GROUP BY s.user_id, u.username
	ORDER BY spent DESC, s.user_id
	LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(excludeOrEmpty(exclude)), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top buyers: %w", err)
	}
	defer rows.Close()

	var top []models.TopBuyer
	for rows.Next() {
		var b models.TopBuyer
		if err := rows.Scan(&b.UserID, &b.Username, &b.TotalSpent); err != nil {
			return nil, fmt.Errorf("failed to scan top buyer: %w", err)
		}
		top = append(top, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top buyers: %w", err)
	}
	return top, nil
}

// excludeOrEmpty maps nil to an empty array so <> ALL matches everything.
func excludeOrEmpty(exclude []int64) []int64 {
	if exclude == nil {
		return []int64{}
	}
	return exclude
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	day = day.UTC()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}

func monthBounds(month time.Time) (time.Time, time.Time) {
	month = month.UTC()
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
