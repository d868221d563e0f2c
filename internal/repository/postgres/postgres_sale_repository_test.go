package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/nofumex/onion-shop/internal/models"
	repository "github.com/nofumex/onion-shop/internal/repository/postgres"
	pkgerrors "github.com/nofumex/onion-shop/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPostgresSaleRepository_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresSaleRepository(db)
	ctx := context.Background()

	t.Run("NilSale", func(t *testing.T) {
		err := repo.Append(ctx, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownKind", func(t *testing.T) {
		err := repo.Append(ctx, &models.Sale{
			UserID:     42,
			TotalPrice: 10,
			Quantity:   1,
			Folder:     "etsy",
			Kind:       models.ItemKind("gift_card"),
		})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ZeroQuantity", func(t *testing.T) {
		err := repo.Append(ctx, &models.Sale{
			UserID:     42,
			TotalPrice: 10,
			Quantity:   0,
			Folder:     "etsy",
			Kind:       models.KindAccount,
		})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		sale := &models.Sale{
			UserID:     42,
			TotalPrice: 40,
			Quantity:   2,
			Folder:     "fb_marketplace",
			Kind:       models.KindAccount,
			CreatedAt:  createdAt,
		}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sales (user_id, total_price, quantity, folder, kind, created_at)`)).
			WithArgs(int64(42), int64(40), 2, "fb_marketplace", "account", createdAt).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(17)))

		err := repo.Append(ctx, sale)
		assert.NoError(t, err)
		assert.Equal(t, int64(17), sale.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresSaleRepository_Aggregates(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresSaleRepository(db)
	ctx := context.Background()
	exclude := []int64{1, 2}

	t.Run("UniqueBuyersExcludesAdmins", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(DISTINCT user_id) FROM sales WHERE user_id <> ALL($1)`)).
			WithArgs(pq.Array(exclude)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

		count, err := repo.UniqueBuyers(ctx, exclude)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NilExcludeMatchesEveryone", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(DISTINCT user_id) FROM sales WHERE user_id <> ALL($1)`)).
			WithArgs(pq.Array([]int64{})).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))

		count, err := repo.UniqueBuyers(ctx, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(5), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SumForDayUsesUTCBounds", func(t *testing.T) {
		day := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
		from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(total_price), 0) FROM sales`)).
			WithArgs(pq.Array(exclude), from, to).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(120)))

		sum, err := repo.SumForDay(ctx, day, exclude)
		assert.NoError(t, err)
		assert.Equal(t, int64(120), sum)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SumForMonthUsesCalendarBounds", func(t *testing.T) {
		month := time.Date(2025, 6, 17, 9, 0, 0, 0, time.UTC)
		from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(total_price), 0) FROM sales`)).
			WithArgs(pq.Array(exclude), from, to).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(900)))

		sum, err := repo.SumForMonth(ctx, month, exclude)
		assert.NoError(t, err)
		assert.Equal(t, int64(900), sum)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AvgTicketForDay", func(t *testing.T) {
		day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(AVG(total_price), 0) FROM sales`)).
			WithArgs(pq.Array(exclude), from, to).
			WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(float64(12.5)))

		avg, err := repo.AvgTicketForDay(ctx, day, exclude)
		assert.NoError(t, err)
		assert.Equal(t, 12.5, avg)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RevenueTotal", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(total_price), 0) FROM sales WHERE user_id <> ALL($1)`)).
			WithArgs(pq.Array(exclude)).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(1500)))

		sum, err := repo.RevenueTotal(ctx, exclude)
		assert.NoError(t, err)
		assert.Equal(t, int64(1500), sum)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresSaleRepository_TopBuyers(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresSaleRepository(db)
	ctx := context.Background()

	t.Run("OrderedBySpent", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT s.user_id, COALESCE(u.username, ''), SUM(s.total_price) AS spent`)).
			WithArgs(pq.Array([]int64{1}), 5).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "spent"}).
				AddRow(int64(42), "alice", int64(200)).
				AddRow(int64(43), "", int64(80)))

		top, err := repo.TopBuyers(ctx, 5, []int64{1})
		assert.NoError(t, err)
		assert.Len(t, top, 2)
		assert.Equal(t, int64(42), top[0].UserID)
		assert.Equal(t, "alice", top[0].Username)
		assert.Equal(t, int64(200), top[0].TotalSpent)
		assert.Equal(t, "", top[1].Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT s.user_id, COALESCE(u.username, ''), SUM(s.total_price) AS spent`)).
			WithArgs(pq.Array([]int64{}), 5).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "spent"}))

		top, err := repo.TopBuyers(ctx, 5, nil)
		assert.NoError(t, err)
		assert.Empty(t, top)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
