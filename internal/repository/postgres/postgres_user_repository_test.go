package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	repository "github.com/nofumex/onion-shop/internal/repository/postgres"
	pkgerrors "github.com/nofumex/onion-shop/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPostgresUserRepository_Register(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("NewUser", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (id, username, balance)`)).
			WithArgs(int64(42), "alice").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Register(ctx, 42, "alice")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnchangedUsernameIsNoop", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (id, username, balance)`)).
			WithArgs(int64(42), "alice").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Register(ctx, 42, "alice")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_GetByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("EmptyUsername", func(t *testing.T) {
		_, err := repo.GetByUsername(ctx, "")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CaseInsensitiveMatch", func(t *testing.T) {
		created := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, balance, created_at FROM users WHERE LOWER(username) = LOWER($1)`)).
			WithArgs("Alice").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "balance", "created_at"}).
				AddRow(int64(42), "alice", int64(100), created))

		user, err := repo.GetByUsername(ctx, "Alice")
		assert.NoError(t, err)
		assert.Equal(t, int64(42), user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, int64(100), user.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, balance, created_at FROM users`)).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "balance", "created_at"}))

		_, err := repo.GetByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, pkgerrors.ErrIdentityNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("KnownUser", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE((SELECT balance FROM users WHERE id = $1), 0)`)).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(250)))

		balance, err := repo.GetBalance(ctx, 42)
		assert.NoError(t, err)
		assert.Equal(t, int64(250), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownUserReadsZero", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE((SELECT balance FROM users WHERE id = $1), 0)`)).
			WithArgs(int64(999)).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))

		balance, err := repo.GetBalance(ctx, 999)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_ChangeBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("CreditsUnknownUserFromZero", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (id, balance)`)).
			WithArgs(int64(7), int64(50)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(50)))

		newBalance, err := repo.ChangeBalance(ctx, 7, 50)
		assert.NoError(t, err)
		assert.Equal(t, int64(50), newBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DebitReturnsUpdatedBalance", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (id, balance)`)).
			WithArgs(int64(7), int64(-40)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(60)))

		newBalance, err := repo.ChangeBalance(ctx, 7, -40)
		assert.NoError(t, err)
		assert.Equal(t, int64(60), newBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
