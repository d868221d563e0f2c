package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/nofumex/onion-shop/internal/infrastructure/observability"
	"github.com/nofumex/onion-shop/internal/models"
	pkgerrors "github.com/nofumex/onion-shop/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresInvoiceRepository struct {
	db *sql.DB
}

func NewPostgresInvoiceRepository(db *sql.DB) *PostgresInvoiceRepository {
	return &PostgresInvoiceRepository{db: db}
}

func (r *PostgresInvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	if inv == nil || inv.InvoiceID == "" {
		return pkgerrors.ErrInvalidInput
	}

	// DO NOTHING makes creation retry-safe: the provider id is the key.
	query := `
	INSERT INTO invoices (invoice_id, user_id, amount, paid)
	VALUES ($1, $2, $3, FALSE)
	ON CONFLICT (invoice_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, inv.InvoiceID, inv.UserID, inv.Amount); err != nil {
		slog.Error("failed to create invoice", "method", "Create", "invoice_id", inv.InvoiceID, "user_id", inv.UserID, "error", err)
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	slog.Info("invoice tracked", "method", "Create", "invoice_id", inv.InvoiceID, "user_id", inv.UserID, "amount", inv.Amount)
	return nil
}

func (r *PostgresInvoiceRepository) HasPending(ctx context.Context) (bool, error) {
	var pending bool
	query := `SELECT EXISTS (SELECT 1 FROM invoices WHERE NOT paid)`
	if err := r.db.QueryRowContext(ctx, query).Scan(&pending); err != nil {
		return false, fmt.Errorf("failed to check pending invoices: %w", err)
	}
	return pending, nil
}

func (r *PostgresInvoiceRepository) CreditPaid(ctx context.Context, invoiceID string) (credited bool, userID int64, amount int64, err error) {
	tracer := otel.Tracer("invoice-repository")
	ctx, span := tracer.Start(ctx, "CreditPaid")
	span.SetAttributes(attribute.String("invoice_id", invoiceID))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreditPaid", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreditPaid").Observe(time.Since(start).Seconds())
	}()

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "CreditPaid", "error", err)
		return false, 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	// The WHERE NOT paid guard is the replay protection: a second poll of
	// the same paid invoice matches zero rows and credits nothing.
	flip := `
	UPDATE invoices SET paid = TRUE
	WHERE invoice_id = $1 AND NOT paid
	RETURNING user_id, amount
	`
	err = dbTx.QueryRowContext(ctx, flip, invoiceID).Scan(&userID, &amount)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = dbTx.Rollback()
		return false, 0, 0, err
	}
	if err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "CreditPaid", "error", rbErr)
		}
		return false, 0, 0, fmt.Errorf("failed to mark invoice paid: %w", err)
	}

	credit := `
	INSERT INTO users (id, balance)
	VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET balance = users.balance + $2
	`
	if _, err = dbTx.ExecContext(ctx, credit, userID, amount); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "CreditPaid", "error", rbErr)
		}
		return false, 0, 0, fmt.Errorf("failed to credit balance: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "CreditPaid", "invoice_id", invoiceID, "error", err)
		return false, 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("invoice credited", "method", "CreditPaid", "invoice_id", invoiceID, "user_id", userID, "amount", amount)
	return true, userID, amount, nil
}
