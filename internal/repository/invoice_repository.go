package repository

import (
	"context"

	"github.com/nofumex/onion-shop/internal/models"
)

// InvoiceRepository is the durable mirror of provider invoices. Tracking
// survives restart so a paid invoice is credited exactly once.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *models.Invoice) error
	HasPending(ctx context.Context) (bool, error)
	// CreditPaid flips paid=false -> true and credits the buyer's balance
	// in one transaction. Returns credited=false (no error) when the
	// invoice is unknown or already paid.
	CreditPaid(ctx context.Context, invoiceID string) (credited bool, userID int64, amount int64, err error)
}
