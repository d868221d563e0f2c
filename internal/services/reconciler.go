package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nofumex/onion-shop/internal/infrastructure/cryptopay"
	"github.com/nofumex/onion-shop/internal/infrastructure/observability"
	"github.com/nofumex/onion-shop/internal/infrastructure/redis"
	"github.com/nofumex/onion-shop/internal/repository"
)

// CreditNotifier tells the buyer their balance was credited. The bot
// implements it; failures are logged and never block crediting.
type CreditNotifier interface {
	NotifyCredited(ctx context.Context, userID int64, amount int64)
}

// InvoiceLister is the slice of the payment provider the loop polls.
type InvoiceLister interface {
	GetInvoices(ctx context.Context) ([]cryptopay.InvoiceStatus, error)
}

// Reconciler is the perpetual invoice polling loop. Each cycle fetches
// all invoice statuses in one batched call and credits every newly paid
// invoice exactly once.
type Reconciler struct {
	invoiceRepo repository.InvoiceRepository
	provider    InvoiceLister
	notifier    CreditNotifier
	redisClient redis.RedisClient
	interval    time.Duration
	timeout     time.Duration
}

func NewReconciler(
	invoiceRepo repository.InvoiceRepository,
	provider InvoiceLister,
	notifier CreditNotifier,
	redisClient redis.RedisClient,
	interval time.Duration,
	timeout time.Duration,
) *Reconciler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reconciler{
		invoiceRepo: invoiceRepo,
		provider:    provider,
		notifier:    notifier,
		redisClient: redisClient,
		interval:    interval,
		timeout:     timeout,
	}
}

// Run blocks until ctx is cancelled. A bad cycle is logged and skipped;
// the loop itself never terminates on provider failures.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("invoice reconciler started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("invoice reconciler stopped")
			return
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

func (r *Reconciler) cycle(ctx context.Context) {
	pending, err := r.invoiceRepo.HasPending(ctx)
	if err != nil {
		slog.Error("failed to check pending invoices", "error", err)
		observability.ReconcilerCycles.WithLabelValues("error").Inc()
		return
	}
	if !pending {
		observability.ReconcilerCycles.WithLabelValues("idle").Inc()
		return
	}

	pollCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	statuses, err := r.provider.GetInvoices(pollCtx)
	if err != nil {
		slog.Error("invoice poll failed, will retry next cycle", "error", err)
		observability.ReconcilerCycles.WithLabelValues("error").Inc()
		return
	}

	for _, st := range statuses {
		if st.Status != cryptopay.InvoiceStatusPaid {
			continue
		}
		if err := r.credit(ctx, st.InvoiceID); err != nil {
			slog.Error("failed to credit invoice", "invoice_id", st.InvoiceID, "error", err)
		}
	}
	observability.ReconcilerCycles.WithLabelValues("success").Inc()
}

func (r *Reconciler) credit(ctx context.Context, invoiceID string) error {
	credited, userID, amount, err := r.invoiceRepo.CreditPaid(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("credit failed: %w", err)
	}
	if !credited {
		// Unknown invoice or already credited on an earlier poll.
		return nil
	}

	observability.InvoicesCredited.Inc()
	if err := r.redisClient.Del(ctx, fmt.Sprintf("user:%d:balance", userID)); err != nil {
		slog.Error("failed to invalidate balance cache", "user_id", userID, "error", err)
	}
	slog.Info("invoice paid and credited", "invoice_id", invoiceID, "user_id", userID, "amount", amount)

	if r.notifier != nil {
		r.notifier.NotifyCredited(ctx, userID, amount)
	}
	return nil
}
