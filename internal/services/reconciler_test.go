package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nofumex/onion-shop/internal/infrastructure/cryptopay"
	"github.com/nofumex/onion-shop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	statuses []cryptopay.InvoiceStatus
	err      error
	calls    int
}

func (f *fakeLister) GetInvoices(ctx context.Context) ([]cryptopay.InvoiceStatus, error) {
	f.calls++
	return f.statuses, f.err
}

type fakeNotifier struct {
	credits []int64
}

func (f *fakeNotifier) NotifyCredited(ctx context.Context, userID int64, amount int64) {
	f.credits = append(f.credits, amount)
}

func TestReconciler_Cycle(t *testing.T) {
	ctx := context.Background()

	t.Run("CreditsPaidInvoiceOnce", func(t *testing.T) {
		invoices := newFakeInvoiceRepo()
		require.NoError(t, invoices.Create(ctx, &models.Invoice{InvoiceID: "inv-1", UserID: 42, Amount: 50}))

		lister := &fakeLister{statuses: []cryptopay.InvoiceStatus{
			{InvoiceID: "inv-1", Status: cryptopay.InvoiceStatusPaid},
			{InvoiceID: "inv-2", Status: "active"},
		}}
		notifier := &fakeNotifier{}
		r := NewReconciler(invoices, lister, notifier, noopRedis{}, time.Second, time.Second)

		r.cycle(ctx)
		require.Equal(t, []int64{50}, notifier.credits)

		// A second poll reports the same invoice paid again. Nothing moves.
		r.cycle(ctx)
		assert.Equal(t, []int64{50}, notifier.credits)

		pending, err := invoices.HasPending(ctx)
		assert.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("UnknownPaidInvoiceIgnored", func(t *testing.T) {
		invoices := newFakeInvoiceRepo()
		require.NoError(t, invoices.Create(ctx, &models.Invoice{InvoiceID: "inv-1", UserID: 42, Amount: 50}))

		lister := &fakeLister{statuses: []cryptopay.InvoiceStatus{
			{InvoiceID: "someone-elses", Status: cryptopay.InvoiceStatusPaid},
		}}
		notifier := &fakeNotifier{}
		r := NewReconciler(invoices, lister, notifier, noopRedis{}, time.Second, time.Second)

		r.cycle(ctx)
		assert.Empty(t, notifier.credits)
	})

	t.Run("ProviderFailureSkipsCycle", func(t *testing.T) {
		invoices := newFakeInvoiceRepo()
		require.NoError(t, invoices.Create(ctx, &models.Invoice{InvoiceID: "inv-1", UserID: 42, Amount: 50}))

		lister := &fakeLister{err: errors.New("502 bad gateway")}
		notifier := &fakeNotifier{}
		r := NewReconciler(invoices, lister, notifier, noopRedis{}, time.Second, time.Second)

		r.cycle(ctx)
		assert.Empty(t, notifier.credits)

		pending, _ := invoices.HasPending(ctx)
		assert.True(t, pending)
	})

	t.Run("NoPendingSkipsProviderCall", func(t *testing.T) {
		invoices := newFakeInvoiceRepo()
		lister := &fakeLister{}
		r := NewReconciler(invoices, lister, &fakeNotifier{}, noopRedis{}, time.Second, time.Second)

		r.cycle(ctx)
		assert.Zero(t, lister.calls)
	})
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	invoices := newFakeInvoiceRepo()
	r := NewReconciler(invoices, &fakeLister{}, &fakeNotifier{}, noopRedis{}, 5*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after cancel")
	}
}
