package cryptopay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/nofumex/onion-shop/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateInvoice(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/createInvoice", r.URL.Path)
			assert.Equal(t, "secret-token", r.Header.Get("Crypto-Pay-API-Token"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "USDT", body["asset"])
			assert.Equal(t, "25", body["amount"])
			assert.Equal(t, "42:25", body["payload"])

			w.Write([]byte(`{"ok":true,"result":{"invoice_id":12345,"status":"active","pay_url":"https://t.me/CryptoBot?start=IVxyz"}}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "secret-token", time.Second)
		created, err := client.CreateInvoice(context.Background(), 42, 25)
		require.NoError(t, err)
		assert.Equal(t, "12345", created.InvoiceID)
		assert.Equal(t, "https://t.me/CryptoBot?start=IVxyz", created.PayURL)
	})

	t.Run("ProviderRejects", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":false}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "secret-token", time.Second)
		_, err := client.CreateInvoice(context.Background(), 42, 25)
		assert.ErrorIs(t, err, pkgerrors.ErrInvoiceProvider)
	})

	t.Run("MissingPayURL", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true,"result":{"invoice_id":12345,"status":"active"}}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "secret-token", time.Second)
		_, err := client.CreateInvoice(context.Background(), 42, 25)
		assert.ErrorIs(t, err, pkgerrors.ErrInvoiceProvider)
	})

	t.Run("Unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "secret-token", 100*time.Millisecond)
		_, err := client.CreateInvoice(context.Background(), 42, 25)
		assert.ErrorIs(t, err, pkgerrors.ErrInvoiceProvider)
	})
}

func TestClient_GetInvoices(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/getInvoices", r.URL.Path)
			w.Write([]byte(`{"ok":true,"result":{"items":[
				{"invoice_id":1,"status":"paid","pay_url":"u1"},
				{"invoice_id":2,"status":"active","pay_url":"u2"},
				{"status":"paid"}
			]}}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "secret-token", time.Second)
		statuses, err := client.GetInvoices(context.Background())
		require.NoError(t, err)

		// The entry without an invoice_id is dropped, not fatal.
		require.Len(t, statuses, 2)
		assert.Equal(t, InvoiceStatus{InvoiceID: "1", Status: InvoiceStatusPaid}, statuses[0])
		assert.Equal(t, InvoiceStatus{InvoiceID: "2", Status: "active"}, statuses[1])
	})

	t.Run("MalformedBody", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>502</html>`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "secret-token", time.Second)
		_, err := client.GetInvoices(context.Background())
		assert.ErrorIs(t, err, pkgerrors.ErrInvoiceProvider)
	})
}
