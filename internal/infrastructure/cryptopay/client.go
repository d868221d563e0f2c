// Package cryptopay talks to the Crypto Pay HTTP API: invoice creation
// and the batched status listing the reconciliation loop polls.
package cryptopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	pkgerrors "github.com/nofumex/onion-shop/pkg/errors"
)

const InvoiceStatusPaid = "paid"

// Provider is the capability the services consume.
type Provider interface {
	CreateInvoice(ctx context.Context, userID int64, amount int64) (*CreatedInvoice, error)
	GetInvoices(ctx context.Context) ([]InvoiceStatus, error)
}

type CreatedInvoice struct {
	InvoiceID string
	PayURL    string
}

type InvoiceStatus struct {
	InvoiceID string
	Status    string
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type createInvoiceRequest struct {
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	HiddenMessage string `json:"hidden_message"`
	Payload       string `json:"payload"`
	AllowComments bool   `json:"allow_comments"`
}

type apiEnvelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
}

type invoiceResult struct {
	InvoiceID json.Number `json:"invoice_id"`
	Status    string      `json:"status"`
	PayURL    string      `json:"pay_url"`
}

type invoiceList struct {
	Items []invoiceResult `json:"items"`
}

func (c *Client) CreateInvoice(ctx context.Context, userID int64, amount int64) (*CreatedInvoice, error) {
	reqBody := createInvoiceRequest{
		Asset:         "USDT",
		Amount:        fmt.Sprintf("%d", amount),
		Description:   fmt.Sprintf("Top up balance by %d$", amount),
		HiddenMessage: "Thanks for your payment! Balance will be credited automatically.",
		Payload:       fmt.Sprintf("%d:%d", userID, amount),
		AllowComments: false,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/createInvoice", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("invoice creation request failed", "user_id", userID, "amount", amount, "error", err)
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvoiceProvider, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		slog.Error("failed to decode invoice response", "error", err)
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvoiceProvider, err)
	}
	if !envelope.OK {
		slog.Error("invoice creation rejected by provider", "user_id", userID, "amount", amount)
		return nil, fmt.Errorf("%w: provider returned ok=false", pkgerrors.ErrInvoiceProvider)
	}

	var result invoiceResult
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		slog.Error("unexpected invoice result shape", "error", err)
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvoiceProvider, err)
	}
	if result.InvoiceID.String() == "" || result.PayURL == "" {
		return nil, fmt.Errorf("%w: missing invoice_id or pay_url", pkgerrors.ErrInvoiceProvider)
	}

	return &CreatedInvoice{InvoiceID: result.InvoiceID.String(), PayURL: result.PayURL}, nil
}

func (c *Client) GetInvoices(ctx context.Context) ([]InvoiceStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getInvoices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build invoices request: %w", err)
	}
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvoiceProvider, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvoiceProvider, err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("%w: provider returned ok=false", pkgerrors.ErrInvoiceProvider)
	}

	var list invoiceList
	if err := json.Unmarshal(envelope.Result, &list); err != nil {
		return nil, fmt.Errorf("%w: unexpected result structure: %v", pkgerrors.ErrInvoiceProvider, err)
	}

	statuses := make([]InvoiceStatus, 0, len(list.Items))
	for _, item := range list.Items {
		if item.InvoiceID.String() == "" {
			slog.Warn("skipping invoice entry without invoice_id")
			continue
		}
		statuses = append(statuses, InvoiceStatus{
			InvoiceID: item.InvoiceID.String(),
			Status:    item.Status,
		})
	}
	return statuses, nil
}
