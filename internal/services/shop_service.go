package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/nofumex/onion-shop/internal/infrastructure/cryptopay"
	"github.com/nofumex/onion-shop/internal/infrastructure/kafka"
	"github.com/nofumex/onion-shop/internal/infrastructure/observability"
	"github.com/nofumex/onion-shop/internal/infrastructure/redis"
	"github.com/nofumex/onion-shop/internal/models"
	"github.com/nofumex/onion-shop/internal/repository"
	pkgerrors "github.com/nofumex/onion-shop/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	salesTopic      = "sales"
	balanceCacheTTL = 5 * time.Minute
	topUpMarkerTTL  = 10 * time.Minute
)

// Deliverer transmits an item file to a buyer. The bot implements it.
type Deliverer interface {
	SendDocument(ctx context.Context, userID int64, filename string, payload []byte, caption string) error
}

// PurchaseResult reports what a purchase attempt actually did.
type PurchaseResult struct {
	Folder     string
	Kind       models.ItemKind
	Quantity   int
	Delivered  int
	TotalPrice int64
	NewBalance int64
}

// StockLine is one row of the stock report.
type StockLine struct {
	Category models.Category
	Count    int
}

type ShopService interface {
	RegisterUser(ctx context.Context, userID int64, username string) error
	GetBalance(ctx context.Context, userID int64) (int64, error)
	ResolveIdentity(ctx context.Context, target string) (int64, error)
	AdjustBalance(ctx context.Context, userID int64, delta int64) (int64, error)
	Purchase(ctx context.Context, buyerID int64, folder string, quantity int, deliver Deliverer) (*PurchaseResult, error)
	StockReport(ctx context.Context) ([]StockLine, error)
	Stats(ctx context.Context) (*models.SalesStats, error)
	TopBuyers(ctx context.Context, limit int) ([]models.TopBuyer, error)
	UploadItem(ctx context.Context, filename string, payload []byte) (models.Category, error)
	MarkTopUpPending(ctx context.Context, userID int64)
	TakeTopUpPending(ctx context.Context, userID int64) bool
	StartTopUp(ctx context.Context, userID int64, amount int64) (string, error)
}

type shopService struct {
	userRepo      repository.UserRepository
	saleRepo      repository.SaleRepository
	invoiceRepo   repository.InvoiceRepository
	inventoryRepo repository.InventoryRepository
	redisClient   redis.RedisClient
	kafkaProducer kafka.KafkaProducer
	provider      InvoiceCreator
	adminIDs      map[int64]struct{}
	adminList     []int64
	locks         *keyedMutex
}

// InvoiceCreator is the slice of the payment provider the service needs.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, userID int64, amount int64) (*cryptopay.CreatedInvoice, error)
}

func NewShopService(
	userRepo repository.UserRepository,
	saleRepo repository.SaleRepository,
	invoiceRepo repository.InvoiceRepository,
	inventoryRepo repository.InventoryRepository,
	redisClient redis.RedisClient,
	kafkaProducer kafka.KafkaProducer,
	provider InvoiceCreator,
	adminIDs []int64,
) *shopService {
	set := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		set[id] = struct{}{}
	}
	return &shopService{
		userRepo:      userRepo,
		saleRepo:      saleRepo,
		invoiceRepo:   invoiceRepo,
		inventoryRepo: inventoryRepo,
		redisClient:   redisClient,
		kafkaProducer: kafkaProducer,
		provider:      provider,
		adminIDs:      set,
		adminList:     adminIDs,
		locks:         newKeyedMutex(),
	}
}

func (s *shopService) RegisterUser(ctx context.Context, userID int64, username string) error {
	tracer := otel.Tracer("shop-service")
	ctx, span := tracer.Start(ctx, "RegisterUser")
	defer span.End()

	if err := s.userRepo.Register(ctx, userID, username); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user registration failed")
		slog.Error("failed to register user", "user_id", userID, "error", err)
		return fmt.Errorf("%w: failed to register user", pkgerrors.ErrInternal)
	}
	return nil
}

func (s *shopService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	tracer := otel.Tracer("shop-service")
	ctx, span := tracer.Start(ctx, "GetBalance")
	defer span.End()

	balanceKey := fmt.Sprintf("user:%d:balance", userID)
	if cached, err := s.redisClient.Get(ctx, balanceKey); err == nil {
		if balance, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			return balance, nil
		}
		slog.Warn("malformed cached balance, falling back to store", "user_id", userID, "value", cached)
	}

	balance, err := s.userRepo.GetBalance(ctx, userID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to get balance", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	if err := s.redisClient.Set(ctx, balanceKey, balance, balanceCacheTTL); err != nil {
		slog.Error("failed to cache balance", "user_id", userID, "error", err)
	}
	return balance, nil
}

// ResolveIdentity accepts a numeric identifier or an "@handle" (the "@"
// is optional, matching is case-insensitive).
func (s *shopService) ResolveIdentity(ctx context.Context, target string) (int64, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return 0, pkgerrors.ErrInvalidInput
	}

	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		return id, nil
	}

	handle := strings.TrimPrefix(target, "@")
	if handle == "" {
		return 0, pkgerrors.ErrInvalidInput
	}
	user, err := s.userRepo.GetByUsername(ctx, handle)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrIdentityNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to resolve identity: %w", err)
	}
	return user.ID, nil
}

func (s *shopService) AdjustBalance(ctx context.Context, userID int64, delta int64) (int64, error) {
	tracer := otel.Tracer("shop-service")
	ctx, span := tracer.Start(ctx, "AdjustBalance")
	span.SetAttributes(attribute.Int64("user_id", userID), attribute.Int64("delta", delta))
	defer span.End()

	if delta == 0 {
		return 0, fmt.Errorf("%w: amount cannot be zero", pkgerrors.ErrInvalidInput)
	}

	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	newBalance, err := s.userRepo.ChangeBalance(ctx, userID, delta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "balance adjustment failed")
		slog.Error("failed to adjust balance", "user_id", userID, "delta", delta, "error", err)
		return 0, err
	}
	s.invalidateBalance(ctx, userID)

	slog.Info("balance adjusted", "user_id", userID, "delta", delta, "new_balance", newBalance)
	return newBalance, nil
}

// Purchase runs the stock-funds-debit-deliver-record sequence under the
// category and buyer locks. A delivery failure after the debit is not
// rolled back: the realized part is recorded and the error surfaced.
func (s *shopService) Purchase(ctx context.Context, buyerID int64, folder string, quantity int, deliver Deliverer) (*PurchaseResult, error) {
	tracer := otel.Tracer("shop-service")
	ctx, span := tracer.Start(ctx, "Purchase")
	span.SetAttributes(
		attribute.Int64("buyer_id", buyerID),
		attribute.String("folder", folder),
		attribute.Int("quantity", quantity),
	)
	defer span.End()

	category, ok := models.CategoryByFolder(folder)
	if !ok {
		span.SetStatus(codes.Error, "unknown category")
		observability.PurchasesTotal.WithLabelValues(folder, "unknown_category").Inc()
		return nil, pkgerrors.ErrUnknownCategory
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", pkgerrors.ErrInvalidInput)
	}

	// Category lock before buyer lock, always in this order.
	unlockCategory := s.locks.Lock(categoryKey(folder))
	defer unlockCategory()
	unlockBuyer := s.locks.Lock(userKey(buyerID))
	defer unlockBuyer()

	available, err := s.inventoryRepo.Count(ctx, folder)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to count stock", "folder", folder, "error", err)
		return nil, fmt.Errorf("failed to count stock: %w", err)
	}
	if available < quantity {
		span.SetStatus(codes.Error, "insufficient stock")
		observability.PurchasesTotal.WithLabelValues(folder, "insufficient_stock").Inc()
		slog.Warn("insufficient stock", "buyer_id", buyerID, "folder", folder, "available", available, "requested", quantity)
		return nil, fmt.Errorf("%w: only %d available", pkgerrors.ErrInsufficientStock, available)
	}

	total := category.Price * int64(quantity)
	balance, err := s.userRepo.GetBalance(ctx, buyerID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to get balance", "buyer_id", buyerID, "error", err)
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance < total {
		span.SetStatus(codes.Error, "insufficient funds")
		observability.PurchasesTotal.WithLabelValues(folder, "insufficient_funds").Inc()
		slog.Warn("insufficient funds", "buyer_id", buyerID, "balance", balance, "required", total)
		return nil, fmt.Errorf("%w: balance %d$, required %d$", pkgerrors.ErrInsufficientFunds, balance, total)
	}

	newBalance, err := s.userRepo.ChangeBalance(ctx, buyerID, -total)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "debit failed")
		slog.Error("failed to debit balance", "buyer_id", buyerID, "total", total, "error", err)
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}
	s.invalidateBalance(ctx, buyerID)

	handles, err := s.inventoryRepo.Reserve(ctx, folder, quantity)
	if err != nil {
		// Store fault after the debit; the debit stands.
		span.RecordError(err)
		span.SetStatus(codes.Error, "reservation failed after debit")
		slog.Error("reservation failed after debit", "buyer_id", buyerID, "folder", folder, "error", err)
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrDeliveryFailed, err)
	}

	result := &PurchaseResult{
		Folder:     folder,
		Kind:       category.Kind,
		Quantity:   quantity,
		TotalPrice: total,
		NewBalance: newBalance,
	}

	for i, filename := range handles {
		payload, err := s.inventoryRepo.Payload(ctx, folder, filename)
		if err != nil {
			return s.finishPartial(ctx, buyerID, result, category, err)
		}
		caption := fmt.Sprintf("Your item 🍪 (%d/%d)", i+1, quantity)
		if err := deliver.SendDocument(ctx, buyerID, filename, payload, caption); err != nil {
			return s.finishPartial(ctx, buyerID, result, category, err)
		}
		// Consume only after the document went out, so a failed send
		// does not destroy an unsold item.
		if err := s.inventoryRepo.Consume(ctx, folder, filename); err != nil {
			slog.Error("failed to consume delivered item", "folder", folder, "filename", filename, "error", err)
		}
		result.Delivered++
		observability.ItemsDelivered.WithLabelValues(folder).Inc()
	}

	s.recordSale(ctx, buyerID, total, quantity, category)
	observability.PurchasesTotal.WithLabelValues(folder, "success").Inc()
	slog.Info("purchase completed", "buyer_id", buyerID, "folder", folder, "quantity", quantity, "total", total)
	return result, nil
}

// finishPartial records whatever was actually delivered and surfaces the
// delivery error. Debit and already-sent items stay as they are.
func (s *shopService) finishPartial(ctx context.Context, buyerID int64, result *PurchaseResult, category models.Category, cause error) (*PurchaseResult, error) {
	observability.PurchasesTotal.WithLabelValues(result.Folder, "delivery_failed").Inc()
	slog.Error("delivery interrupted", "buyer_id", buyerID, "folder", result.Folder, "delivered", result.Delivered, "requested", result.Quantity, "error", cause)

	if result.Delivered > 0 {
		realized := category.Price * int64(result.Delivered)
		s.recordSale(ctx, buyerID, realized, result.Delivered, category)
	}
	return result, fmt.Errorf("%w: %v", pkgerrors.ErrDeliveryFailed, cause)
}

func (s *shopService) recordSale(ctx context.Context, buyerID int64, total int64, quantity int, category models.Category) {
	// Admin activity never reaches the sales log.
	if _, isAdmin := s.adminIDs[buyerID]; isAdmin {
		return
	}

	sale := &models.Sale{
		UserID:     buyerID,
		TotalPrice: total,
		Quantity:   quantity,
		Folder:     category.Folder,
		Kind:       category.Kind,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.saleRepo.Append(ctx, sale); err != nil {
		slog.Error("failed to record sale", "buyer_id", buyerID, "folder", category.Folder, "error", err)
		return
	}

	event := map[string]interface{}{
		"event_type":  "sale",
		"event_id":    uuid.NewString(),
		"sale_id":     sale.ID,
		"user_id":     buyerID,
		"total_price": total,
		"quantity":    quantity,
		"folder":      category.Folder,
		"kind":        string(category.Kind),
		"created_at":  sale.CreatedAt.Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal sale event", "sale_id", sale.ID, "error", err)
		return
	}
	go func() {
		retries := 3
		for i := 0; i < retries; i++ {
			if err := s.kafkaProducer.Send(context.Background(), salesTopic, strconv.FormatInt(buyerID, 10), eventBytes); err == nil {
				return
			}
			time.Sleep(time.Second * time.Duration(i+1))
		}
		slog.Error("failed to send sale event after retries", "sale_id", sale.ID, "user_id", buyerID)
	}()
}

func (s *shopService) StockReport(ctx context.Context) ([]StockLine, error) {
	lines := make([]StockLine, 0, len(models.Accounts)+len(models.Proxies))
	for _, c := range models.AllCategories() {
		count, err := s.inventoryRepo.Count(ctx, c.Folder)
		if err != nil {
			slog.Error("failed to count stock", "folder", c.Folder, "error", err)
			return nil, fmt.Errorf("failed to count stock for %s: %w", c.Folder, err)
		}
		lines = append(lines, StockLine{Category: c, Count: count})
	}
	return lines, nil
}

func (s *shopService) Stats(ctx context.Context) (*models.SalesStats, error) {
	tracer := otel.Tracer("shop-service")
	ctx, span := tracer.Start(ctx, "Stats")
	defer span.End()

	now := time.Now().UTC()
	exclude := s.adminList

	stats := &models.SalesStats{}
	var err error
	if stats.TotalUsers, err = s.userRepo.CountUsers(ctx); err != nil {
		return nil, err
	}
	if stats.UniqueBuyers, err = s.saleRepo.UniqueBuyers(ctx, exclude); err != nil {
		return nil, err
	}
	if stats.SalesToday, err = s.saleRepo.SumForDay(ctx, now, exclude); err != nil {
		return nil, err
	}
	if stats.SalesThisMonth, err = s.saleRepo.SumForMonth(ctx, now, exclude); err != nil {
		return nil, err
	}
	if stats.TotalOrders, err = s.saleRepo.TotalOrders(ctx, exclude); err != nil {
		return nil, err
	}
	if stats.AvgTicketToday, err = s.saleRepo.AvgTicketForDay(ctx, now, exclude); err != nil {
		return nil, err
	}
	if stats.RevenueTotal, err = s.saleRepo.RevenueTotal(ctx, exclude); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *shopService) TopBuyers(ctx context.Context, limit int) ([]models.TopBuyer, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.saleRepo.TopBuyers(ctx, limit, s.adminList)
}

func (s *shopService) UploadItem(ctx context.Context, filename string, payload []byte) (models.Category, error) {
	tracer := otel.Tracer("shop-service")
	ctx, span := tracer.Start(ctx, "UploadItem")
	span.SetAttributes(attribute.String("filename", filename))
	defer span.End()

	category, ok := models.CategoryForFilename(filename)
	if !ok {
		span.SetStatus(codes.Error, "no category match")
		slog.Warn("upload rejected", "filename", filename)
		return models.Category{}, pkgerrors.ErrInvalidCategory
	}

	unlock := s.locks.Lock(categoryKey(category.Folder))
	defer unlock()

	if err := s.inventoryRepo.Put(ctx, category.Folder, filename, payload); err != nil {
		span.RecordError(err)
		slog.Error("failed to store uploaded item", "filename", filename, "folder", category.Folder, "error", err)
		return models.Category{}, err
	}
	return category, nil
}

// MarkTopUpPending flags the user as mid top-up, so the next bare number
// they send is read as an amount. The marker expires on its own.
func (s *shopService) MarkTopUpPending(ctx context.Context, userID int64) {
	if _, err := s.redisClient.SetNX(ctx, topUpKey(userID), 1, topUpMarkerTTL); err != nil {
		slog.Error("failed to set top-up marker", "user_id", userID, "error", err)
	}
}

// TakeTopUpPending reports whether the marker is set and clears it.
func (s *shopService) TakeTopUpPending(ctx context.Context, userID int64) bool {
	if _, err := s.redisClient.Get(ctx, topUpKey(userID)); err != nil {
		return false
	}
	if err := s.redisClient.Del(ctx, topUpKey(userID)); err != nil {
		slog.Error("failed to clear top-up marker", "user_id", userID, "error", err)
	}
	return true
}

func (s *shopService) StartTopUp(ctx context.Context, userID int64, amount int64) (string, error) {
	tracer := otel.Tracer("shop-service")
	ctx, span := tracer.Start(ctx, "StartTopUp")
	span.SetAttributes(attribute.Int64("user_id", userID), attribute.Int64("amount", amount))
	defer span.End()

	if amount <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", pkgerrors.ErrInvalidInput)
	}

	created, err := s.provider.CreateInvoice(ctx, userID, amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoice creation failed")
		slog.Error("failed to create invoice", "user_id", userID, "amount", amount, "error", err)
		return "", err
	}

	inv := &models.Invoice{InvoiceID: created.InvoiceID, UserID: userID, Amount: amount}
	if err := s.invoiceRepo.Create(ctx, inv); err != nil {
		// The provider already holds the authoritative invoice; without a
		// local mirror the reconciler cannot credit it, so surface this.
		span.RecordError(err)
		slog.Error("failed to track invoice", "invoice_id", created.InvoiceID, "user_id", userID, "error", err)
		return "", err
	}

	slog.Info("top-up started", "user_id", userID, "amount", amount, "invoice_id", created.InvoiceID)
	return created.PayURL, nil
}

func (s *shopService) invalidateBalance(ctx context.Context, userID int64) {
	if err := s.redisClient.Del(ctx, fmt.Sprintf("user:%d:balance", userID)); err != nil {
		slog.Error("failed to invalidate balance cache", "user_id", userID, "error", err)
	}
}

func userKey(userID int64) string      { return fmt.Sprintf("user:%d", userID) }
func topUpKey(userID int64) string     { return fmt.Sprintf("user:%d:topup", userID) }
func categoryKey(folder string) string { return "category:" + folder }
