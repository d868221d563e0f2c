package repository

import "context"

// InventoryRepository holds one pool of deliverable items per category
// folder key. Existence in the pool is the only item state.
type InventoryRepository interface {
	Count(ctx context.Context, folder string) (int, error)
	// Reserve returns quantity item handles in a deterministic stable
	// order, or ErrInsufficientStock when the pool is short.
	Reserve(ctx context.Context, folder string, quantity int) ([]string, error)
	Payload(ctx context.Context, folder, filename string) ([]byte, error)
	// Consume removes the item irreversibly. Callers consume only after
	// the item was successfully transmitted.
	Consume(ctx context.Context, folder, filename string) error
	Put(ctx context.Context, folder, filename string, payload []byte) error
	Close() error
}
