// Inventory pools live in a single Bolt file, one bucket per category
// folder key. An item is a filename -> payload pair; deleting the pair is
// the only way an item leaves the pool.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/nofumex/onion-shop/internal/models"
	pkgerrors "github.com/nofumex/onion-shop/pkg/errors"
)

type BoltInventoryRepository struct {
	db *bolt.DB
}

// NewBoltInventoryRepository opens (or creates) the database and ensures
// a bucket exists for every catalog category.
func NewBoltInventoryRepository(path string) (*BoltInventoryRepository, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, c := range models.AllCategories() {
			if _, err := tx.CreateBucketIfNotExists([]byte(c.Folder)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create category buckets: %w", err)
	}

	slog.Info("inventory database opened", "path", path)
	return &BoltInventoryRepository{db: db}, nil
}

func (r *BoltInventoryRepository) Close() error {
	return r.db.Close()
}

func (r *BoltInventoryRepository) Count(ctx context.Context, folder string) (int, error) {
	var count int
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(folder))
		if b == nil {
			return pkgerrors.ErrUnknownCategory
		}
		count = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Reserve returns the first quantity keys in Bolt's byte-sorted cursor
// order. The order is stable for a given pool state, so two serialized
// calls over the same pool see the same sequence.
func (r *BoltInventoryRepository) Reserve(ctx context.Context, folder string, quantity int) ([]string, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", pkgerrors.ErrInvalidInput)
	}

	var handles []string
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(folder))
		if b == nil {
			return pkgerrors.ErrUnknownCategory
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && len(handles) < quantity; k, _ = c.Next() {
			handles = append(handles, string(k))
		}
		if len(handles) < quantity {
			return fmt.Errorf("%w: have %d, want %d", pkgerrors.ErrInsufficientStock, len(handles), quantity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handles, nil
}

func (r *BoltInventoryRepository) Payload(ctx context.Context, folder, filename string) ([]byte, error) {
	var payload []byte
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(folder))
		if b == nil {
			return pkgerrors.ErrUnknownCategory
		}
		v := b.Get([]byte(filename))
		if v == nil {
			return pkgerrors.ErrItemNotFound
		}
		payload = make([]byte, len(v))
		copy(payload, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (r *BoltInventoryRepository) Consume(ctx context.Context, folder, filename string) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(folder))
		if b == nil {
			return pkgerrors.ErrUnknownCategory
		}
		// Deleting an absent key is a no-op; a retried consume is
		// harmless.
		return b.Delete([]byte(filename))
	})
	if err != nil {
		return err
	}
	slog.Info("item consumed", "folder", folder, "filename", filename)
	return nil
}

func (r *BoltInventoryRepository) Put(ctx context.Context, folder, filename string, payload []byte) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(folder))
		if b == nil {
			return pkgerrors.ErrUnknownCategory
		}
		return b.Put([]byte(filename), payload)
	})
	if err != nil {
		return fmt.Errorf("failed to store item: %w", err)
	}
	slog.Info("item added", "folder", folder, "filename", filename, "size", len(payload))
	return nil
}
