package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_order/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartStateRepository is the durable home of persisted carts, keyed by
// domain.StorageKey.
type CartStateRepository interface {
	Load(ctx context.Context, key string) (*domain.CartState, error)
	Save(ctx context.Context, key string, state domain.CartState) error
	Delete(ctx context.Context, key string) error
}
