package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_order/internal/domain"
)

// CartCache fronts the cart state repository. Keys are storage keys, so a
// schema bump invalidates cached entries along with persisted ones.
type CartCache interface {
	Get(ctx context.Context, key string) (*domain.CartState, error)
	Set(ctx context.Context, key string, state domain.CartState) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")
