package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_order/internal/cache"
	"github.com/fjod/go_order/internal/domain"
	"github.com/fjod/go_order/internal/repository"
	"golang.org/x/sync/singleflight"
)

const cacheOpTimeout = time.Second

// CartStateService reads carts through the cache and writes them to the
// repository, invalidating the cached copy on every write.
type CartStateService struct {
	repo  repository.CartStateRepository
	cache cache.CartCache
	sfg   singleflight.Group // collapses concurrent misses for one key
	log   *slog.Logger
}

func NewCartStateService(repo repository.CartStateRepository, cache cache.CartCache, log *slog.Logger) *CartStateService {
	return &CartStateService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Load returns repository.ErrCartNotFound when nothing is stored under key.
func (s *CartStateService) Load(ctx context.Context, key string) (*domain.CartState, error) {
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		state, err := s.cache.Get(ctx, key)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		}

		state, err = s.repo.Load(ctx, key)
		if err != nil {
			return nil, err
		}

		// a stale document is not worth caching; the caller drops it
		if state.SchemaVersion == domain.CartSchemaVersion {
			fill := *state
			go s.fillCache(context.WithoutCancel(ctx), key, fill)
		}
		return state, nil
	})
	if err != nil {
		return nil, err
	}

	state := *v.(*domain.CartState)
	return &state, nil
}

func (s *CartStateService) Save(ctx context.Context, key string, state domain.CartState) error {
	if err := s.repo.Save(ctx, key, state); err != nil {
		s.log.ErrorContext(ctx, "repo save cart failed", "key", key, "error", err)
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *CartStateService) Delete(ctx context.Context, key string) error {
	err := s.repo.Delete(ctx, key)
	// the cached copy goes either way
	s.invalidate(ctx, key)
	return err
}

func (s *CartStateService) fillCache(ctx context.Context, key string, state domain.CartState) {
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := s.cache.Set(ctx, key, state); err != nil {
		s.log.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}

func (s *CartStateService) invalidate(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.WarnContext(ctx, "cache invalidate failed", "key", key, "error", err)
	}
}
