package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_order/internal/domain"
	"github.com/fjod/go_order/internal/repository"
)

// StateStore persists cart snapshots under their storage key.
type StateStore interface {
	Load(ctx context.Context, key string) (*domain.CartState, error)
	Save(ctx context.Context, key string, state domain.CartState) error
	Delete(ctx context.Context, key string) error
}

// Syncer keeps a Store durable. Store operations never wait for I/O: the
// syncer picks up change signals and writes the latest snapshot in the
// background, so a burst of taps results in one write.
type Syncer struct {
	store   *Store
	states  StateStore
	timeout time.Duration
	log     *slog.Logger
}

func NewSyncer(store *Store, states StateStore, timeout time.Duration, log *slog.Logger) *Syncer {
	return &Syncer{
		store:   store,
		states:  states,
		timeout: timeout,
		log:     log.With("cart", store.Key()),
	}
}

// Restore loads the persisted cart into the store. A missing cart leaves the
// store empty; a cart written under another schema version is dropped.
func (s *Syncer) Restore(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	state, err := s.states.Load(loadCtx, s.store.Key())
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}

	if err := s.store.Restore(*state); err != nil {
		if !errors.Is(err, domain.ErrStaleCartState) {
			return fmt.Errorf("failed to restore cart: %w", err)
		}
		s.log.Warn("dropping stale cart state", "error", err)
		if errDelete := s.states.Delete(loadCtx, s.store.Key()); errDelete != nil && !errors.Is(errDelete, repository.ErrCartNotFound) {
			s.log.Warn("failed to delete stale cart state", "error", errDelete)
		}
		return nil
	}

	s.log.Info("cart restored", "lines", len(state.Lines))
	return nil
}

// Run persists the store after each change until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.store.Changes():
			if err := s.save(ctx); err != nil {
				s.log.Error("failed to persist cart", "error", err)
			}
		}
	}
}

// Flush writes the current snapshot synchronously, for shutdown.
func (s *Syncer) Flush(ctx context.Context) error {
	return s.save(ctx)
}

func (s *Syncer) save(ctx context.Context) error {
	saveCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	state := s.store.Snapshot()
	if state.IsEmpty() {
		err := s.states.Delete(saveCtx, s.store.Key())
		if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
			return err
		}
		return nil
	}
	return s.states.Save(saveCtx, s.store.Key(), state)
}
