package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_order/internal/domain"
)

var (
	ErrCheckoutInProgress = errors.New("checkout in progress, cart is locked")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
)

// Store owns one cart for one channel and owner. Every operation runs under
// the store's lock, so readers never observe a half-applied mutation.
//
// While a checkout holds the cart (BeginCheckout) mutations are refused;
// the checkout releases the hold with EndCheckout and clears the cart on
// success.
type Store struct {
	mu      sync.RWMutex
	channel domain.Channel
	owner   string
	cart    *domain.Cart
	held    bool
	changed chan struct{}
	now     func() time.Time
}

func NewStore(channel domain.Channel, owner string) *Store {
	return &Store{
		channel: channel,
		owner:   owner,
		cart:    domain.NewCart(),
		changed: make(chan struct{}, 1),
		now:     time.Now,
	}
}

func (s *Store) Channel() domain.Channel {
	return s.channel
}

// Key is the versioned storage key the cart is persisted under.
func (s *Store) Key() string {
	return domain.StorageKey(string(s.channel), s.owner)
}

// Changes signals after every mutation. Signals coalesce: a reader that
// falls behind sees one pending signal, not one per mutation.
func (s *Store) Changes() <-chan struct{} {
	return s.changed
}

func (s *Store) SetContext(ctx domain.CartContext, resetIfDifferent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		return ErrCheckoutInProgress
	}
	s.cart.SetContext(ctx, resetIfDifferent)
	s.notify()
	return nil
}

// AddLine merges the candidate into the cart. qty below 1 is read as 1.
func (s *Store) AddLine(c domain.LineCandidate, qty int) (domain.CartLine, error) {
	if qty < 1 {
		qty = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		return domain.CartLine{}, ErrCheckoutInProgress
	}
	line, err := s.cart.AddLine(c, qty)
	if err != nil {
		return domain.CartLine{}, err
	}
	s.notify()
	return line, nil
}

// DecrementLine is a no-op for unknown keys.
func (s *Store) DecrementLine(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		return ErrCheckoutInProgress
	}
	if s.cart.DecrementLine(key) {
		s.notify()
	}
	return nil
}

// RemoveLine is a no-op for unknown keys.
func (s *Store) RemoveLine(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		return ErrCheckoutInProgress
	}
	if s.cart.RemoveLine(key) > 0 {
		s.notify()
	}
	return nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		return ErrCheckoutInProgress
	}
	s.cart.Clear()
	s.notify()
	return nil
}

func (s *Store) Subtotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Subtotal()
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Count()
}

func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Lines()
}

func (s *Store) Context() domain.CartContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Context()
}

// Snapshot captures the cart in its persisted shape.
func (s *Store) Snapshot() domain.CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.State(s.now())
}

// Restore replaces the cart with persisted state. It does not signal a
// change since the state came from storage.
func (s *Store) Restore(state domain.CartState) error {
	c, err := domain.RestoreCart(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		return ErrCheckoutInProgress
	}
	s.cart = c
	return nil
}

// BeginCheckout locks the cart and returns the snapshot the checkout works
// from. It fails when another checkout holds the cart or the cart is empty.
func (s *Store) BeginCheckout() (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		return domain.CartState{}, ErrCheckoutInProgress
	}
	if s.cart.Len() == 0 {
		return domain.CartState{}, ErrEmptyCart
	}
	s.held = true
	return s.cart.State(s.now()), nil
}

// EndCheckout releases the hold taken by BeginCheckout, clearing the cart
// first when clear is set.
func (s *Store) EndCheckout(clear bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = false
	if clear {
		s.cart.Clear()
		s.notify()
	}
}

// CheckoutHeld reports whether a checkout currently holds the cart.
func (s *Store) CheckoutHeld() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.held
}

func (s *Store) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
