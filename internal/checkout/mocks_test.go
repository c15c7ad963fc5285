package checkout

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_order/internal/cart"
	"github.com/fjod/go_order/internal/domain"
	"github.com/stretchr/testify/require"
)

// userError mimics a backend error carrying a server message.
type userError struct{ msg string }

func (e *userError) Error() string       { return "backend: " + e.msg }
func (e *userError) UserMessage() string { return e.msg }

type MockSessions struct {
	mu    sync.Mutex
	ID    string
	Err   error
	Calls int
}

func (m *MockSessions) OpenSession(_ context.Context, _, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.ID, m.Err
}

type MockOrders struct {
	mu         sync.Mutex
	OrderID    string
	CreateErr  error
	CancelErr  error
	Created    []domain.OrderRequest
	Cancelled  []string
	BlockUntil chan struct{}
}

func (m *MockOrders) CreateOrder(_ context.Context, req domain.OrderRequest) (*domain.Order, error) {
	if m.BlockUntil != nil {
		<-m.BlockUntil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, req)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	return &domain.Order{ID: m.OrderID, RestaurantID: req.RestaurantID, SessionID: req.SessionID}, nil
}

func (m *MockOrders) CancelOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, orderID)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return m.CancelErr
}

func (m *MockOrders) cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Cancelled...)
}

type MockPayments struct {
	Intent *domain.PaymentIntent
	Err    error
	Calls  int
}

func (m *MockPayments) CreatePaymentIntent(_ context.Context, orderID string) (*domain.PaymentIntent, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Intent == nil {
		return &domain.PaymentIntent{ID: "pi_1", ClientSecret: "secret_1", OrderID: orderID}, nil
	}
	return m.Intent, nil
}

type MockSheet struct {
	InitErr      error
	Outcome      domain.SheetOutcome
	PresentErr   error
	PresentPanic bool
	// PresentDelay keeps the sheet open; Present gives up early if ctx ends.
	PresentDelay time.Duration
	InitCalls    int
	PresentCalls int
	Intent       domain.PaymentIntent
}

func (m *MockSheet) Init(_ context.Context, intent domain.PaymentIntent) (string, error) {
	m.InitCalls++
	m.Intent = intent
	if m.InitErr != nil {
		return "", m.InitErr
	}
	return "sheet_1", nil
}

func (m *MockSheet) Present(ctx context.Context, _ string) (domain.SheetOutcome, error) {
	m.PresentCalls++
	if m.PresentPanic {
		panic("sheet crashed")
	}
	if m.PresentDelay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.PresentDelay):
		}
	}
	if m.PresentErr != nil {
		return "", m.PresentErr
	}
	if m.Outcome == "" {
		return domain.SheetSucceeded, nil
	}
	return m.Outcome, nil
}

type MockRecorder struct {
	mu      sync.Mutex
	Orphans []domain.OrphanedOrder
	Placed  []domain.OrderPlaced
	Err     error
}

func (m *MockRecorder) RecordOrphanedOrder(_ context.Context, o domain.OrphanedOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Orphans = append(m.Orphans, o)
	return m.Err
}

func (m *MockRecorder) RecordOrderPlaced(_ context.Context, e domain.OrderPlaced) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Placed = append(m.Placed, e)
	return m.Err
}

type fixture struct {
	store    *cart.Store
	sessions *MockSessions
	orders   *MockOrders
	payments *MockPayments
	sheet    *MockSheet
	recorder *MockRecorder
	saga     *Saga
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture builds a saga over a cart holding one modified line and one
// plain line at restaurant r1.
func newFixture(t *testing.T, channel domain.Channel) *fixture {
	t.Helper()
	f := &fixture{
		store:    cart.NewStore(channel, "device-1"),
		sessions: &MockSessions{ID: "s1"},
		orders:   &MockOrders{OrderID: "o1"},
		payments: &MockPayments{},
		sheet:    &MockSheet{},
		recorder: &MockRecorder{},
	}
	require.NoError(t, f.store.SetContext(domain.CartContext{RestaurantID: "r1", CurrencySymbol: "$"}, true))
	_, err := f.store.AddLine(domain.LineCandidate{
		ItemID:    "A",
		Title:     "Burger",
		Price:     10,
		UnitPrice: domain.Float(12),
		Modifiers: []domain.ModifierSelection{{GroupID: "g1", OptionIDs: []string{"o1"}}},
	}, 2)
	require.NoError(t, err)
	_, err = f.store.AddLine(domain.LineCandidate{ItemID: "B", Title: "Tea", Price: 3}, 1)
	require.NoError(t, err)

	deps := Dependencies{
		Cart:     f.store,
		Orders:   f.orders,
		Payments: f.payments,
		Sheet:    f.sheet,
		Orphans:  f.recorder,
		Events:   f.recorder,
	}
	if channel == domain.ChannelDineIn {
		deps.Sessions = f.sessions
	}
	saga, err := NewSaga(DefaultConfig(), deps, discardLogger())
	require.NoError(t, err)
	f.saga = saga
	return f
}
