package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_order/internal/domain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/fjod/go_order/internal/checkout")

// Saga drives one cart through checkout. Steps run strictly in sequence;
// once an order exists every failure is compensated before the attempt
// ends in Failed.
type Saga struct {
	cart        CartHold
	sessions    SessionOpener
	orders      OrderService
	payments    PaymentGateway
	sheet       PaymentSheet
	events      EventRecorder
	compensator *Compensator
	cfg         Config
	log         *slog.Logger

	inFlight atomic.Bool

	mu       sync.Mutex
	stage    domain.CheckoutStage
	selected domain.PaymentMethod
	// sessionID belongs to sessionRestaurant and is never reused elsewhere.
	sessionID         string
	sessionRestaurant string
	last              *Result
}

func NewSaga(cfg Config, deps Dependencies, log *slog.Logger) (*Saga, error) {
	if deps.Cart == nil || deps.Orders == nil {
		return nil, errors.New("checkout saga needs a cart and an order service")
	}
	if !cfg.DefaultPaymentMethod.Valid() {
		return nil, fmt.Errorf("default payment method: %w: %q", domain.ErrUnknownPayment, cfg.DefaultPaymentMethod)
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = DefaultConfig().RecordTimeout
	}

	log = log.With("channel", string(deps.Cart.Channel()))
	return &Saga{
		cart:        deps.Cart,
		sessions:    deps.Sessions,
		orders:      deps.Orders,
		payments:    deps.Payments,
		sheet:       deps.Sheet,
		events:      deps.Events,
		compensator: NewCompensator(deps.Orders, deps.Orphans, cfg.CompensationTimeout, log),
		cfg:         cfg,
		log:         log,
		stage:       domain.StageIdle,
	}, nil
}

// SelectPaymentMethod records the method currently shown in the UI.
func (s *Saga) SelectPaymentMethod(m domain.PaymentMethod) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownPayment, m)
	}
	s.mu.Lock()
	s.selected = m
	s.mu.Unlock()
	return nil
}

// InFlight is the UI's "submitting" flag.
func (s *Saga) InFlight() bool {
	return s.inFlight.Load()
}

// SessionID is the dine-in session the next order joins, if any.
func (s *Saga) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ForgetSession drops the remembered session, e.g. after the tab is closed.
func (s *Saga) ForgetSession() {
	s.mu.Lock()
	s.sessionID = ""
	s.sessionRestaurant = ""
	s.mu.Unlock()
}

func (s *Saga) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Stage:         s.stage,
		InFlight:      s.inFlight.Load(),
		SessionID:     s.sessionID,
		PaymentMethod: s.methodLocked(nil),
	}
	if s.last != nil {
		last := *s.last
		st.Last = &last
	}
	return st
}

// Start runs one checkout attempt to a terminal stage. The error is non-nil
// only when the attempt was refused before any network call; every failure
// after that is reported through Result.
func (s *Saga) Start(ctx context.Context, req Request) (*Result, error) {
	method, err := s.resolveMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	channel := s.cart.Channel()
	if channel == domain.ChannelDelivery && strings.TrimSpace(req.AddressID) == "" {
		return nil, ErrMissingAddress
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInFlight
	}
	defer s.inFlight.Store(false)

	snapshot, err := s.cart.BeginCheckout()
	if err != nil {
		return nil, err
	}
	confirmed := false
	defer func() { s.cart.EndCheckout(confirmed) }()
	if snapshot.Context.RestaurantID == "" {
		return nil, ErrMissingRestaurant
	}

	s.reset()
	att := &attempt{
		channel:        channel,
		method:         method,
		snapshot:       snapshot,
		req:            req,
		idempotencyKey: uuid.NewString(),
	}
	ctx, span := tracer.Start(ctx, "checkout.attempt")
	defer span.End()
	span.SetAttributes(
		attribute.String("checkout.channel", string(channel)),
		attribute.String("checkout.payment_method", method.String()),
		attribute.String("checkout.idempotency_key", att.idempotencyKey),
	)

	log := s.log.With("attempt", att.idempotencyKey, "payment_method", method.String())
	log.InfoContext(ctx, "checkout started", "lines", len(snapshot.Lines), "subtotal", snapshot.Subtotal())

	res := s.run(ctx, att, log)
	span.SetAttributes(attribute.String("checkout.stage", res.Stage.String()), attribute.String("order.id", res.OrderID))
	if res.Stage == domain.StageFailed && res.Err != nil {
		span.SetStatus(codes.Error, res.Err.Error())
	}

	confirmed = res.Stage == domain.StageConfirmed
	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	s.reset()

	log.InfoContext(ctx, "checkout finished", "stage", res.Stage.String(), "order_id", res.OrderID, "compensated", res.Compensated)
	return res, nil
}

// attempt is the working state of one Start call.
type attempt struct {
	channel        domain.Channel
	method         domain.PaymentMethod
	snapshot       domain.CartState
	req            Request
	idempotencyKey string
	sessionID      string
	orderID        string
}

func (a *attempt) result(stage domain.CheckoutStage) *Result {
	return &Result{
		Stage:         stage,
		OrderID:       a.orderID,
		SessionID:     a.sessionID,
		PaymentMethod: a.method,
	}
}

func (s *Saga) run(ctx context.Context, att *attempt, log *slog.Logger) *Result {
	if att.channel == domain.ChannelDineIn {
		if err := s.ensureSession(ctx, att, log); err != nil {
			return s.fail(ctx, att, err, msgOrderFailed, log)
		}
	}

	if err := s.createOrder(ctx, att, log); err != nil {
		return s.fail(ctx, att, err, msgOrderFailed, log)
	}

	if !att.method.PaysOnline() {
		return s.confirm(ctx, att, log)
	}

	intent, err := s.createPaymentIntent(ctx, att)
	if err != nil {
		return s.compensate(ctx, att, err, msgPaymentFailed, false, log)
	}

	outcome, err := s.presentPayment(ctx, att, *intent)
	switch {
	case err != nil:
		return s.compensate(ctx, att, err, msgPaymentFailed, false, log)
	case outcome == domain.SheetSucceeded:
		return s.confirm(ctx, att, log)
	case outcome == domain.SheetCanceled:
		return s.compensate(ctx, att, ErrPaymentCanceled, "", true, log)
	default:
		return s.compensate(ctx, att, fmt.Errorf("%w: sheet outcome %q", ErrPaymentFailed, outcome), msgPaymentFailed, false, log)
	}
}

func (s *Saga) resolveMethod(override *domain.PaymentMethod) (domain.PaymentMethod, error) {
	if override != nil && !override.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownPayment, *override)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.methodLocked(override), nil
}

func (s *Saga) methodLocked(override *domain.PaymentMethod) domain.PaymentMethod {
	switch {
	case override != nil:
		return *override
	case s.selected != "":
		return s.selected
	default:
		return s.cfg.DefaultPaymentMethod
	}
}

// reset returns a terminal saga to Idle. The outcome stays in last.
func (s *Saga) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage.IsTerminal() {
		s.stage = domain.StageIdle
	}
}

func (s *Saga) transition(next domain.CheckoutStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !domain.CanTransitionTo(s.stage, next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, s.stage, next)
	}
	s.stage = next
	return nil
}

// forceStage is used only to end an attempt whose transition table was
// violated; the attempt still has to terminate.
func (s *Saga) forceStage(stage domain.CheckoutStage) {
	s.mu.Lock()
	s.stage = stage
	s.mu.Unlock()
}
