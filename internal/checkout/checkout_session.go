package checkout

import (
	"context"
	"log/slog"

	"github.com/fjod/go_order/internal/domain"
)

// ensureSession joins the session known for the cart's restaurant or opens
// one. A failed open is not fatal: the order is placed without a session.
func (s *Saga) ensureSession(ctx context.Context, att *attempt, log *slog.Logger) error {
	restaurantID := att.snapshot.Context.RestaurantID
	if att.req.SessionID != "" {
		att.sessionID = att.req.SessionID
		s.rememberSession(restaurantID, att.sessionID)
		return nil
	}
	if known := s.sessionFor(restaurantID); known != "" {
		att.sessionID = known
		return nil
	}
	if s.sessions == nil {
		return nil
	}

	if err := s.transition(domain.StageSessionOpening); err != nil {
		return err
	}

	id, err := s.sessions.OpenSession(ctx, restaurantID, att.req.TableID, att.req.ReservationID)
	if err != nil {
		log.WarnContext(ctx, "session open failed, ordering without a session", "error", err)
		return nil
	}

	att.sessionID = id
	s.rememberSession(restaurantID, id)
	log.InfoContext(ctx, "session opened", "session_id", id)
	return nil
}

func (s *Saga) rememberSession(restaurantID, id string) {
	s.mu.Lock()
	s.sessionID = id
	s.sessionRestaurant = restaurantID
	s.mu.Unlock()
}

// sessionFor returns the remembered session if it was opened at
// restaurantID. A session from another restaurant is dropped.
func (s *Saga) sessionFor(restaurantID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionRestaurant != restaurantID {
		s.sessionID = ""
		s.sessionRestaurant = ""
	}
	return s.sessionID
}
