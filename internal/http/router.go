package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_order/internal/domain"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter wires both channels under /api/v1/{scope}. Checkout routes sit
// outside the request timeout since an attempt may wait on the payment
// sheet; CheckoutHandler bounds them itself.
func NewRouter(cfg RouterConfig, carts *CartHandler, checkouts *CheckoutHandler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(log))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dine-in/tab", checkouts.GetTab)

		r.Route("/{scope}", func(r chi.Router) {
			r.Use(requireScope)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(cfg.RequestTimeout))
				r.Get("/cart", carts.GetCart)
				r.Delete("/cart", carts.ClearCart)
				r.Put("/cart/context", carts.SetContext)
				r.Post("/cart/items", carts.AddItem)
				r.Delete("/cart/items", carts.RemoveItem)
				r.Post("/cart/items/menu", carts.AddMenuItem)
				r.Post("/cart/items/decrement", carts.DecrementItem)
				r.Get("/checkout/status", checkouts.GetStatus)
				r.Put("/checkout/payment-method", checkouts.SelectPaymentMethod)
			})
			r.Post("/checkout", checkouts.StartCheckout)
		})
	})

	return otelhttp.NewHandler(r, "ordering-api")
}

// requireScope rejects anything but a known channel before any handler runs.
func requireScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !channelFromRequest(r).Valid() {
			respondError(w, http.StatusNotFound, "unknown_scope", "scope must be dine-in or delivery")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func channelFromRequest(r *http.Request) domain.Channel {
	return domain.Channel(chi.URLParam(r, "scope"))
}
