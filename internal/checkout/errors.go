package checkout

import "errors"

var (
	ErrCheckoutInFlight  = errors.New("a checkout is already in flight")
	ErrMissingAddress    = errors.New("delivery checkout needs an address")
	ErrMissingRestaurant = errors.New("cart has no restaurant context")
	ErrMissingOrderID    = errors.New("order service returned no order id")
	ErrPaymentCanceled   = errors.New("payment canceled by user")
	ErrPaymentFailed     = errors.New("payment failed")
)

const (
	msgOrderFailed   = "We couldn't place your order. Please try again."
	msgPaymentFailed = "Payment didn't go through. Your order was canceled."
	// used when the cancel itself failed and the order may still be open
	msgPaymentPending = "Payment didn't go through. We couldn't cancel your order yet; please check with staff before ordering again."
)
