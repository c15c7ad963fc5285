package domain

import "errors"

var (
	ErrMissingItemID      = errors.New("cart line has no item id")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrStaleCartState     = errors.New("persisted cart state is stale")
	ErrIllegalTransition  = errors.New("illegal transition of checkout stage")
	ErrUnknownPayment     = errors.New("unknown payment method")
	ErrUnknownModifier    = errors.New("unknown modifier group or option")
	ErrModifierSelection  = errors.New("modifier selection out of bounds")
	ErrMissingClientToken = errors.New("payment intent has no client secret")
)

// UserFacing is implemented by errors that carry a message meant for the
// end user, typically one provided by the backend.
type UserFacing interface {
	UserMessage() string
}

// UserMessage returns the first user-facing message in err's chain, or
// fallback when there is none.
func UserMessage(err error, fallback string) string {
	var uf UserFacing
	if errors.As(err, &uf) {
		if msg := uf.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
