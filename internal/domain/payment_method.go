package domain

import (
	"fmt"
	"strings"
)

type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "card"
	PaymentCash           PaymentMethod = "cash"
	PaymentCardOnDelivery PaymentMethod = "card_on_delivery"
	PaymentPayAtVenue     PaymentMethod = "pay_at_venue"
)

// ParsePaymentMethod accepts the wire names, case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPayment, s)
	}
	return m, nil
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentCash, PaymentCardOnDelivery, PaymentPayAtVenue:
		return true
	}
	return false
}

// PaysOnline reports whether the method goes through the payment gateway.
// Card on delivery is settled by the courier, not online.
func (m PaymentMethod) PaysOnline() bool {
	return m == PaymentCard
}

func (m PaymentMethod) String() string {
	return string(m)
}
