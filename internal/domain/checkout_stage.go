package domain

type CheckoutStage string

const (
	StageIdle                  CheckoutStage = "IDLE"
	StageSessionOpening        CheckoutStage = "SESSION_OPENING"
	StageOrderCreating         CheckoutStage = "ORDER_CREATING"
	StagePaymentIntentCreating CheckoutStage = "PAYMENT_INTENT_CREATING"
	StagePaymentPresenting     CheckoutStage = "PAYMENT_PRESENTING"
	StageConfirmed             CheckoutStage = "CONFIRMED"
	StageCompensating          CheckoutStage = "COMPENSATING"
	StageFailed                CheckoutStage = "FAILED"
)

var transitions = map[CheckoutStage][]CheckoutStage{
	StageIdle:                  {StageSessionOpening, StageOrderCreating, StageFailed},
	StageSessionOpening:        {StageOrderCreating, StageFailed},
	StageOrderCreating:         {StageConfirmed, StagePaymentIntentCreating, StageFailed},
	StagePaymentIntentCreating: {StagePaymentPresenting, StageCompensating},
	StagePaymentPresenting:     {StageConfirmed, StageCompensating},
	StageCompensating:          {StageFailed},
	StageConfirmed:             {StageIdle},
	StageFailed:                {StageIdle},
}

// CanTransitionTo reports whether the saga may move from s to next.
func CanTransitionTo(s, next CheckoutStage) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s CheckoutStage) IsTerminal() bool {
	return s == StageConfirmed || s == StageFailed
}

// String representation (for logging)
func (s CheckoutStage) String() string {
	return string(s)
}
