package domain

type CheckoutStatus string

const (
	CheckoutStatusInitiated CheckoutStatus = "INITIATED"
	CheckoutStatusHandedOff CheckoutStatus = "HANDED_OFF"
	CheckoutStatusRejected  CheckoutStatus = "REJECTED"
	CheckoutStatusFailed    CheckoutStatus = "FAILED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusHandedOff
}

// Retryable reports whether a new attempt may reopen a session in this status.
func (s CheckoutStatus) Retryable() bool {
	return s == CheckoutStatusRejected || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusInitiated: {CheckoutStatusHandedOff, CheckoutStatusRejected, CheckoutStatusFailed},
	CheckoutStatusRejected:  {CheckoutStatusInitiated},
	CheckoutStatusFailed:    {CheckoutStatusInitiated},
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
