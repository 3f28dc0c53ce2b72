package models

type CheckoutState string

const (
	CheckoutIdle               CheckoutState = "idle"
	CheckoutLoadingBalance     CheckoutState = "loading_balance"
	CheckoutAwaitingCredential CheckoutState = "awaiting_credential"
	CheckoutValidating         CheckoutState = "validating"
	CheckoutCommitted          CheckoutState = "committed"
	CheckoutInsufficientFunds  CheckoutState = "insufficient_funds"
	CheckoutError              CheckoutState = "error"
)

// CheckoutSnapshot is a point-in-time view of a checkout orchestrator.
type CheckoutSnapshot struct {
	State         CheckoutState `json:"state"`
	AttemptID     uint64        `json:"attempt_id"`
	OrderID       string        `json:"order_id,omitempty"`
	BalanceCents  int64         `json:"balance_cents"`
	RequiredCents int64         `json:"required_cents"`
	Reason        string        `json:"reason,omitempty"`
	Redirect      string        `json:"redirect,omitempty"`
	LastOrder     *Order        `json:"last_order,omitempty"`
}
