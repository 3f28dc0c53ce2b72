package services

// User-facing messages. Controllers return these verbatim.
const (
	MsgRegisterRequired   = "Name, email, session ID, and password are required."
	MsgCredentialFormat   = "Session ID must be 66 hexadecimal characters."
	MsgCredentialMismatch = "Session ID is invalid. Please use the one provided."
	MsgPasswordLength     = "Password must be at least 8 characters."
	MsgAccountExists      = "Account already exists. Please log in with your password."
	MsgLoginRequired      = "Email and password are required."
	MsgInvalidLogin       = "Invalid email or password."
	MsgAccountUnavailable = "We couldn't reach the account service. Please try again."

	MsgCartEmpty           = "Your cart is empty."
	MsgSignInRequired      = "Sign in to check out."
	MsgCheckoutInProgress  = "A checkout is already in progress."
	MsgCheckoutCommitting  = "Your order is being placed and can no longer be cancelled."
	MsgCheckoutNotStarted  = "Start checkout before submitting a session ID."
	MsgCheckoutRestarted   = "This checkout was cancelled or restarted."
	MsgInsufficientFunds   = "Your balance does not cover this order. Please add balance to continue."
	MsgVerifierUnavailable = "We couldn't verify your session ID right now. Please try again."
	MsgBalanceUnavailable  = "We couldn't reach the balance service. Please try again."
	MsgOrderSaveFailed     = "We couldn't save your order. Your cart is unchanged; please try again."
	MsgOrdersUnavailable   = "We couldn't load your orders. Please try again."

	MsgNoRecentOrder = "No recent order"
)
