package services

import "storefront-service/models"

// SignInPath is where unauthenticated visitors are sent.
const SignInPath = "/account"

type GateOutcome string

const (
	GateSuspend  GateOutcome = "suspend"
	GateRedirect GateOutcome = "redirect"
	GateAllow    GateOutcome = "allow"
)

type GateDecision struct {
	Outcome    GateOutcome
	RedirectTo string
	From       string
}

// SessionView is the part of AccountSession the gate reads.
type SessionView interface {
	AuthReady() bool
	Account() *models.Account
}

// EvaluateAccess decides whether path may be served. An unresolved session is
// never treated as signed out.
func EvaluateAccess(session SessionView, path string) GateDecision {
	if !session.AuthReady() {
		return GateDecision{Outcome: GateSuspend}
	}
	if session.Account() == nil {
		return GateDecision{Outcome: GateRedirect, RedirectTo: SignInPath, From: path}
	}
	return GateDecision{Outcome: GateAllow}
}
