package models

// Outcome is the closed set of results for a join decision.
type Outcome string

const (
	// OutcomeApprove admits the requester.
	OutcomeApprove Outcome = "approve"
	// OutcomeDecline rejects the requester for the attached reason.
	OutcomeDecline Outcome = "decline"
	// OutcomeRequireBinding means the requester has no bound address. The
	// request must stay pending while the binding flow is presented; the
	// caller must neither approve nor decline.
	OutcomeRequireBinding Outcome = "require_binding"
)

// DeclineReason explains a decline outcome.
type DeclineReason string

const (
	ReasonInsufficientBalance    DeclineReason = "insufficient_balance"
	ReasonEntitlementUnavailable DeclineReason = "entitlement_unavailable"
	ReasonConfigurationError     DeclineReason = "configuration_error"
)

// Decision is the result of evaluating a pending join request.
type Decision struct {
	Outcome Outcome
	Reason  DeclineReason

	// Shareholder is the chat's bound address, set when it resolved.
	Shareholder string
	// Address is the requester's bound address, set when it resolved.
	Address string
}

func Approve(shareholder, address string) Decision {
	return Decision{Outcome: OutcomeApprove, Shareholder: shareholder, Address: address}
}

func Decline(reason DeclineReason, shareholder, address string) Decision {
	return Decision{Outcome: OutcomeDecline, Reason: reason, Shareholder: shareholder, Address: address}
}

func RequireBinding() Decision {
	return Decision{Outcome: OutcomeRequireBinding}
}
