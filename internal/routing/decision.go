package routing

import (
	"time"

	"voice-receptionist/internal/calls"
	"voice-receptionist/internal/voice"
)

// InboundCall is the provider-agnostic view of a call-setup notification.
type InboundCall struct {
	CallSID    string
	From       string
	To         string
	ReceivedAt time.Time
}

// Outcome is the terminal state of one routing attempt.
type Outcome string

const (
	// OutcomeRouted: the dialed number has an agent; a call log exists.
	OutcomeRouted Outcome = "routed"
	// OutcomeUnrouted: unknown number or a number without an agent.
	OutcomeUnrouted Outcome = "unrouted"
)

// Decision is what the webhook boundary needs to build call-control
// instructions. Connect and CallLog are set only when Outcome is routed.
type Decision struct {
	Outcome  Outcome
	Greeting string
	Connect  voice.Directive
	CallLog  calls.CallLog
	// Duplicate is true when the call log already existed for this CallSID.
	Duplicate bool
}

// Route is the routing target of a dialed number. AgentID is empty for
// numbers that are not routed.
type Route struct {
	TenantID      string
	PhoneNumberID string
	AgentID       string
	Greeting      string
}
