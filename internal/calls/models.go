package calls

import (
	"errors"
	"time"
)

// CallLog is the append-only record of one inbound call attempt.
// AgentID and PhoneNumberID, when set, belong to TenantID.
type CallLog struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	AgentID       *string   `json:"agent_id"`
	PhoneNumberID *string   `json:"phone_number_id"`
	CallSID       string    `json:"call_sid"`
	CallerNumber  string    `json:"caller_number"`
	Direction     Direction `json:"direction"`
	Status        Status    `json:"status"`
	Outcome       string    `json:"outcome,omitempty"`

	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`

	// Populated by list queries only.
	AgentName    string `json:"agent_name,omitempty"`
	DialedNumber string `json:"dialed_number,omitempty"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusRinging   Status = "ringing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusVoicemail Status = "voicemail"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRinging, StatusCompleted, StatusFailed, StatusVoicemail:
		return true
	default:
		return false
	}
}

// Final reports whether s ends a call.
func (s Status) Final() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusVoicemail
}

// Completion is the terminal update applied once a call ends.
type Completion struct {
	CallSID         string
	Status          Status
	Outcome         string
	DurationSeconds int
	EndedAt         time.Time
}

var (
	ErrNotFound        = errors.New("call not found")
	ErrInvalidArgument = errors.New("invalid argument")
)
