package audit

import "time"

// Event is an immutable, append-only record of a tenant configuration change.
// Events are never updated or deleted. TenantID is required.
type Event struct {
	ID       string    `json:"id"`
	TenantID string    `json:"tenant_id"`
	Type     EventType `json:"type"`

	ActorUserID string `json:"actor_user_id,omitempty"`
	ActorRole   string `json:"actor_role,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`

	PhoneNumberID string `json:"phone_number_id,omitempty"`
	AgentID       string `json:"agent_id,omitempty"`

	Message string `json:"message,omitempty"`
	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventNumberPurchased      EventType = "number.purchased"
	EventNumberReleased       EventType = "number.released"
	EventNumberRoutingChanged EventType = "number.routing_changed"
	EventAgentDeleted         EventType = "agent.deleted"
)
