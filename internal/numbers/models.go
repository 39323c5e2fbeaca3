package numbers

import (
	"errors"
	"time"
)

// PhoneNumber is a provider-leased number owned by one tenant. AgentID, when
// set, names an agent of the same tenant; nil means the number is unrouted.
type PhoneNumber struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Number       string    `json:"number"`
	ProviderSID  string    `json:"provider_sid"`
	AgentID      *string   `json:"agent_id"`
	FriendlyName string    `json:"friendly_name"`
	Locality     string    `json:"locality,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Populated by List only.
	AgentName string `json:"agent_name,omitempty"`
}

// Routed reports whether calls to the number reach an agent.
func (p PhoneNumber) Routed() bool { return p.AgentID != nil && *p.AgentID != "" }

var (
	ErrNotFound        = errors.New("phone number not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("phone number already owned or being purchased")
	// ErrCrossTenant rejects links between a number and an agent of another
	// tenant, or an agent that does not exist.
	ErrCrossTenant = errors.New("agent does not belong to this tenant")
	// ErrProviderRelease means the local record is gone but the provider kept
	// the lease.
	ErrProviderRelease = errors.New("provider release failed")
)
