package agents

import (
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusActive
}

type Template string

const (
	TemplateRealEstate Template = "real_estate"
	TemplateRestaurant Template = "restaurant"
	TemplateHealthcare Template = "healthcare"
	TemplateCustom     Template = "custom"
)

func (t Template) Valid() bool {
	switch t {
	case TemplateRealEstate, TemplateRestaurant, TemplateHealthcare, TemplateCustom:
		return true
	default:
		return false
	}
}

// DefaultGreeting is spoken when an agent has no greeting of its own.
const DefaultGreeting = "Hello, how can I help you today?"

// Agent is a configured voice persona owned by one tenant.
type Agent struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Template    Template        `json:"template"`
	Greeting    string          `json:"greeting"`
	VoiceID     string          `json:"voice_id"`
	FlowData    json.RawMessage `json:"flow_data,omitempty"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// GreetingOrDefault returns the greeting to speak for this agent.
func (a Agent) GreetingOrDefault() string {
	return GreetingOrDefault(a.Greeting)
}

func GreetingOrDefault(greeting string) string {
	if greeting == "" {
		return DefaultGreeting
	}
	return greeting
}

// Summary is an agent in list views, with its routed numbers and call volume.
type Summary struct {
	Agent
	PhoneNumbers []string `json:"phone_numbers"`
	CallCount    int64    `json:"call_count"`
}

var (
	ErrNotFound        = errors.New("agent not found")
	ErrInvalidArgument = errors.New("invalid argument")
)
