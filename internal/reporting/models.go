package reporting

import (
	"errors"
	"time"
)

// Analytics is the dashboard view of a tenant's calls over a trailing period.
type Analytics struct {
	PeriodDays     int            `json:"period_days"`
	From           time.Time      `json:"from"`
	To             time.Time      `json:"to"`
	Summary        Summary        `json:"summary"`
	CallsByDay     []DayCount     `json:"calls_by_day"`
	CallsByAgent   []AgentCount   `json:"calls_by_agent"`
	CallsByOutcome []OutcomeCount `json:"calls_by_outcome"`
}

type Summary struct {
	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`
	Voicemails     int `json:"voicemails"`
	// AnswerRate is the percentage of calls that were completed or reached
	// voicemail, rounded to a whole number.
	AnswerRate         int     `json:"answer_rate"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AgentCount struct {
	AgentID   string `json:"agent_id,omitempty"`
	AgentName string `json:"agent_name"`
	Count     int    `json:"count"`
}

type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

var ErrInvalidRequest = errors.New("reporting: invalid request")
