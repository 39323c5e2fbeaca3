package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voice-receptionist/internal/agents"
	"voice-receptionist/internal/calls"
	"voice-receptionist/internal/voice"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store resolves a dialed number to its tenant and agent in one read.
type Store interface {
	LookupByNumber(ctx context.Context, number string) (Route, bool, error)
}

// CallRecorder persists the ringing call log.
type CallRecorder interface {
	CreateInbound(ctx context.Context, c calls.CallLog) (calls.CallLog, bool, error)
}

// Connector builds the voice AI hand-off for a routed call.
type Connector interface {
	Directive(callSID, tenantID, agentID string) voice.Directive
}

var ErrMalformedCall = errors.New("routing: malformed inbound call")

// Router turns an inbound call notification into a routing decision. It does
// at most one store read and one store write per call.
type Router struct {
	store     Store
	recorder  CallRecorder
	connector Connector
	log       *zap.Logger
	clock     func() time.Time
}

func NewRouter(store Store, recorder CallRecorder, connector Connector, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{store: store, recorder: recorder, connector: connector, log: log, clock: time.Now}
}

func (r *Router) Route(ctx context.Context, in InboundCall) (Decision, error) {
	if in.CallSID == "" || in.To == "" {
		return Decision{}, ErrMalformedCall
	}

	route, found, err := r.store.LookupByNumber(ctx, in.To)
	if err != nil {
		return Decision{}, fmt.Errorf("lookup %s: %w", in.To, err)
	}
	if !found || route.AgentID == "" {
		// No tenant to attach a log to, so nothing is written.
		r.log.Info("inbound call unrouted",
			zap.String("call_sid", in.CallSID),
			zap.String("to", in.To),
			zap.Bool("number_known", found),
		)
		return Decision{Outcome: OutcomeUnrouted}, nil
	}

	startedAt := in.ReceivedAt
	if startedAt.IsZero() {
		startedAt = r.clock()
	}
	agentID, numberID := route.AgentID, route.PhoneNumberID
	rec, created, err := r.recorder.CreateInbound(ctx, calls.CallLog{
		ID:            uuid.NewString(),
		TenantID:      route.TenantID,
		AgentID:       &agentID,
		PhoneNumberID: &numberID,
		CallSID:       in.CallSID,
		CallerNumber:  in.From,
		Direction:     calls.DirectionInbound,
		Status:        calls.StatusRinging,
		StartedAt:     startedAt.UTC(),
	})
	if err != nil {
		return Decision{}, fmt.Errorf("record call %s: %w", in.CallSID, err)
	}
	if !created {
		r.log.Warn("duplicate inbound notification",
			zap.String("call_sid", in.CallSID),
			zap.String("tenant_id", route.TenantID),
		)
	}

	return Decision{
		Outcome:   OutcomeRouted,
		Greeting:  agents.GreetingOrDefault(route.Greeting),
		Connect:   r.connector.Directive(in.CallSID, route.TenantID, route.AgentID),
		CallLog:   rec,
		Duplicate: !created,
	}, nil
}
