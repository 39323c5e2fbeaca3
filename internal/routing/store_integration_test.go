//go:build integration

package routing_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"voice-receptionist/internal/calls"
	"voice-receptionist/internal/numbers"
	"voice-receptionist/internal/pgtest"
	"voice-receptionist/internal/routing"
	"voice-receptionist/internal/voice"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedConnector struct{}

func (fixedConnector) Directive(callSID, tenantID, agentID string) voice.Directive {
	return voice.Directive{URL: "wss://voice.test/call", Parameters: []voice.Parameter{{Name: "callSid", Value: callSID}}}
}

func insertNumber(t *testing.T, db *sql.DB, tenantID, number string, agentID *string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	require.NoError(t, numbers.NewPostgresRepo(db).Insert(context.Background(), numbers.PhoneNumber{
		ID: id, TenantID: tenantID, Number: number, ProviderSID: "PN" + id[:8], AgentID: agentID,
		CreatedAt: now, UpdatedAt: now,
	}))
	return id
}

func callLogCount(t *testing.T, db *sql.DB, callSID string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM call_logs WHERE call_sid = $1`, callSID).Scan(&n))
	return n
}

func TestPostgres_RouteLogsOnceAndSkipsUnrouted(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()

	tenantID := pgtest.SeedTenant(t, db)
	agentID := pgtest.SeedAgent(t, db, tenantID, "Hello, thank you for calling Acme")
	numberID := insertNumber(t, db, tenantID, "+442099999999", &agentID)
	insertNumber(t, db, tenantID, "+442011111111", nil)

	r := routing.NewRouter(routing.NewPostgresStore(db), calls.NewPostgresRepo(db), fixedConnector{}, nil)
	in := routing.InboundCall{CallSID: "CA1", From: "+447700900123", To: "+442099999999", ReceivedAt: time.Unix(1700000000, 0)}

	d, err := r.Route(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, routing.OutcomeRouted, d.Outcome)
	assert.Equal(t, "Hello, thank you for calling Acme", d.Greeting)
	assert.False(t, d.Duplicate)
	assert.Equal(t, tenantID, d.CallLog.TenantID)
	require.NotNil(t, d.CallLog.AgentID)
	assert.Equal(t, agentID, *d.CallLog.AgentID)
	require.NotNil(t, d.CallLog.PhoneNumberID)
	assert.Equal(t, numberID, *d.CallLog.PhoneNumberID)
	assert.Equal(t, calls.StatusRinging, d.CallLog.Status)

	again, err := r.Route(ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, d.CallLog.ID, again.CallLog.ID)
	assert.Equal(t, 1, callLogCount(t, db, "CA1"))

	for sid, to := range map[string]string{"CA2": "+442011111111", "CA3": "+442000000000"} {
		d, err := r.Route(ctx, routing.InboundCall{CallSID: sid, From: "+447700900123", To: to})
		require.NoError(t, err)
		assert.Equal(t, routing.OutcomeUnrouted, d.Outcome, to)
		assert.Zero(t, callLogCount(t, db, sid), to)
	}
}
