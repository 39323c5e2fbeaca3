package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voice-receptionist/pkg/utils"
)

type Repository interface {
	// CreateInbound inserts c unless a log with the same CallSID exists. When
	// it does, the existing row is returned with created=false.
	CreateInbound(ctx context.Context, c CallLog) (CallLog, bool, error)
	// Complete moves a ringing call to a final status. Calls already final are
	// left untouched and report ErrNotFound.
	Complete(ctx context.Context, c Completion) error
	List(ctx context.Context, tenantID string, f ListFilter) ([]CallLog, int64, error)
	// Between returns every call started in [from, to) for the tenant.
	Between(ctx context.Context, tenantID string, from, to time.Time) ([]CallLog, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const logColumns = `id, tenant_id, agent_id, phone_number_id, call_sid, caller_number, direction, status, COALESCE(outcome, ''), duration_seconds, started_at, ended_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(row scanner, extra ...any) (CallLog, error) {
	var (
		c        CallLog
		agentID  sql.NullString
		numberID sql.NullString
		duration sql.NullInt64
		endedAt  sql.NullTime
	)
	dest := append([]any{
		&c.ID, &c.TenantID, &agentID, &numberID, &c.CallSID, &c.CallerNumber,
		&c.Direction, &c.Status, &c.Outcome, &duration, &c.StartedAt, &endedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return CallLog{}, err
	}
	c.AgentID = utils.StringPtr(agentID)
	c.PhoneNumberID = utils.StringPtr(numberID)
	if duration.Valid {
		d := int(duration.Int64)
		c.DurationSeconds = &d
	}
	if endedAt.Valid {
		t := endedAt.Time
		c.EndedAt = &t
	}
	return c, nil
}

// CreateInbound is a single round trip: the insert and the duplicate lookup
// share one statement.
func (r *PostgresRepo) CreateInbound(ctx context.Context, c CallLog) (CallLog, bool, error) {
	const q = `
WITH ins AS (
  INSERT INTO call_logs (id, tenant_id, agent_id, phone_number_id, call_sid, caller_number, direction, status, started_at, created_at)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
  ON CONFLICT (call_sid) DO NOTHING
  RETURNING ` + logColumns + `
)
SELECT ` + logColumns + `, true FROM ins
UNION ALL
SELECT ` + logColumns + `, false FROM call_logs WHERE call_sid = $5 AND NOT EXISTS (SELECT 1 FROM ins)
`
	var created bool
	out, err := scanLog(r.db.QueryRowContext(ctx, q,
		c.ID, c.TenantID, utils.NullStringPtr(c.AgentID), utils.NullStringPtr(c.PhoneNumberID),
		c.CallSID, c.CallerNumber, string(c.Direction), string(c.Status), c.StartedAt,
	), &created)
	if errors.Is(err, sql.ErrNoRows) {
		// A concurrent duplicate committed after this statement's snapshot.
		return CallLog{CallSID: c.CallSID, TenantID: c.TenantID}, false, nil
	}
	if err != nil {
		return CallLog{}, false, err
	}
	return out, created, nil
}

func (r *PostgresRepo) Complete(ctx context.Context, c Completion) error {
	const q = `
UPDATE call_logs
SET status = $2, outcome = COALESCE(NULLIF($3, ''), outcome), duration_seconds = $4, ended_at = $5
WHERE call_sid = $1 AND status = 'ringing'
`
	res, err := r.db.ExecContext(ctx, q, c.CallSID, string(c.Status), c.Outcome, c.DurationSeconds, c.EndedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, tenantID string, f ListFilter) ([]CallLog, int64, error) {
	const where = `
WHERE c.tenant_id = $1
  AND ($2 = '' OR c.agent_id::text = $2)
  AND ($3 = '' OR c.status = $3)
`
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM call_logs c`+where, tenantID, f.AgentID, string(f.Status),
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `
SELECT c.id, c.tenant_id, c.agent_id, c.phone_number_id, c.call_sid, c.caller_number, c.direction, c.status,
  COALESCE(c.outcome, ''), c.duration_seconds, c.started_at, c.ended_at,
  COALESCE(a.name, ''), COALESCE(p.number, '')
FROM call_logs c
LEFT JOIN agents a ON a.id = c.agent_id
LEFT JOIN phone_numbers p ON p.id = c.phone_number_id
` + where + `
ORDER BY c.started_at DESC
LIMIT $4 OFFSET $5
`
	rows, err := r.db.QueryContext(ctx, q, tenantID, f.AgentID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []CallLog{}
	for rows.Next() {
		var agentName, dialed string
		c, err := scanLog(rows, &agentName, &dialed)
		if err != nil {
			return nil, 0, err
		}
		c.AgentName, c.DialedNumber = agentName, dialed
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) Between(ctx context.Context, tenantID string, from, to time.Time) ([]CallLog, error) {
	q := `
SELECT ` + logColumns + `
FROM call_logs
WHERE tenant_id = $1 AND started_at >= $2 AND started_at < $3
ORDER BY started_at
`
	rows, err := r.db.QueryContext(ctx, q, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CallLog{}
	for rows.Next() {
		c, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
