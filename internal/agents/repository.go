package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-receptionist/pkg/utils"
)

type Repository interface {
	Create(ctx context.Context, a Agent) error
	List(ctx context.Context, tenantID string) ([]Summary, error)
	Get(ctx context.Context, tenantID, id string) (Agent, error)
	Update(ctx context.Context, a Agent) error
	// Delete unlinks every phone number routed to the agent and removes it in
	// one transaction. It returns how many numbers were unlinked.
	Delete(ctx context.Context, tenantID, id string, now time.Time) (int64, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const agentColumns = `a.id, a.tenant_id, a.name, a.description, a.template, a.greeting, a.voice_id, a.flow_data, a.status, a.created_at, a.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner, extra ...any) (Agent, error) {
	var (
		a    Agent
		flow []byte
	)
	dest := append([]any{
		&a.ID, &a.TenantID, &a.Name, &a.Description, &a.Template, &a.Greeting,
		&a.VoiceID, &flow, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Agent{}, err
	}
	if len(flow) > 0 {
		a.FlowData = flow
	}
	return a, nil
}

func flowParam(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (r *PostgresRepo) Create(ctx context.Context, a Agent) error {
	const q = `
INSERT INTO agents (id, tenant_id, name, description, template, greeting, voice_id, flow_data, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.TenantID, a.Name, a.Description, string(a.Template), a.Greeting, a.VoiceID,
		flowParam(a.FlowData), string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, tenantID string) ([]Summary, error) {
	const q = `
SELECT ` + agentColumns + `,
  (SELECT string_agg(p.number, ',' ORDER BY p.number) FROM phone_numbers p WHERE p.agent_id = a.id AND p.tenant_id = a.tenant_id),
  (SELECT count(*) FROM call_logs c WHERE c.agent_id = a.id AND c.tenant_id = a.tenant_id)
FROM agents a
WHERE a.tenant_id = $1
ORDER BY a.created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			numbers sql.NullString
			count   int64
		)
		a, err := scanAgent(rows, &numbers, &count)
		if err != nil {
			return nil, err
		}
		s := Summary{Agent: a, PhoneNumbers: []string{}, CallCount: count}
		if numbers.Valid && numbers.String != "" {
			s.PhoneNumbers = strings.Split(numbers.String, ",")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID, id string) (Agent, error) {
	q := `SELECT ` + agentColumns + ` FROM agents a WHERE a.id = $1 AND a.tenant_id = $2`
	a, err := scanAgent(r.db.QueryRowContext(ctx, q, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	return a, err
}

func (r *PostgresRepo) Update(ctx context.Context, a Agent) error {
	const q = `
UPDATE agents SET
  name = $3, description = $4, greeting = $5, voice_id = $6, flow_data = $7, status = $8, updated_at = $9
WHERE id = $1 AND tenant_id = $2
`
	res, err := r.db.ExecContext(ctx, q,
		a.ID, a.TenantID, a.Name, a.Description, a.Greeting, a.VoiceID,
		flowParam(a.FlowData), string(a.Status), a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, tenantID, id string, now time.Time) (int64, error) {
	var unlinked int64
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the agent so a concurrent routing update cannot link a number
		// between the unlink and the delete.
		var locked string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM agents WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id, tenantID,
		).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock agent: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE phone_numbers SET agent_id = NULL, updated_at = $3 WHERE agent_id = $1 AND tenant_id = $2`,
			id, tenantID, now,
		)
		if err != nil {
			return fmt.Errorf("unlink numbers: %w", err)
		}
		unlinked, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `DELETE FROM agents WHERE id = $1 AND tenant_id = $2`, id, tenantID); err != nil {
			return fmt.Errorf("delete agent: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return unlinked, nil
}
