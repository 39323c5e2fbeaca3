package numbers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voice-receptionist/pkg/utils"
)

type Repository interface {
	// Insert stores a purchased number. It fails with ErrCrossTenant when the
	// agent is set but not owned by the number's tenant.
	Insert(ctx context.Context, n PhoneNumber) error
	List(ctx context.Context, tenantID string) ([]PhoneNumber, error)
	Get(ctx context.Context, tenantID, id string) (PhoneNumber, error)
	// SetAgent re-routes a number. A nil agentID unroutes it.
	SetAgent(ctx context.Context, tenantID, id string, agentID *string, now time.Time) error
	// Delete removes the number and returns the deleted row.
	Delete(ctx context.Context, tenantID, id string) (PhoneNumber, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const (
	numberColumns = `p.id, p.tenant_id, p.number, p.provider_sid, p.agent_id, p.friendly_name, p.locality, p.created_at, p.updated_at`

	constraintNumber      = "phone_numbers_number_key"
	constraintProviderSID = "phone_numbers_provider_sid_key"
	constraintAgentFK     = "phone_numbers_agent_fk"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanNumber(row scanner, extra ...any) (PhoneNumber, error) {
	var (
		n     PhoneNumber
		agent sql.NullString
	)
	dest := append([]any{
		&n.ID, &n.TenantID, &n.Number, &n.ProviderSID, &agent,
		&n.FriendlyName, &n.Locality, &n.CreatedAt, &n.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return PhoneNumber{}, err
	}
	n.AgentID = utils.StringPtr(agent)
	return n, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, n PhoneNumber) error {
	// The agent ownership check and the insert are one statement, so a
	// concurrent agent delete cannot slip in between.
	const q = `
INSERT INTO phone_numbers (id, tenant_id, number, provider_sid, agent_id, friendly_name, locality, created_at, updated_at)
SELECT $1, $2, $3, $4, $5::uuid, $6, $7, $8, $9
WHERE $5::uuid IS NULL
   OR EXISTS (SELECT 1 FROM agents a WHERE a.id = $5::uuid AND a.tenant_id = $2)
`
	res, err := r.db.ExecContext(ctx, q,
		n.ID, n.TenantID, n.Number, n.ProviderSID, utils.NullStringPtr(n.AgentID),
		n.FriendlyName, n.Locality, n.CreatedAt, n.UpdatedAt,
	)
	switch {
	case utils.IsUniqueViolation(err, constraintNumber), utils.IsUniqueViolation(err, constraintProviderSID):
		return ErrConflict
	case utils.IsForeignKeyViolation(err, constraintAgentFK):
		return ErrCrossTenant
	case err != nil:
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrCrossTenant
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, tenantID string) ([]PhoneNumber, error) {
	const q = `
SELECT ` + numberColumns + `, COALESCE(a.name, '')
FROM phone_numbers p
LEFT JOIN agents a ON a.id = p.agent_id AND a.tenant_id = p.tenant_id
WHERE p.tenant_id = $1
ORDER BY p.created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PhoneNumber{}
	for rows.Next() {
		var agentName string
		n, err := scanNumber(rows, &agentName)
		if err != nil {
			return nil, err
		}
		n.AgentName = agentName
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID, id string) (PhoneNumber, error) {
	q := `SELECT ` + numberColumns + ` FROM phone_numbers p WHERE p.id = $1 AND p.tenant_id = $2`
	n, err := scanNumber(r.db.QueryRowContext(ctx, q, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneNumber{}, ErrNotFound
	}
	return n, err
}

func (r *PostgresRepo) SetAgent(ctx context.Context, tenantID, id string, agentID *string, now time.Time) error {
	const q = `
UPDATE phone_numbers p SET agent_id = $3::uuid, updated_at = $4
WHERE p.id = $1 AND p.tenant_id = $2
  AND ($3::uuid IS NULL OR EXISTS (SELECT 1 FROM agents a WHERE a.id = $3::uuid AND a.tenant_id = $2))
`
	res, err := r.db.ExecContext(ctx, q, id, tenantID, utils.NullStringPtr(agentID), now)
	if utils.IsForeignKeyViolation(err, constraintAgentFK) {
		return ErrCrossTenant
	}
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return nil
	}

	// Nothing changed: either the number is not ours or the agent is not.
	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM phone_numbers WHERE id = $1 AND tenant_id = $2)`, id, tenantID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrCrossTenant
}

func (r *PostgresRepo) Delete(ctx context.Context, tenantID, id string) (PhoneNumber, error) {
	q := `DELETE FROM phone_numbers p WHERE p.id = $1 AND p.tenant_id = $2 RETURNING ` + numberColumns
	n, err := scanNumber(r.db.QueryRowContext(ctx, q, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneNumber{}, ErrNotFound
	}
	return n, err
}
