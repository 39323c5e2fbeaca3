package audit

import (
	"context"
	"database/sql"

	"voice-receptionist/pkg/utils"
)

// PostgresRepo writes to audit_events. The table is insert-only.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events
  (id, tenant_id, type, actor_user_id, actor_role, ip_address, phone_number_id, agent_id, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	var metadata any
	if e.Metadata != "" {
		metadata = e.Metadata
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.TenantID,
		string(e.Type),
		utils.NullString(e.ActorUserID),
		utils.NullString(e.ActorRole),
		utils.NullString(e.IPAddress),
		utils.NullString(e.PhoneNumberID),
		utils.NullString(e.AgentID),
		e.Message,
		metadata,
		e.CreatedAt,
	)
	return err
}
