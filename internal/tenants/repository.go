package tenants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voice-receptionist/pkg/utils"
)

// Repository persists tenants and their users.
type Repository interface {
	// CreateWithOwner inserts the tenant and its first user atomically.
	CreateWithOwner(ctx context.Context, t Tenant, owner User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	TenantByID(ctx context.Context, id string) (Tenant, error)
	// ApplySettings writes every non-nil field of u in one transaction.
	ApplySettings(ctx context.Context, u SettingsUpdate) error
}

// SettingsUpdate is a partial update of a user and their tenant.
type SettingsUpdate struct {
	TenantID     string
	UserID       string
	Name         *string
	Image        *string
	PasswordHash *string
	TenantName   *string
	Now          time.Time
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) CreateWithOwner(ctx context.Context, t Tenant, owner User) error {
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const insTenant = `
INSERT INTO tenants (id, name, slug, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
`
		if _, err := tx.ExecContext(ctx, insTenant, t.ID, t.Name, t.Slug, t.CreatedAt, t.UpdatedAt); err != nil {
			return fmt.Errorf("insert tenant: %w", err)
		}

		const insUser = `
INSERT INTO users (id, tenant_id, email, name, image, password_hash, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
		if _, err := tx.ExecContext(ctx, insUser,
			owner.ID, owner.TenantID, owner.Email, owner.Name, utils.NullString(owner.Image),
			owner.PasswordHash, owner.Role, owner.CreatedAt, owner.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if utils.IsUniqueViolation(err, "") {
		return ErrConflict
	}
	return err
}

const userColumns = `id, tenant_id, email, name, COALESCE(image, ''), password_hash, role, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Image, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *PostgresRepo) UserByID(ctx context.Context, id string) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PostgresRepo) TenantByID(ctx context.Context, id string) (Tenant, error) {
	const q = `SELECT id, name, slug, created_at, updated_at FROM tenants WHERE id = $1`
	var t Tenant
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Tenant{}, ErrNotFound
	}
	return t, err
}

func (r *PostgresRepo) ApplySettings(ctx context.Context, u SettingsUpdate) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const updUser = `
UPDATE users SET
  name = COALESCE($3, name),
  image = COALESCE($4, image),
  password_hash = COALESCE($5, password_hash),
  updated_at = $6
WHERE id = $1 AND tenant_id = $2
`
		res, err := tx.ExecContext(ctx, updUser,
			u.UserID, u.TenantID,
			utils.NullStringPtr(u.Name), utils.NullStringPtr(u.Image), utils.NullStringPtr(u.PasswordHash),
			u.Now,
		)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		if u.TenantName == nil {
			return nil
		}
		const updTenant = `UPDATE tenants SET name = $2, updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updTenant, u.TenantID, *u.TenantName, u.Now); err != nil {
			return fmt.Errorf("update tenant: %w", err)
		}
		return nil
	})
}
