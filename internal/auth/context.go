package auth

import (
	"context"
	"errors"
)

// Identity is the authenticated caller, validated once at the HTTP boundary.
type Identity struct {
	UserID   string
	TenantID string
	Role     string
}

var ErrNoIdentity = errors.New("identity not in context")

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity stored by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

func TenantID(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil {
		return "", err
	}
	if id.TenantID == "" {
		return "", errors.New("tenant_id not in context")
	}
	return id.TenantID, nil
}
