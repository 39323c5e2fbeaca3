//go:build integration

package numbers

import (
	"context"
	"testing"
	"time"

	"voice-receptionist/internal/agents"
	"voice-receptionist/internal/pgtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepo_SameTenantLinks(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	repo := NewPostgresRepo(db)
	now := time.Unix(1700000000, 0).UTC()

	t1 := pgtest.SeedTenant(t, db)
	t2 := pgtest.SeedTenant(t, db)
	own := pgtest.SeedAgent(t, db, t1, "")
	foreign := pgtest.SeedAgent(t, db, t2, "")

	n := PhoneNumber{ID: uuid.NewString(), TenantID: t1, Number: "+442099999999", ProviderSID: "PN1", AgentID: &own, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Insert(ctx, n))

	err := repo.Insert(ctx, PhoneNumber{ID: uuid.NewString(), TenantID: t1, Number: "+442011111111", ProviderSID: "PN2", AgentID: &foreign, CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, ErrCrossTenant)
	err = repo.Insert(ctx, PhoneNumber{ID: uuid.NewString(), TenantID: t2, Number: "+442099999999", ProviderSID: "PN3", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, ErrConflict)

	before, err := repo.Get(ctx, t1, n.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.SetAgent(ctx, t1, n.ID, &foreign, now.Add(time.Minute)), ErrCrossTenant)
	after, err := repo.Get(ctx, t1, n.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.ErrorIs(t, repo.SetAgent(ctx, t2, n.ID, nil, now), ErrNotFound)
	_, err = repo.Get(ctx, t2, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	unlinked, err := agents.NewPostgresRepo(db).Delete(ctx, t1, own, now.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, unlinked)
	got, err := repo.Get(ctx, t1, n.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AgentID)

	deleted, err := repo.Delete(ctx, t1, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "PN1", deleted.ProviderSID)
	_, err = repo.Delete(ctx, t1, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
