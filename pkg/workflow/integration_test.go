//go:build integration

package workflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/partnershiphub/hub/pkg/authz"
	"github.com/partnershiphub/hub/pkg/db"
)

// TestPostgres_SubmissionFlow runs the review scenario against a real
// Postgres so that the JSON columns, the chain upsert and the unique
// membership index are exercised with the production dialect.
func TestPostgres_SubmissionFlow(t *testing.T) {
	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("hub"),
		tcpostgres.WithUsername("hub"),
		tcpostgres.WithPassword("hub"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	gormDB, err := db.Open(db.Config{DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(gormDB))

	svc := NewService(gormDB, nil, nil, nil)
	users := map[string]string{}
	for _, name := range []string{"admin", "brand", "league"} {
		u := &UserRecord{ID: uuid.New().String(), Email: name + "@example.com"}
		require.NoError(t, gormDB.Create(u).Error)
		users[name] = u.ID
	}

	project, err := svc.CreateProject(ctx, users["admin"], &ProjectRecord{Name: "Integration"})
	require.NoError(t, err)
	_, err = svc.members.Add(ctx, project.ID, users["brand"], authz.RoleBrand)
	require.NoError(t, err)
	_, err = svc.members.Add(ctx, project.ID, users["league"], authz.RoleLeague)
	require.NoError(t, err)
	_, err = svc.members.Add(ctx, project.ID, users["league"], authz.RoleBrand)
	require.ErrorIs(t, err, ErrAlreadyMember)

	_, err = svc.PutChain(ctx, project.ID, CategoryPartnership, []string{"brand", "league"}, ChainParallel)
	require.NoError(t, err)
	chain, err := svc.PutChain(ctx, project.ID, CategoryPartnership, []string{"league", "brand"}, ChainSequential)
	require.NoError(t, err)
	assert.Equal(t, ChainSequential, chain.ChainType)

	admin := Actor{UserID: users["admin"], Role: authz.RoleAdmin}
	asset, err := svc.CreateAsset(ctx, project.ID, admin, AssetInput{
		Title: "Real database", ContentCategory: CategoryPartnership, Platforms: []string{"x", "youtube"},
	})
	require.NoError(t, err)

	_, records, err := svc.Submit(ctx, project.ID, admin.UserID, asset.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, r := range records {
		decision := ApprovalApproved
		if r.UserID == users["league"] {
			decision = ApprovalRejected
		}
		_, _, err := svc.Decide(ctx, project.ID, r.UserID, r.ID, decision, "")
		require.NoError(t, err)
	}

	resubmitted, fresh, err := svc.Submit(ctx, project.ID, admin.UserID, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, resubmitted.Version)
	assert.Len(t, fresh, 2)

	detail, err := svc.GetAsset(ctx, project.ID, admin, asset.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Approvals, 4)
	assert.Equal(t, []string{"x", "youtube"}, []string(detail.Asset.Platforms))

	entries, _, total, err := svc.activity.ListByAsset(ctx, asset.ID, 50, "")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, entries, 5)
}
