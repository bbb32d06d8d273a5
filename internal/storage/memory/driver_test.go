package memory

import (
	"context"
	"github.com/google/uuid"
	"github.com/skybi/assetdesk/internal/asset"
	"github.com/skybi/assetdesk/internal/issue"
	"github.com/skybi/assetdesk/internal/user"
	"github.com/stretchr/testify/require"
	"testing"
)

func newTestDriver(t *testing.T) *Driver {
	driver := New()
	require.NoError(t, driver.Initialize(context.Background()))
	t.Cleanup(driver.Close)
	return driver
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestDriver(t).Users()

	obj, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, obj)

	created, err := repo.Create(ctx, &user.Create{ID: "alice", DisplayName: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Alice", created.DisplayName)

	_, err = repo.Create(ctx, &user.Create{ID: "alice"})
	require.ErrorIs(t, err, ErrUserExists)

	admin := true
	updated, err := repo.Update(ctx, "alice", &user.Update{Admin: &admin})
	require.NoError(t, err)
	require.True(t, updated.Admin)
	require.Equal(t, "alice@example.com", updated.Email)

	// Mutating a returned object must not leak into the stored one
	updated.DisplayName = "Mallory"
	fetched, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", fetched.DisplayName)

	missing, err := repo.Update(ctx, "bob", &user.Update{Admin: &admin})
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.Delete(ctx, "alice"))
	fetched, err = repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, fetched)
}

func TestAssetRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestDriver(t).Assets()

	for _, name := range []string{"Ladder", "Drill", "Forklift"} {
		_, err := repo.Create(ctx, &asset.Create{Name: name, Location: "Warehouse"})
		require.NoError(t, err)
	}

	assets, n, err := repo.Get(ctx, 0, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
	require.Len(t, assets, 2)
	require.Equal(t, "Drill", assets[0].Name)
	require.Equal(t, "Forklift", assets[1].Name)

	assets, n, err = repo.Get(ctx, 2, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
	require.Len(t, assets, 1)
	require.Equal(t, "Ladder", assets[0].Name)

	assets, _, err = repo.Get(ctx, 5, 10)
	require.NoError(t, err)
	require.Empty(t, assets)

	uid := firstAssetUID(t, repo)
	location := "Hall 2"
	updated, err := repo.Update(ctx, uid, &asset.Update{Location: &location})
	require.NoError(t, err)
	require.Equal(t, "Hall 2", updated.Location)

	fetched, err := repo.GetByUID(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, "Hall 2", fetched.Location)

	require.NoError(t, repo.Delete(ctx, uid))
	fetched, err = repo.GetByUID(ctx, uid)
	require.NoError(t, err)
	require.Nil(t, fetched)
}

func firstAssetUID(t *testing.T, repo asset.Repository) string {
	assets, _, err := repo.Get(context.Background(), 0, 1)
	require.NoError(t, err)
	require.NotEmpty(t, assets)
	return assets[0].UID
}

func TestIssueRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestDriver(t).Issues()

	first, err := repo.Create(ctx, &issue.Create{AssetUID: "a1", AssetName: "Forklift", AssetLocation: "Dock", Description: "flat tire"})
	require.NoError(t, err)
	require.Equal(t, issue.StatusOpen, first.Status)
	_, err = repo.Create(ctx, &issue.Create{AssetUID: "a2", AssetName: "Drill", AssetLocation: "Shelf", Description: "no battery"})
	require.NoError(t, err)

	all, n, err := repo.Get(ctx, nil, 0, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
	require.Len(t, all, 2)

	resolved, err := repo.UpdateStatus(ctx, first.ID, issue.StatusResolved)
	require.NoError(t, err)
	require.Equal(t, issue.StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	open := issue.StatusOpen
	openIssues, n, err := repo.Get(ctx, &issue.Filter{Status: &open}, 0, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)
	require.Equal(t, "a2", openIssues[0].AssetUID)

	assetUID := "a1"
	forAsset, n, err := repo.Get(ctx, &issue.Filter{AssetUID: &assetUID}, 0, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)
	require.Equal(t, first.ID, forAsset[0].ID)

	reopened, err := repo.UpdateStatus(ctx, first.ID, issue.StatusOpen)
	require.NoError(t, err)
	require.Nil(t, reopened.ResolvedAt)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}
