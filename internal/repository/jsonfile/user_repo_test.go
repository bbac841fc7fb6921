package jsonfile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/repository/jsonfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAdmin() (jsonfile.SeedAccount, error) {
	return jsonfile.SeedAccount{Name: "Administrador", PasswordDigest: "digest-admin"}, nil
}

func newUserRepo(t *testing.T) (*jsonfile.UserRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usuarios.json")
	repo, err := jsonfile.NewUserRepository(path, seedAdmin)
	require.NoError(t, err)
	return repo, path
}

func TestUserRepository_SeedsAdministrator(t *testing.T) {
	repo, path := newUserRepo(t)

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, domain.SeedUserID, users[0].ID)
	assert.Equal(t, "Administrador", users[0].Name)
	assert.Equal(t, []domain.Role{domain.RoleAdministrador, domain.RoleEditor}, users[0].Roles)

	_, err = os.Stat(path)
	assert.NoError(t, err, "seed should be written immediately")
}

func TestUserRepository_SeedErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usuarios.json")
	_, err := jsonfile.NewUserRepository(path, func() (jsonfile.SeedAccount, error) {
		return jsonfile.SeedAccount{}, jsonfile.ErrSeedPasswordMissing
	})
	assert.ErrorIs(t, err, jsonfile.ErrSeedPasswordMissing)
}

func TestUserRepository_ExistingSnapshotSkipsSeed(t *testing.T) {
	_, path := newUserRepo(t)

	repo, err := jsonfile.NewUserRepository(path, func() (jsonfile.SeedAccount, error) {
		return jsonfile.SeedAccount{}, errors.New("seed must not be called")
	})
	require.NoError(t, err)

	user, err := repo.GetByName(context.Background(), "Administrador")
	require.NoError(t, err)
	assert.Equal(t, "digest-admin", user.PasswordDigest)
}

func TestUserRepository_InvalidSnapshotReseeds(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		wantKept bool
	}{
		{name: "garbage", contents: "nope", wantKept: true},
		{name: "empty", contents: "[]"},
		{name: "no seed user", contents: `[{"id": 3, "name": "ana", "passwordDigest": "x", "roles": []}]`, wantKept: true},
		{name: "duplicate names", contents: `[
			{"id": 0, "name": "ana", "passwordDigest": "x", "roles": ["Administrador"]},
			{"id": 1, "name": "ana", "passwordDigest": "y", "roles": []}
		]`, wantKept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "usuarios.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.contents), 0o644))

			repo, err := jsonfile.NewUserRepository(path, seedAdmin)
			require.NoError(t, err)

			users, err := repo.List(context.Background())
			require.NoError(t, err)
			require.Len(t, users, 1)
			assert.Equal(t, "Administrador", users[0].Name)

			kept, err := filepath.Glob(path + ".corrupt-*")
			require.NoError(t, err)
			if !tt.wantKept {
				assert.Empty(t, kept)
				return
			}
			require.Len(t, kept, 1)
			data, err := os.ReadFile(kept[0])
			require.NoError(t, err)
			assert.Equal(t, tt.contents, string(data))
		})
	}
}

func TestUserRepository_PersistFailureLeavesDirectoryUnchanged(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	repo, err := jsonfile.NewUserRepository(filepath.Join(dir, "usuarios.json"), seedAdmin)
	require.NoError(t, err)
	ctx := context.Background()

	ana, err := repo.Create(ctx, "ana", "d", []domain.Role{domain.RoleEditor})
	require.NoError(t, err)
	before, err := repo.List(ctx)
	require.NoError(t, err)

	// Turn the data directory into a plain file so the temp file cannot be created.
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o644))

	_, err = repo.Create(ctx, "luis", "d", nil)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, domain.KindIOFailure, domain.KindOf(err))

	name := "ana maria"
	_, err = repo.Update(ctx, ana.ID, &name, nil)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	_, err = repo.SetRoles(ctx, ana.ID, nil)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	err = repo.Delete(ctx, ana.ID)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	after, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	_, err = repo.GetByName(ctx, "luis")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, os.Remove(dir))
	require.NoError(t, os.MkdirAll(dir, 0o755))

	luis, err := repo.Create(ctx, "luis", "d", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ID(3), luis.ID, "the id drawn by the failed create stays burned")
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	repo, path := newUserRepo(t)
	ctx := context.Background()

	ana, err := repo.Create(ctx, "ana", "digest-ana", []domain.Role{domain.RoleEditor})
	require.NoError(t, err)
	assert.Equal(t, domain.ID(1), ana.ID)

	_, err = repo.Create(ctx, "ana", "other", nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	byID, err := repo.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, ana, byID)

	byName, err := repo.GetByName(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, ana, byName)

	_, err = repo.GetByID(ctx, 50)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByName(ctx, "nadie")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	reloaded, err := jsonfile.NewUserRepository(path, seedAdmin)
	require.NoError(t, err)
	again, err := reloaded.GetByName(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, ana, again)

	next, err := reloaded.Create(ctx, "luis", "d", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ID(2), next.ID)
}

func TestUserRepository_UpdateNeverTouchesRoles(t *testing.T) {
	repo, _ := newUserRepo(t)
	ctx := context.Background()

	ana, err := repo.Create(ctx, "ana", "d1", []domain.Role{domain.RoleEditor})
	require.NoError(t, err)
	_, err = repo.Create(ctx, "luis", "d2", nil)
	require.NoError(t, err)

	name := "ana maria"
	digest := "d3"
	updated, err := repo.Update(ctx, ana.ID, &name, &digest)
	require.NoError(t, err)
	assert.Equal(t, "ana maria", updated.Name)
	assert.Equal(t, "d3", updated.PasswordDigest)
	assert.Equal(t, []domain.Role{domain.RoleEditor}, updated.Roles)

	taken := "luis"
	_, err = repo.Update(ctx, ana.ID, &taken, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.Update(ctx, 99, &name, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_SetRoles(t *testing.T) {
	repo, _ := newUserRepo(t)
	ctx := context.Background()

	ana, err := repo.Create(ctx, "ana", "d", nil)
	require.NoError(t, err)

	updated, err := repo.SetRoles(ctx, ana.ID, []domain.Role{domain.RoleEditor})
	require.NoError(t, err)
	assert.True(t, updated.HasRole(domain.RoleEditor))

	_, err = repo.SetRoles(ctx, domain.SeedUserID, []domain.Role{domain.RoleEditor})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = repo.SetRoles(ctx, 42, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_Delete(t *testing.T) {
	repo, _ := newUserRepo(t)
	ctx := context.Background()

	ana, err := repo.Create(ctx, "ana", "d", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      domain.ID
		wantErr error
	}{
		{name: "seed user", id: domain.SeedUserID, wantErr: domain.ErrForbidden},
		{name: "absent user", id: 77, wantErr: domain.ErrForbidden},
		{name: "regular user", id: ana.ID},
		{name: "already deleted", id: ana.ID, wantErr: domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Delete(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
