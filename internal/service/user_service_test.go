package service_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/repository/jsonfile"
	"github.com/dom/doctree/internal/service"
	"github.com/dom/doctree/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_Create(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		input     service.CreateUserInput
		wantErr   error
		wantRoles []domain.Role
	}{
		{
			name:      "roles are deduplicated",
			input:     service.CreateUserInput{Name: " ana ", Password: "pw", Roles: []domain.Role{domain.RoleEditor, domain.RoleEditor}},
			wantRoles: []domain.Role{domain.RoleEditor},
		},
		{
			name:      "no roles",
			input:     service.CreateUserInput{Name: "luis", Password: "pw"},
			wantRoles: []domain.Role{},
		},
		{
			name:    "unknown role",
			input:   service.CreateUserInput{Name: "eva", Password: "pw", Roles: []domain.Role{"Root"}},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "blank name",
			input:   service.CreateUserInput{Name: "  ", Password: "pw"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "empty password",
			input:   service.CreateUserInput{Name: "eva", Password: ""},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "duplicate name",
			input:   service.CreateUserInput{Name: testutil.AdminName, Password: "pw"},
			wantErr: domain.ErrConflict,
		},
		{
			name:      "password at the bcrypt limit",
			input:     service.CreateUserInput{Name: "max", Password: strings.Repeat("x", service.MaxPasswordBytes)},
			wantRoles: []domain.Role{},
		},
		{
			name:    "password over the bcrypt limit",
			input:   service.CreateUserInput{Name: "largo", Password: strings.Repeat("x", service.MaxPasswordBytes+1)},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.user.Create(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRoles, user.Roles)
			assert.NotEqual(t, tt.input.Password, user.PasswordDigest)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordDigest), []byte(tt.input.Password)))
		})
	}
}

func TestUserService_UpdatePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().WithName("ana").WithRoles(domain.RoleEditor).Build(t, f.user)

	newPassword := "new-secret"
	updated, err := f.user.Update(ctx, user.ID, service.UpdateUserInput{Password: &newPassword})
	require.NoError(t, err)
	assert.Equal(t, "ana", updated.Name)
	assert.Equal(t, []domain.Role{domain.RoleEditor}, updated.Roles)

	_, err = f.auth.Login(ctx, service.LoginInput{Name: "ana", Password: newPassword})
	assert.NoError(t, err)

	empty := ""
	_, err = f.user.Update(ctx, user.ID, service.UpdateUserInput{Password: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.user.Update(ctx, user.ID, service.UpdateUserInput{Name: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	tooLong := strings.Repeat("x", service.MaxPasswordBytes+1)
	_, err = f.user.Update(ctx, user.ID, service.UpdateUserInput{Password: &tooLong})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestUserService_SetRoles(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, f.user)

	updated, err := f.user.SetRoles(ctx, user.ID, []domain.Role{domain.RoleAdministrador, domain.RoleAdministrador})
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleAdministrador}, updated.Roles)

	_, err = f.user.SetRoles(ctx, user.ID, []domain.Role{"Lector"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.user.SetRoles(ctx, domain.SeedUserID, []domain.Role{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUserService_DeleteRevokesSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().WithRoles(domain.RoleEditor).Build(t, f.user)
	result, err := f.auth.Login(ctx, service.LoginInput{Name: user.Name, Password: password})
	require.NoError(t, err)

	require.NoError(t, f.user.Delete(ctx, user.ID))

	assert.Equal(t, domain.Unauthenticated, f.auth.Authorize(ctx, result.Credential).Outcome)
	assert.ErrorIs(t, f.user.Delete(ctx, user.ID), domain.ErrForbidden)
	assert.ErrorIs(t, f.user.Delete(ctx, domain.SeedUserID), domain.ErrForbidden)
}

func TestSeedAdministrator(t *testing.T) {
	service.PasswordCost = bcrypt.MinCost

	_, err := service.SeedAdministrator("Administrador", "")()
	assert.ErrorIs(t, err, jsonfile.ErrSeedPasswordMissing)

	path := filepath.Join(t.TempDir(), "usuarios.json")
	_, err = jsonfile.NewUserRepository(path, service.SeedAdministrator("Administrador", ""))
	assert.ErrorIs(t, err, jsonfile.ErrSeedPasswordMissing)

	account, err := service.SeedAdministrator("jefa", "pw")()
	require.NoError(t, err)
	assert.Equal(t, "jefa", account.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordDigest), []byte("pw")))
}
