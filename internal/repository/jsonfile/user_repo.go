package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/metrics"
)

const usersCollection = "users"

// ErrSeedPasswordMissing is returned when the directory has to be seeded but
// no administrator password was configured.
var ErrSeedPasswordMissing = errors.New("administrator seed password is not configured")

// SeedAccount is the administrator written when no user snapshot exists.
type SeedAccount struct {
	Name           string
	PasswordDigest string
}

// UserRepository is the flat counterpart of DocumentRepository.
type UserRepository struct {
	mu       sync.Mutex
	users    []domain.User
	ids      *Allocator
	snapshot *Snapshot[domain.User]
	logger   *slog.Logger
}

// NewUserRepository loads the directory from path. When the snapshot is
// missing or unreadable it seeds the administrator account and writes it out
// immediately so the seed survives restarts.
func NewUserRepository(path string, seed func() (SeedAccount, error)) (*UserRepository, error) {
	r := &UserRepository{
		snapshot: NewSnapshot[domain.User](path, usersCollection),
		logger:   slog.Default().With("component", "jsonfile.users"),
	}

	users, err := r.snapshot.Load()
	if err == nil {
		users, err = validateUsers(users)
	}
	if err == nil {
		ids := make([]domain.ID, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		r.users = users
		r.ids = NewAllocator(ids)
		metrics.SetCollectionSize(usersCollection, len(r.users))
		r.logger.Info("users loaded", "count", len(r.users), "next_id", r.ids.Peek())
		return r, nil
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		r.logger.Info("no user snapshot, seeding administrator", "path", path)
	case errors.Is(err, ErrEmptySnapshot):
		r.logger.Warn("user snapshot empty, seeding administrator", "path", path)
	default:
		kept, qerr := r.snapshot.Quarantine(time.Now())
		if qerr != nil {
			return nil, fmt.Errorf("user snapshot unusable (%v) and could not be set aside: %w", err, qerr)
		}
		r.logger.Warn("user snapshot unusable, kept aside and seeding administrator", "path", path, "kept", kept, "error", err)
	}

	account, err := seed()
	if err != nil {
		return nil, err
	}
	r.users = []domain.User{{
		ID:             domain.SeedUserID,
		Name:           account.Name,
		PasswordDigest: account.PasswordDigest,
		Roles:          []domain.Role{domain.RoleAdministrador, domain.RoleEditor},
	}}
	r.ids = NewAllocator(nil)
	if err := r.snapshot.Save(r.users); err != nil {
		r.logger.Error("could not persist seeded administrator", "error", err)
	}
	metrics.SetCollectionSize(usersCollection, len(r.users))
	return r, nil
}

// validateUsers rejects snapshots without the seed account or with
// duplicate ids or names.
func validateUsers(users []domain.User) ([]domain.User, error) {
	ids := make(map[domain.ID]bool, len(users))
	names := make(map[string]bool, len(users))
	seeded := false
	for _, u := range users {
		if ids[u.ID] || names[u.Name] {
			return nil, fmt.Errorf("duplicate user %d %q", u.ID, u.Name)
		}
		ids[u.ID] = true
		names[u.Name] = true
		if u.ID == domain.SeedUserID {
			seeded = true
		}
	}
	if !seeded {
		return nil, fmt.Errorf("seed user %d missing", domain.SeedUserID)
	}
	return users, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUsers(r.users), nil
}

func (r *UserRepository) Create(ctx context.Context, name, passwordDigest string, roles []domain.Role) (user domain.User, err error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { metrics.ObserveMutation(usersCollection, "create", err) }()

	if r.indexOfName(name) >= 0 {
		return domain.User{}, fmt.Errorf("user name %q: %w", name, domain.ErrConflict)
	}

	user = domain.User{
		ID:             r.ids.Next(),
		Name:           name,
		PasswordDigest: passwordDigest,
		Roles:          append([]domain.Role{}, roles...),
	}
	next := append(cloneUsers(r.users), user)
	if err := r.commit(next); err != nil {
		return domain.User{}, err
	}
	return user.Clone(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id domain.ID) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return r.users[i].Clone(), nil
}

func (r *UserRepository) GetByName(ctx context.Context, name string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOfName(name)
	if i < 0 {
		return domain.User{}, fmt.Errorf("user %q: %w", name, domain.ErrNotFound)
	}
	return r.users[i].Clone(), nil
}

// Update changes name and/or password digest. Roles are never touched here;
// see SetRoles.
func (r *UserRepository) Update(ctx context.Context, id domain.ID, name, passwordDigest *string) (user domain.User, err error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { metrics.ObserveMutation(usersCollection, "update", err) }()

	i := r.indexOf(id)
	if i < 0 {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}

	next := cloneUsers(r.users)
	if name != nil && *name != next[i].Name {
		if r.indexOfName(*name) >= 0 {
			return domain.User{}, fmt.Errorf("user name %q: %w", *name, domain.ErrConflict)
		}
		next[i].Name = *name
	}
	if passwordDigest != nil {
		next[i].PasswordDigest = *passwordDigest
	}

	if err := r.commit(next); err != nil {
		return domain.User{}, err
	}
	return next[i].Clone(), nil
}

// SetRoles replaces the role set of a user. The seed account always keeps
// Administrador so the directory can never lock itself out.
func (r *UserRepository) SetRoles(ctx context.Context, id domain.ID, roles []domain.Role) (user domain.User, err error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { metrics.ObserveMutation(usersCollection, "set_roles", err) }()

	i := r.indexOf(id)
	if i < 0 {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	if id == domain.SeedUserID && !domain.HasRole(roles, domain.RoleAdministrador) {
		return domain.User{}, fmt.Errorf("seed user must keep %s: %w", domain.RoleAdministrador, domain.ErrForbidden)
	}

	next := cloneUsers(r.users)
	next[i].Roles = append([]domain.Role{}, roles...)
	if err := r.commit(next); err != nil {
		return domain.User{}, err
	}
	return next[i].Clone(), nil
}

// Delete removes a user. Deleting the seed account or an id that does not
// exist is forbidden.
func (r *UserRepository) Delete(ctx context.Context, id domain.ID) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { metrics.ObserveMutation(usersCollection, "delete", err) }()

	if id == domain.SeedUserID {
		return fmt.Errorf("seed user cannot be deleted: %w", domain.ErrForbidden)
	}
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("user %d does not exist: %w", id, domain.ErrForbidden)
	}

	next := cloneUsers(r.users)
	next = append(next[:i], next[i+1:]...)
	return r.commit(next)
}

func (r *UserRepository) commit(next []domain.User) error {
	if err := r.snapshot.Save(next); err != nil {
		r.logger.Error("user snapshot write failed, mutation discarded", "error", err)
		return err
	}
	r.users = next
	metrics.SetCollectionSize(usersCollection, len(r.users))
	return nil
}

func (r *UserRepository) indexOf(id domain.ID) int {
	for i := range r.users {
		if r.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *UserRepository) indexOfName(name string) int {
	for i := range r.users {
		if r.users[i].Name == name {
			return i
		}
	}
	return -1
}

func cloneUsers(users []domain.User) []domain.User {
	out := make([]domain.User, len(users))
	for i, u := range users {
		out[i] = u.Clone()
	}
	return out
}
