package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/repository"
	"github.com/dom/doctree/internal/repository/jsonfile"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for new digests.
var PasswordCost = bcrypt.DefaultCost

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

type UserService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	logger      *slog.Logger
}

func NewUserService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		logger:      slog.Default().With("component", "service.user"),
	}
}

type CreateUserInput struct {
	Name     string
	Password string
	Roles    []domain.Role
}

// UpdateUserInput leaves a field untouched when it is nil.
type UpdateUserInput struct {
	Name     *string
	Password *string
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id domain.ID) (domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (domain.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || input.Password == "" {
		return domain.User{}, fmt.Errorf("name and password are required: %w", domain.ErrInvalidInput)
	}
	roles, err := domain.NormalizeRoles(input.Roles)
	if err != nil {
		return domain.User{}, fmt.Errorf("roles: %w", err)
	}

	digest, err := HashPassword(input.Password)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.userRepo.Create(ctx, name, digest, roles)
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id domain.ID, input UpdateUserInput) (domain.User, error) {
	var name, digest *string
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return domain.User{}, fmt.Errorf("name cannot be empty: %w", domain.ErrInvalidInput)
		}
		name = &trimmed
	}
	if input.Password != nil {
		if *input.Password == "" {
			return domain.User{}, fmt.Errorf("password cannot be empty: %w", domain.ErrInvalidInput)
		}
		d, err := HashPassword(*input.Password)
		if err != nil {
			return domain.User{}, err
		}
		digest = &d
	}
	return s.userRepo.Update(ctx, id, name, digest)
}

func (s *UserService) SetRoles(ctx context.Context, id domain.ID, roles []domain.Role) (domain.User, error) {
	normalized, err := domain.NormalizeRoles(roles)
	if err != nil {
		return domain.User{}, fmt.Errorf("roles: %w", err)
	}
	return s.userRepo.SetRoles(ctx, id, normalized)
}

// Delete removes the user and then drops every session it still holds.
func (s *UserService) Delete(ctx context.Context, id domain.ID) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	revoked := s.sessionRepo.RevokeUser(ctx, id)
	s.logger.Info("user deleted", "user_id", id, "sessions_revoked", revoked)
	return nil
}

func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("password longer than %d bytes: %w", MaxPasswordBytes, domain.ErrInvalidInput)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// SeedAdministrator returns the seed callback for the user snapshot. The
// password is only hashed if the directory actually needs seeding.
func SeedAdministrator(name, password string) func() (jsonfile.SeedAccount, error) {
	return func() (jsonfile.SeedAccount, error) {
		if password == "" {
			return jsonfile.SeedAccount{}, jsonfile.ErrSeedPasswordMissing
		}
		digest, err := HashPassword(password)
		if err != nil {
			return jsonfile.SeedAccount{}, err
		}
		return jsonfile.SeedAccount{Name: name, PasswordDigest: digest}, nil
	}
}
