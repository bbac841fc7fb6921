package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dom/doctree/internal/config"
	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/metrics"
	"github.com/dom/doctree/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	ErrInvalidCredential  = fmt.Errorf("invalid session credential: %w", domain.ErrUnauthorized)
)

type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	cfg         *config.Config
	logger      *slog.Logger

	dummyOnce sync.Once
	dummy     []byte
}

func NewAuthService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		cfg:         cfg,
		logger:      slog.Default().With("component", "service.auth"),
	}
}

type LoginInput struct {
	Name     string
	Password string
}

type LoginResult struct {
	Principal  domain.Principal
	Credential string
	ExpiresAt  time.Time
}

// Login checks the password against the stored digest and opens a session.
// Unknown names and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.GetByName(ctx, input.Name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown names cost one bcrypt compare, like a wrong password.
			bcrypt.CompareHashAndPassword(s.dummyDigest(), []byte(input.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordDigest), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session, err := s.sessionRepo.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	credential, err := s.IssueCredential(session)
	if err != nil {
		s.sessionRepo.Revoke(ctx, session.Token)
		return nil, err
	}

	s.logger.Info("login", "user_id", user.ID)
	return &LoginResult{
		Principal:  principalOf(user),
		Credential: credential,
		ExpiresAt:  session.ExpiresAt,
	}, nil
}

// Logout revokes the session named by credential. Unparseable or already
// revoked credentials are not an error.
func (s *AuthService) Logout(ctx context.Context, credential string) error {
	token, _, err := s.ParseCredential(credential)
	if err != nil {
		return nil
	}
	return s.sessionRepo.Revoke(ctx, token)
}

// Authorize runs the guard chain: credential, session, user, roles. The
// session and user stores are consulted one after the other, never nested.
func (s *AuthService) Authorize(ctx context.Context, credential string, required ...domain.Role) (result domain.Authorization) {
	defer func() { metrics.ObserveAuthDecision(result.Outcome.String()) }()

	if credential == "" {
		return domain.Authorization{Outcome: domain.Unauthenticated}
	}

	token, userID, err := s.ParseCredential(credential)
	if err != nil {
		s.logger.Debug("credential rejected", "error", err)
		return domain.Authorization{Outcome: domain.Unauthenticated}
	}

	session, err := s.sessionRepo.Resolve(ctx, token)
	if err != nil {
		return domain.Authorization{Outcome: domain.Unauthenticated}
	}
	if session.UserID != userID {
		s.logger.Warn("credential subject does not match session", "subject", userID, "session_user", session.UserID)
		return domain.Authorization{Outcome: domain.Unauthenticated}
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		s.logger.Info("session refers to a missing user", "user_id", session.UserID)
		return domain.Authorization{Outcome: domain.Unauthenticated}
	}

	principal := principalOf(user)
	for _, role := range required {
		if !principal.HasRole(role) {
			return domain.Authorization{Outcome: domain.InsufficientRole, Principal: principal}
		}
	}
	return domain.Authorization{Outcome: domain.Authorized, Principal: principal}
}

// Permits returns a check that re-runs the guard chain for a credential and
// reports whether it is still Authorized for required.
func (s *AuthService) Permits(required ...domain.Role) func(ctx context.Context, credential string) bool {
	return func(ctx context.Context, credential string) bool {
		return s.Authorize(ctx, credential, required...).Outcome == domain.Authorized
	}
}

// dummyDigest is a digest of a random secret at the current PasswordCost.
func (s *AuthService) dummyDigest() []byte {
	s.dummyOnce.Do(func() {
		secret := make([]byte, 32)
		rand.Read(secret)
		digest, err := bcrypt.GenerateFromPassword(secret, PasswordCost)
		if err != nil {
			s.logger.Error("failed to build dummy digest", "error", err)
			return
		}
		s.dummy = digest
	})
	return s.dummy
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// IssueCredential signs the session token into the cookie carrier.
func (s *AuthService) IssueCredential(session domain.UserSession) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.Token,
			Subject:   strconv.FormatInt(int64(session.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ParseCredential verifies the carrier signature and returns the session
// token and user id inside it.
func (s *AuthService) ParseCredential(credential string) (string, domain.ID, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(credential, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.ID == "" {
		return "", 0, fmt.Errorf("%w: missing session id", ErrInvalidCredential)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad subject %q", ErrInvalidCredential, claims.Subject)
	}
	return claims.ID, domain.ID(userID), nil
}

func principalOf(user domain.User) domain.Principal {
	return domain.Principal{
		UserID: user.ID,
		Name:   user.Name,
		Roles:  append([]domain.Role{}, user.Roles...),
	}
}
