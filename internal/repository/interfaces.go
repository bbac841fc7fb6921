package repository

import (
	"context"

	"github.com/dom/doctree/internal/domain"
)

// DocumentRepository owns the document tree. Implementations serialize every
// call and keep parent/children links consistent.
type DocumentRepository interface {
	List(ctx context.Context) ([]domain.Document, error)
	Create(ctx context.Context, parentID domain.ID, title, content string) (domain.Document, error)
	Get(ctx context.Context, id domain.ID) (domain.Document, error)
	Update(ctx context.Context, id domain.ID, update domain.DocumentUpdate) (domain.Document, error)
	Delete(ctx context.Context, id domain.ID) error
}

type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, name, passwordDigest string, roles []domain.Role) (domain.User, error)
	GetByID(ctx context.Context, id domain.ID) (domain.User, error)
	GetByName(ctx context.Context, name string) (domain.User, error)
	Update(ctx context.Context, id domain.ID, name, passwordDigest *string) (domain.User, error)
	SetRoles(ctx context.Context, id domain.ID, roles []domain.Role) (domain.User, error)
	Delete(ctx context.Context, id domain.ID) error
}

type SessionRepository interface {
	Create(ctx context.Context, userID domain.ID) (domain.UserSession, error)
	Resolve(ctx context.Context, token string) (domain.UserSession, error)
	Revoke(ctx context.Context, token string) error
	RevokeUser(ctx context.Context, userID domain.ID) int
	Sweep(ctx context.Context) int
	Count() int
}

type Repositories struct {
	Document DocumentRepository
	User     UserRepository
	Session  SessionRepository
}
