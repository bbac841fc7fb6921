package service

import (
	"github.com/dom/doctree/internal/config"
	"github.com/dom/doctree/internal/repository"
)

type Services struct {
	Auth     *AuthService
	Document *DocumentService
	User     *UserService
}

func NewServices(repos *repository.Repositories, publisher Publisher, cfg *config.Config) *Services {
	return &Services{
		Auth:     NewAuthService(repos.User, repos.Session, cfg),
		Document: NewDocumentService(repos.Document, publisher),
		User:     NewUserService(repos.User, repos.Session),
	}
}
