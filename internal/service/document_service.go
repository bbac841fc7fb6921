package service

import (
	"context"
	"log/slog"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/repository"
)

// Publisher receives committed document changes.
type Publisher interface {
	Publish(event domain.DocumentEvent)
}

type DocumentService struct {
	docRepo   repository.DocumentRepository
	publisher Publisher
	logger    *slog.Logger
}

// NewDocumentService wraps the document store. publisher may be nil.
func NewDocumentService(docRepo repository.DocumentRepository, publisher Publisher) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		publisher: publisher,
		logger:    slog.Default().With("component", "service.document"),
	}
}

type CreateDocumentInput struct {
	ParentID domain.ID
	Title    string
	Content  string
}

func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docRepo.List(ctx)
}

func (s *DocumentService) Get(ctx context.Context, id domain.ID) (domain.Document, error) {
	return s.docRepo.Get(ctx, id)
}

func (s *DocumentService) Create(ctx context.Context, actor domain.ID, input CreateDocumentInput) (domain.Document, error) {
	doc, err := s.docRepo.Create(ctx, input.ParentID, input.Title, input.Content)
	if err != nil {
		return domain.Document{}, err
	}
	s.logger.Info("document created", "document_id", doc.ID, "parent_id", doc.ParentID, "actor_id", actor)
	s.publish(domain.DocumentCreated, doc.ID, &doc, actor)
	return doc, nil
}

func (s *DocumentService) Update(ctx context.Context, actor domain.ID, id domain.ID, update domain.DocumentUpdate) (domain.Document, error) {
	doc, err := s.docRepo.Update(ctx, id, update)
	if err != nil {
		return domain.Document{}, err
	}
	s.logger.Info("document updated", "document_id", doc.ID, "actor_id", actor)
	s.publish(domain.DocumentUpdated, doc.ID, &doc, actor)
	return doc, nil
}

func (s *DocumentService) Delete(ctx context.Context, actor domain.ID, id domain.ID) error {
	if err := s.docRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("document deleted", "document_id", id, "actor_id", actor)
	s.publish(domain.DocumentDeleted, id, nil, actor)
	return nil
}

func (s *DocumentService) publish(eventType domain.DocumentEventType, id domain.ID, doc *domain.Document, actor domain.ID) {
	if s.publisher == nil {
		return
	}
	var snapshot *domain.Document
	if doc != nil {
		c := doc.Clone()
		snapshot = &c
	}
	s.publisher.Publish(domain.DocumentEvent{
		Type:       eventType,
		DocumentID: id,
		Document:   snapshot,
		ActorID:    actor,
	})
}
