package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/repository/jsonfile"
	"github.com/dom/doctree/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.DocumentEvent
}

func (p *recordingPublisher) Publish(event domain.DocumentEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []domain.DocumentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.DocumentEvent(nil), p.events...)
}

func newDocumentService(t *testing.T, publisher service.Publisher) *service.DocumentService {
	t.Helper()
	repo := jsonfile.NewDocumentRepository(filepath.Join(t.TempDir(), "documentos.json"))
	return service.NewDocumentService(repo, publisher)
}

func TestDocumentService_PublishesCommittedChanges(t *testing.T) {
	publisher := &recordingPublisher{}
	docs := newDocumentService(t, publisher)
	ctx := context.Background()
	const actor domain.ID = 5

	created, err := docs.Create(ctx, actor, service.CreateDocumentInput{ParentID: 0, Title: "Inicio", Content: "hola"})
	require.NoError(t, err)

	parent := domain.RootDocumentID
	_, err = docs.Update(ctx, actor, created.ID, domain.DocumentUpdate{Title: "Portada", ParentID: &parent})
	require.NoError(t, err)

	require.NoError(t, docs.Delete(ctx, actor, created.ID))

	events := publisher.Events()
	require.Len(t, events, 3)

	assert.Equal(t, domain.DocumentCreated, events[0].Type)
	require.NotNil(t, events[0].Document)
	assert.Equal(t, "Inicio", events[0].Document.Title)
	assert.Equal(t, actor, events[0].ActorID)

	assert.Equal(t, domain.DocumentUpdated, events[1].Type)
	assert.Equal(t, "Portada", events[1].Document.Title)

	assert.Equal(t, domain.DocumentDeleted, events[2].Type)
	assert.Equal(t, created.ID, events[2].DocumentID)
	assert.Nil(t, events[2].Document)
}

func TestDocumentService_FailuresPublishNothing(t *testing.T) {
	publisher := &recordingPublisher{}
	docs := newDocumentService(t, publisher)
	ctx := context.Background()

	_, err := docs.Create(ctx, 1, service.CreateDocumentInput{ParentID: 9, Title: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = docs.Update(ctx, 1, 9, domain.DocumentUpdate{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, docs.Delete(ctx, 1, domain.RootDocumentID), domain.ErrForbidden)

	assert.Empty(t, publisher.Events())
}

func TestDocumentService_NilPublisher(t *testing.T) {
	docs := newDocumentService(t, nil)
	ctx := context.Background()

	doc, err := docs.Create(ctx, 1, service.CreateDocumentInput{ParentID: 0, Title: "solo"})
	require.NoError(t, err)

	got, err := docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "solo", got.Title)

	all, err := docs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
