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

const documentsCollection = "documents"

// DocumentRepository holds the document tree in memory behind one mutex and
// rewrites the whole snapshot after every successful mutation. Mutations are
// applied to a working copy that replaces the live collection only once the
// snapshot write has succeeded.
type DocumentRepository struct {
	mu       sync.Mutex
	docs     []domain.Document
	ids      *Allocator
	snapshot *Snapshot[domain.Document]
	logger   *slog.Logger
}

// NewDocumentRepository loads the tree from path. A missing or unreadable
// snapshot starts a fresh tree holding only the root.
func NewDocumentRepository(path string) *DocumentRepository {
	r := &DocumentRepository{
		snapshot: NewSnapshot[domain.Document](path, documentsCollection),
		logger:   slog.Default().With("component", "jsonfile.documents"),
	}
	r.load()
	return r
}

func (r *DocumentRepository) load() {
	docs, err := r.snapshot.Load()
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.logger.Info("no document snapshot, starting with root only", "path", r.snapshot.Path())
		r.reset()
		return
	case errors.Is(err, ErrEmptySnapshot):
		r.logger.Warn("document snapshot empty, starting with root only", "path", r.snapshot.Path())
		r.reset()
		return
	case err != nil:
		kept, qerr := r.snapshot.Quarantine(time.Now())
		if qerr != nil {
			r.logger.Error("could not set unreadable document snapshot aside", "path", r.snapshot.Path(), "error", qerr)
		}
		r.logger.Warn("document snapshot unreadable, starting with root only", "path", r.snapshot.Path(), "kept", kept, "error", err)
		r.reset()
		return
	}

	repaired, changed := repairTree(docs)
	if changed {
		r.logger.Warn("document snapshot violated tree invariants and was repaired", "path", r.snapshot.Path())
	}
	ids := make([]domain.ID, len(repaired))
	for i, d := range repaired {
		ids[i] = d.ID
	}
	r.docs = repaired
	r.ids = NewAllocator(ids)
	metrics.SetCollectionSize(documentsCollection, len(r.docs))
	r.logger.Info("documents loaded", "count", len(r.docs), "next_id", r.ids.Peek())
}

func (r *DocumentRepository) reset() {
	r.docs = []domain.Document{domain.NewRootDocument()}
	r.ids = NewAllocator(nil)
	metrics.SetCollectionSize(documentsCollection, len(r.docs))
}

func (r *DocumentRepository) List(ctx context.Context) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneDocuments(r.docs), nil
}

func (r *DocumentRepository) Get(ctx context.Context, id domain.ID) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.docs, id)
	if i < 0 {
		return domain.Document{}, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	return r.docs[i].Clone(), nil
}

// Create appends a document under parentID. The parent is checked before an
// id is drawn, so a bad parent never consumes one.
func (r *DocumentRepository) Create(ctx context.Context, parentID domain.ID, title, content string) (doc domain.Document, err error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { metrics.ObserveMutation(documentsCollection, "create", err) }()

	pi := indexOf(r.docs, parentID)
	if pi < 0 {
		return domain.Document{}, fmt.Errorf("parent document %d: %w", parentID, domain.ErrNotFound)
	}

	next := cloneDocuments(r.docs)
	doc = domain.Document{
		ID:       r.ids.Next(),
		ParentID: parentID,
		Title:    title,
		Content:  content,
		Children: []domain.ID{},
	}
	next[pi].Children = append(next[pi].Children, doc.ID)
	next = append(next, doc)

	if err := r.commit(next); err != nil {
		return domain.Document{}, err
	}
	return doc.Clone(), nil
}

// Update replaces title and content and, when update.ParentID names a
// different parent, moves the document there. Moving the root or moving a
// document below itself is forbidden.
func (r *DocumentRepository) Update(ctx context.Context, id domain.ID, update domain.DocumentUpdate) (doc domain.Document, err error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { metrics.ObserveMutation(documentsCollection, "update", err) }()

	i := indexOf(r.docs, id)
	if i < 0 {
		return domain.Document{}, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}

	next := cloneDocuments(r.docs)
	next[i].Title = update.Title
	next[i].Content = update.Content

	if update.ParentID != nil && *update.ParentID != next[i].ParentID {
		newParent := *update.ParentID
		if next[i].IsRoot() {
			return domain.Document{}, fmt.Errorf("root document cannot be moved: %w", domain.ErrForbidden)
		}
		ni := indexOf(next, newParent)
		if ni < 0 {
			return domain.Document{}, fmt.Errorf("parent document %d: %w", newParent, domain.ErrNotFound)
		}
		if newParent == id || isDescendant(next, id, newParent) {
			return domain.Document{}, fmt.Errorf("document %d cannot be moved below itself: %w", id, domain.ErrForbidden)
		}
		if oi := indexOf(next, next[i].ParentID); oi >= 0 {
			next[oi].Children = removeID(next[oi].Children, id)
		}
		next[ni].Children = append(next[ni].Children, id)
		next[i].ParentID = newParent
	}

	if err := r.commit(next); err != nil {
		return domain.Document{}, err
	}
	return next[i].Clone(), nil
}

// Delete removes a leaf document and prunes it, by id, from its parent.
func (r *DocumentRepository) Delete(ctx context.Context, id domain.ID) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { metrics.ObserveMutation(documentsCollection, "delete", err) }()

	if id == domain.RootDocumentID {
		return fmt.Errorf("root document cannot be deleted: %w", domain.ErrForbidden)
	}
	i := indexOf(r.docs, id)
	if i < 0 {
		return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	if !r.docs[i].IsLeaf() {
		return fmt.Errorf("document %d has %d children: %w", id, len(r.docs[i].Children), domain.ErrForbidden)
	}

	next := cloneDocuments(r.docs)
	if pi := indexOf(next, next[i].ParentID); pi >= 0 {
		next[pi].Children = removeID(next[pi].Children, id)
	}
	next = append(next[:i], next[i+1:]...)

	return r.commit(next)
}

// commit persists next and, only if that succeeds, makes it the live tree.
// Callers hold r.mu.
func (r *DocumentRepository) commit(next []domain.Document) error {
	if err := r.snapshot.Save(next); err != nil {
		r.logger.Error("document snapshot write failed, mutation discarded", "error", err)
		return err
	}
	r.docs = next
	metrics.SetCollectionSize(documentsCollection, len(r.docs))
	return nil
}
