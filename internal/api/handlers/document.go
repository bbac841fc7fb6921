package handlers

import (
	"net/http"

	"github.com/dom/doctree/internal/api/middleware"
	"github.com/dom/doctree/internal/api/response"
	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/service"
)

type DocumentHandler struct {
	documentService *service.DocumentService
}

func NewDocumentHandler(documentService *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

type CreateDocumentRequest struct {
	ParentID *domain.ID `json:"parentId" validate:"required,min=0"`
	Title    string     `json:"title" validate:"max=500"`
	Content  string     `json:"content"`
}

// UpdateDocumentRequest replaces title and content. A present parentId moves
// the document.
type UpdateDocumentRequest struct {
	ParentID *domain.ID `json:"parentId" validate:"omitempty,min=0"`
	Title    string     `json:"title" validate:"max=500"`
	Content  string     `json:"content"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documentService.List(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	doc, err := h.documentService.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	var req CreateDocumentRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	doc, err := h.documentService.Create(r.Context(), principal.UserID, service.CreateDocumentInput{
		ParentID: *req.ParentID,
		Title:    req.Title,
		Content:  req.Content,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, IDResponse{ID: doc.ID})
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	var req UpdateDocumentRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	doc, err := h.documentService.Update(r.Context(), principal.UserID, id, domain.DocumentUpdate{
		Title:    req.Title,
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	if err := h.documentService.Delete(r.Context(), principal.UserID, id); err != nil {
		response.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
