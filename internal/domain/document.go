package domain

// ID identifies documents and users. Zero is reserved for the root document
// and the seed administrator.
type ID int64

// RootDocumentID is the permanent root of the document tree.
const RootDocumentID ID = 0

type Document struct {
	ID       ID     `json:"id"`
	ParentID ID     `json:"parentId"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Children []ID   `json:"children"`
}

// NewRootDocument returns the empty root node the tree starts from.
func NewRootDocument() Document {
	return Document{
		ID:       RootDocumentID,
		ParentID: RootDocumentID,
		Children: []ID{},
	}
}

// IsRoot reports whether d is the tree root.
func (d Document) IsRoot() bool {
	return d.ID == RootDocumentID
}

// IsLeaf reports whether d has no children.
func (d Document) IsLeaf() bool {
	return len(d.Children) == 0
}

// Clone returns a copy that shares no slices with d.
func (d Document) Clone() Document {
	children := make([]ID, len(d.Children))
	copy(children, d.Children)
	d.Children = children
	return d
}

// DocumentUpdate carries the mutable fields of a document. A nil ParentID
// leaves the document where it is.
type DocumentUpdate struct {
	Title    string
	Content  string
	ParentID *ID
}

// DocumentEventType names a change to the document tree.
type DocumentEventType string

const (
	DocumentCreated DocumentEventType = "DOCUMENT_CREATED"
	DocumentUpdated DocumentEventType = "DOCUMENT_UPDATED"
	DocumentDeleted DocumentEventType = "DOCUMENT_DELETED"
)

// DocumentEvent describes a committed change. Document is empty for deletions.
type DocumentEvent struct {
	Type       DocumentEventType `json:"type"`
	DocumentID ID                `json:"documentId"`
	Document   *Document         `json:"document,omitempty"`
	ActorID    ID                `json:"actorId"`
}
