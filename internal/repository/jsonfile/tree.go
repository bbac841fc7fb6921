package jsonfile

import (
	"fmt"

	"github.com/dom/doctree/internal/domain"
)

// CheckTree verifies the structural invariants of a document collection:
// a single root, unique ids, every non-root parent present, and each
// children list holding exactly the documents that point at it.
func CheckTree(docs []domain.Document) error {
	byID := make(map[domain.ID]domain.Document, len(docs))
	for _, d := range docs {
		if _, dup := byID[d.ID]; dup {
			return fmt.Errorf("duplicate document id %d", d.ID)
		}
		byID[d.ID] = d
	}
	root, ok := byID[domain.RootDocumentID]
	if !ok {
		return fmt.Errorf("root document missing")
	}
	if root.ParentID != domain.RootDocumentID {
		return fmt.Errorf("root document has parent %d", root.ParentID)
	}

	pointing := make(map[domain.ID]map[domain.ID]bool, len(docs))
	for _, d := range docs {
		if d.IsRoot() {
			continue
		}
		if _, ok := byID[d.ParentID]; !ok {
			return fmt.Errorf("document %d has missing parent %d", d.ID, d.ParentID)
		}
		if d.ParentID == d.ID {
			return fmt.Errorf("document %d is its own parent", d.ID)
		}
		if pointing[d.ParentID] == nil {
			pointing[d.ParentID] = make(map[domain.ID]bool)
		}
		pointing[d.ParentID][d.ID] = true
	}

	for _, d := range docs {
		want := pointing[d.ID]
		if len(d.Children) != len(want) {
			return fmt.Errorf("document %d lists %d children, %d documents point at it", d.ID, len(d.Children), len(want))
		}
		seen := make(map[domain.ID]bool, len(d.Children))
		for _, c := range d.Children {
			if !want[c] || seen[c] {
				return fmt.Errorf("document %d lists child %d that does not point at it", d.ID, c)
			}
			seen[c] = true
		}
	}
	return nil
}

// repairTree returns a collection that satisfies CheckTree, built from docs
// loaded off disk. Parent pointers win over children lists; duplicates keep
// the first occurrence; documents that are orphaned or cut off from the root
// by a cycle are re-attached under the root. The second return value reports
// whether anything had to change.
func repairTree(docs []domain.Document) ([]domain.Document, bool) {
	changed := false
	out := make([]domain.Document, 0, len(docs)+1)
	pos := make(map[domain.ID]int, len(docs))
	for _, d := range docs {
		if _, dup := pos[d.ID]; dup || d.ID < 0 {
			changed = true
			continue
		}
		pos[d.ID] = len(out)
		out = append(out, d.Clone())
	}

	if i, ok := pos[domain.RootDocumentID]; ok {
		if out[i].ParentID != domain.RootDocumentID {
			out[i].ParentID = domain.RootDocumentID
			changed = true
		}
		if i != 0 {
			root := out[i]
			copy(out[1:i+1], out[0:i])
			out[0] = root
			changed = true
		}
	} else {
		out = append([]domain.Document{domain.NewRootDocument()}, out...)
		changed = true
	}
	for i := range out {
		pos[out[i].ID] = i
	}

	for i := range out {
		d := &out[i]
		if d.IsRoot() {
			continue
		}
		if _, ok := pos[d.ParentID]; !ok || d.ParentID == d.ID {
			d.ParentID = domain.RootDocumentID
			changed = true
		}
	}

	if rebuildChildren(out, pos) {
		changed = true
	}

	// Anything unreachable from the root sits on a parent cycle.
	reached := reachable(out, pos)
	for i := range out {
		if reached[out[i].ID] {
			continue
		}
		out[i].ParentID = domain.RootDocumentID
		changed = true
		rebuildChildren(out, pos)
		reached = reachable(out, pos)
	}

	return out, changed
}

// rebuildChildren rewrites every children list from the parent pointers,
// keeping the existing order for entries that were already correct.
func rebuildChildren(docs []domain.Document, pos map[domain.ID]int) bool {
	pointing := make(map[domain.ID][]domain.ID, len(docs))
	for _, d := range docs {
		if d.IsRoot() {
			continue
		}
		pointing[d.ParentID] = append(pointing[d.ParentID], d.ID)
	}

	changed := false
	for i := range docs {
		d := &docs[i]
		want := pointing[d.ID]
		children := make([]domain.ID, 0, len(want))
		seen := make(map[domain.ID]bool, len(want))
		for _, c := range d.Children {
			j, ok := pos[c]
			if !ok || seen[c] || docs[j].IsRoot() || docs[j].ParentID != d.ID {
				continue
			}
			seen[c] = true
			children = append(children, c)
		}
		for _, c := range want {
			if !seen[c] {
				seen[c] = true
				children = append(children, c)
			}
		}
		if !equalIDs(children, d.Children) {
			changed = true
		}
		d.Children = children
	}
	return changed
}

func reachable(docs []domain.Document, pos map[domain.ID]int) map[domain.ID]bool {
	reached := map[domain.ID]bool{domain.RootDocumentID: true}
	queue := []domain.ID{domain.RootDocumentID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range docs[pos[id]].Children {
			if !reached[c] {
				reached[c] = true
				queue = append(queue, c)
			}
		}
	}
	return reached
}

// isDescendant reports whether candidate sits somewhere below ancestor.
func isDescendant(docs []domain.Document, ancestor, candidate domain.ID) bool {
	current := candidate
	for steps := 0; steps <= len(docs); steps++ {
		i := indexOf(docs, current)
		if i < 0 || docs[i].IsRoot() {
			return false
		}
		if docs[i].ParentID == ancestor {
			return true
		}
		current = docs[i].ParentID
	}
	return false
}

func indexOf(docs []domain.Document, id domain.ID) int {
	for i := range docs {
		if docs[i].ID == id {
			return i
		}
	}
	return -1
}

func removeID(ids []domain.ID, id domain.ID) []domain.ID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func cloneDocuments(docs []domain.Document) []domain.Document {
	out := make([]domain.Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}

func equalIDs(a, b []domain.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
