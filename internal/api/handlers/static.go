package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/dom/doctree/internal/api/response"
	"github.com/dom/doctree/internal/domain"
)

// StaticHandler serves the bundled web client. Paths that do not name a file
// fall back to index.html so client-side routes survive a reload.
type StaticHandler struct {
	root string
}

func NewStaticHandler(root string) *StaticHandler {
	return &StaticHandler{root: root}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean("/" + r.URL.Path)
	if serveFile(w, r, filepath.Join(h.root, filepath.FromSlash(clean))) {
		return
	}
	if serveFile(w, r, filepath.Join(h.root, "index.html")) {
		return
	}
	response.Message(w, http.StatusNotFound, domain.KindNotFound, "not found")
}

// serveFile writes the regular file at name and reports whether it existed.
func serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}
