package web

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

const indexPage = "index.html"

// handleStatic serves an embedded asset when one matches the path and the
// landing page otherwise. Unknown /api/ paths get a JSON 404 instead.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r) {
		s.handleNotFound(w, r)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" || name == indexPage || !s.isFile(name) {
		name = indexPage
	}
	s.serveAsset(w, r, name)
}

// handleNotFound answers requests no route matched.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}
	http.NotFound(w, r)
}

func (s *Server) isFile(name string) bool {
	info, err := fs.Stat(s.static, name)
	return err == nil && !info.IsDir()
}

// serveAsset writes an embedded file. http.ServeFileFS is avoided for
// index.html because it redirects requests for it.
func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request, name string) {
	f, err := s.static.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), rs)
}
