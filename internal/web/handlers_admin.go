package web

import (
	"fmt"
	"net/http"
	"strconv"
)

// handleAdminData returns every record, newest first.
func (s *Server) handleAdminData(w http.ResponseWriter, r *http.Request) {
	records, err := s.admin.GetAll(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleAdminDownload streams the .xlsx export as an attachment. Failures
// are reported as plain text.
func (s *Server) handleAdminDownload(w http.ResponseWriter, r *http.Request) {
	dl, err := s.admin.Download(r.Context())
	if err != nil {
		logRequestError(r, err, http.StatusInternalServerError)
		http.Error(w, "Error generating Excel file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.Write(dl.Data)
}

// handleAdminPage serves the admin table.
func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, "admin.html")
}
