package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
	"github.com/Hrideshsrivastava/audit-bridge/internal/tenancy"
	"github.com/Hrideshsrivastava/audit-bridge/internal/upload"
)

func (s *Server) handleClientDocuments(w http.ResponseWriter, r *http.Request) {
	sess, err := tenancy.MustFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Request failed")
		return
	}

	rows, err := s.deps.Documents.ListForClient(r.Context(), sess)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load documents")
		return
	}

	if rows == nil {
		rows = []repository.DocumentRow{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleClientDashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := tenancy.MustFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Request failed")
		return
	}

	progress, err := s.deps.Documents.ClientDashboard(r.Context(), sess)
	if err != nil {
		respondRepositoryError(w, err, "No audit found", "Conflict", "Failed to load dashboard")
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

// handleUpload accepts a multipart upload for one document. The multipart
// cap leaves headroom over the file limit so the pipeline, not the parser,
// reports oversized files.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := tenancy.MustFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Request failed")
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid document id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxFileSize+1<<20)

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	result, err := s.deps.Pipeline.Upload(r.Context(), sess, documentID, file)
	if err != nil {
		s.respondUploadError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Uploaded successfully",
		"url":     result.FileURL,
		"status":  result.Status,
	})
}

func (s *Server) respondUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, upload.ErrEmptyFile),
		errors.Is(err, upload.ErrFileTooLarge),
		errors.Is(err, upload.ErrUnsupportedType):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "Document not found")

	case errors.Is(err, repository.ErrConflict):
		respondError(w, http.StatusConflict, "Document cannot accept an upload in its current state")

	default:
		respondError(w, http.StatusInternalServerError, "Upload failed")
	}
}
