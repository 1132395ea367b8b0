package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dgallion1/cvtree/internal/parser"
	"github.com/dgallion1/cvtree/internal/serializer"
	"github.com/dgallion1/cvtree/internal/stats"
)

// handleImport converts an uploaded file (markdown, HTML, PDF, DOCX or
// dialect text) into a new editing session.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	p, err := parser.ForFile(filename, parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	tree, err := p.Parse(bytes.NewReader(data), filename)
	s.stats.Since(stats.OpImport, start)
	if err != nil {
		s.log.Warn("import failed", "filename", filename, "error", err)
		jsonError(w, "could not read document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	text := serializer.Serialize(tree)
	if int64(len(text)) > s.cfg.MaxDocumentBytes {
		jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", s.cfg.MaxDocumentBytes), http.StatusRequestEntityTooLarge)
		return
	}

	sess := s.sessions.Create(filename, text)
	writeJSON(w, http.StatusCreated, documentView(sess))
}
