package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/cvtree/internal/doctree"
	"github.com/dgallion1/cvtree/internal/mutate"
	"github.com/dgallion1/cvtree/internal/preview"
	"github.com/dgallion1/cvtree/internal/session"
	"github.com/go-chi/chi/v5"
)

type loadRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename,omitempty"`
}

type actionsRequest struct {
	Actions []mutate.Action `json:"actions"`
}

type documentResponse struct {
	session.Info
	Tree *doctree.Tree `json:"tree"`
	Text string        `json:"text"`
}

func documentView(sess *session.Session) documentResponse {
	info, st := sess.Snapshot()
	return documentResponse{Info: info, Tree: st.Tree, Text: st.Text}
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !s.decodeDocument(w, r, &req) {
		return
	}
	sess := s.sessions.Create(sanitizeFilename(req.Filename), req.Text)
	writeJSON(w, http.StatusCreated, documentView(sess))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, documentView(sess))
}

// handleReloadDocument replaces the session's document with a fresh parse,
// as when a new draft arrives from outside the editor.
func (s *Server) handleReloadDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req loadRequest
	if !s.decodeDocument(w, r, &req) {
		return
	}
	sess.Editor.Load(req.Text)
	s.log.Info("document reloaded", "session_id", sess.ID, "bytes", len(req.Text))
	writeJSON(w, http.StatusOK, documentView(sess))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(id); err != nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetText(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	text := sess.Editor.Text()
	etag := `"` + session.ContentHashHex([]byte(text)) + `"`
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Write([]byte(text))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	out, err := preview.HTML(sess.Editor.Tree())
	if err != nil {
		s.log.Error("preview failed", "session_id", sess.ID, "error", err)
		jsonError(w, "preview failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}

// handleActions applies a batch of edits in order. The batch is validated
// up front; stale indices inside a valid batch are skipped, not rejected.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxDocumentBytes)
	var req actionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Actions) == 0 {
		jsonError(w, "at least one action is required", http.StatusBadRequest)
		return
	}
	for i, a := range req.Actions {
		if err := a.Validate(); err != nil {
			jsonError(w, fmt.Sprintf("action %d: %s", i, err), http.StatusBadRequest)
			return
		}
	}

	applied := 0
	for _, a := range req.Actions {
		if sess.Editor.Apply(a) {
			applied++
		}
	}
	s.log.Debug("actions applied", "session_id", sess.ID, "requested", len(req.Actions), "applied", applied)

	writeJSON(w, http.StatusOK, map[string]any{
		"applied":  applied,
		"skipped":  len(req.Actions) - applied,
		"document": documentView(sess),
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !sess.Editor.Undo() {
		jsonError(w, "nothing to undo", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, documentView(sess))
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !sess.Editor.Redo() {
		jsonError(w, "nothing to redo", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, documentView(sess))
}

// session resolves the {id} URL parameter, answering 404 when unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
		} else {
			jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return sess, true
}

// decodeDocument reads a loadRequest, enforcing the document size limit.
func (s *Server) decodeDocument(w http.ResponseWriter, r *http.Request, req *loadRequest) bool {
	// JSON escaping can double the size of the text; allow for it.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxDocumentBytes+1024)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if int64(len(req.Text)) > s.cfg.MaxDocumentBytes {
		jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", s.cfg.MaxDocumentBytes), http.StatusRequestEntityTooLarge)
		return false
	}
	return true
}

// etagMatches applies the weak comparison If-None-Match calls for: any
// listed tag equal to etag, ignoring W/ prefixes, or "*".
func etagMatches(header, etag string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	if name == "" {
		return ""
	}
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
