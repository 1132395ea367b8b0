package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dgallion1/cvtree/internal/pathstore"
	"github.com/dgallion1/cvtree/internal/session"
	"github.com/go-chi/chi/v5"
)

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		jsonError(w, "persistence is not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// handleSave stores the session's current text under the session ID.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	st := sess.Editor.State()
	doc := pathstore.Document{
		ID:       sess.ID,
		Filename: sess.Filename,
		Text:     st.Text,
		Hash:     session.ContentHashHex([]byte(st.Text)),
		SavedAt:  time.Now().UTC(),
	}
	if err := s.store.PutDocument(r.Context(), doc); err != nil {
		s.log.Error("save failed", "session_id", sess.ID, "error", err)
		jsonError(w, "save failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	s.log.Info("document saved", "session_id", sess.ID, "version", st.Version, "bytes", len(st.Text))

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           doc.ID,
		"version":      st.Version,
		"content_hash": doc.Hash,
		"saved_at":     doc.SavedAt,
	})
}

// handleRestore opens a new session from a saved document.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil || req.ID == "" {
		jsonError(w, "id is required", http.StatusBadRequest)
		return
	}

	doc, err := s.store.GetDocument(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, pathstore.ErrNotFound) {
			jsonError(w, "saved document not found", http.StatusNotFound)
			return
		}
		s.log.Error("restore failed", "id", req.ID, "error", err)
		jsonError(w, "restore failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	sess := s.sessions.Create(doc.Filename, doc.Text)
	writeJSON(w, http.StatusCreated, map[string]any{
		"restored_from": doc.ID,
		"document":      documentView(sess),
	})
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	ids, err := s.store.ListDocuments(r.Context(), 200)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusBadGateway)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": ids})
}

func (s *Server) handleDeleteSaved(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, pathstore.ErrNotFound) {
			jsonError(w, "saved document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "delete failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
