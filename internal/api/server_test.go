package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/cvtree/internal/config"
	"github.com/dgallion1/cvtree/internal/editor"
	"github.com/dgallion1/cvtree/internal/pathstore"
	"github.com/dgallion1/cvtree/internal/session"
	"github.com/dgallion1/cvtree/internal/stats"
)

const janeDoe = `# Jane Doe
jane@example.com | 555-0100
# Experience
- **Acme Corp** | 2020-2023
- Shipped three releases
`

const testKey = "test-key"

type memoryStore struct {
	mu   sync.Mutex
	docs map[string]pathstore.Document
}

func (m *memoryStore) PutDocument(ctx context.Context, doc pathstore.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *memoryStore) GetDocument(ctx context.Context, id string) (*pathstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, pathstore.ErrNotFound)
	}
	return &doc, nil
}

func (m *memoryStore) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return pathstore.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memoryStore) ListDocuments(ctx context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.docs {
		ids = append(ids, id)
	}
	return ids, nil
}

func newTestServer(t *testing.T, store DocumentStore) *Server {
	t.Helper()
	cfg := config.Config{
		APIKey:           testKey,
		MaxDocumentBytes: 4096,
		MaxUploadBytes:   1 << 20,
	}
	log := slog.New(slog.DiscardHandler)
	rec := stats.New(time.Hour)
	sessions := session.NewStore(time.Hour, editor.Options{Stats: rec, Logger: log}, log)
	return NewServer(sessions, store, rec, log, cfg)
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func createDocument(t *testing.T, srv http.Handler) documentResponse {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/documents", loadRequest{Text: janeDoe, Filename: "jane.cv"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[documentResponse](t, rec)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, nil)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestDocumentLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	doc := createDocument(t, srv)

	if doc.Version != 1 || doc.Filename != "jane.cv" {
		t.Errorf("unexpected document info: %+v", doc.Info)
	}
	if name := doc.Tree.Name(); name == nil || name.Text != "Jane Doe" {
		t.Errorf("expected parsed name, got %+v", name)
	}

	rec := do(t, srv, http.MethodGet, "/api/documents/"+doc.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[documentResponse](t, rec); got.Text != doc.Text {
		t.Errorf("expected same text, got %q", got.Text)
	}

	rec = do(t, srv, http.MethodPut, "/api/documents/"+doc.ID, loadRequest{Text: "# John Roe"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[documentResponse](t, rec); got.Text != "# John Roe\n" || got.Version != 2 {
		t.Errorf("expected reloaded document, got %q v%d", got.Text, got.Version)
	}

	rec = do(t, srv, http.MethodDelete, "/api/documents/"+doc.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/api/documents/"+doc.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestCreateDocument_Validation(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad json, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/documents", loadRequest{Text: strings.Repeat("a", 5000)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for oversized document, got %d", rec.Code)
	}
}

func TestTextAndPreview(t *testing.T) {
	srv := newTestServer(t, nil)
	doc := createDocument(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+doc.ID+"/text", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != doc.Text {
		t.Errorf("expected %q, got %q", doc.Text, rec.Body.String())
	}
	etag := rec.Header().Get("ETag")
	if etag != `"`+doc.ContentHash+`"` {
		t.Errorf("expected etag of content hash, got %s", etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+doc.ID+"/text", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("expected 304, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/documents/"+doc.ID+"/preview", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `<h1 class="name" data-path="0">Jane Doe</h1>`) {
		t.Errorf("unexpected preview: %s", rec.Body.String())
	}
}

func TestActions(t *testing.T) {
	srv := newTestServer(t, nil)
	doc := createDocument(t, srv)
	path := "/api/documents/" + doc.ID + "/actions"

	body := map[string]any{"actions": []map[string]any{
		{"type": "add_bullet", "section": 0, "text": "Mentored interns"},
		{"type": "update_node", "path": []int{2, 0, 0}, "value": map[string]any{"text": "Acme Inc", "subtitle": "2020-2024"}},
		{"type": "remove_bullet", "section": 0, "bullet": 42},
	}}
	rec := do(t, srv, http.MethodPost, path, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Applied  int              `json:"applied"`
		Skipped  int              `json:"skipped"`
		Document documentResponse `json:"document"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Applied != 2 || resp.Skipped != 1 {
		t.Errorf("expected 2 applied and 1 skipped, got %d/%d", resp.Applied, resp.Skipped)
	}
	want := "# Jane Doe\njane@example.com • 555-0100\n\n# Experience\n- **Acme Inc** | 2020-2024\n- Shipped three releases\n- Mentored interns\n"
	if resp.Document.Text != want {
		t.Errorf("expected %q, got %q", want, resp.Document.Text)
	}
	if resp.Document.Version != 3 {
		t.Errorf("expected version 3, got %d", resp.Document.Version)
	}

	bad := map[string]any{"actions": []map[string]any{
		{"type": "add_bullet", "section": 0, "text": "ok"},
		{"type": "explode"},
	}}
	rec = do(t, srv, http.MethodPost, path, bad)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid action, got %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/api/documents/"+doc.ID, nil)
	if got := decode[documentResponse](t, rec); got.Version != 3 {
		t.Errorf("expected rejected batch to apply nothing, got version %d", got.Version)
	}

	rec = do(t, srv, http.MethodPost, path, map[string]any{"actions": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty batch, got %d", rec.Code)
	}
}

func TestUndoRedo(t *testing.T) {
	srv := newTestServer(t, nil)
	doc := createDocument(t, srv)
	base := "/api/documents/" + doc.ID

	if rec := do(t, srv, http.MethodPost, base+"/undo", nil); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 with empty history, got %d", rec.Code)
	}

	do(t, srv, http.MethodPost, base+"/actions", map[string]any{"actions": []map[string]any{
		{"type": "remove_bullet", "section": 0, "bullet": 1},
	}})

	rec := do(t, srv, http.MethodPost, base+"/undo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[documentResponse](t, rec); got.Text != doc.Text || !got.CanRedo {
		t.Errorf("expected original text with redo available, got %q redo=%v", got.Text, got.CanRedo)
	}

	rec = do(t, srv, http.MethodPost, base+"/redo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[documentResponse](t, rec); strings.Contains(got.Text, "Shipped") {
		t.Errorf("expected bullet removed again, got %q", got.Text)
	}
	if rec := do(t, srv, http.MethodPost, base+"/redo", nil); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 with empty redo, got %d", rec.Code)
	}
}

func TestSaveRestore(t *testing.T) {
	store := &memoryStore{docs: make(map[string]pathstore.Document)}
	srv := newTestServer(t, store)
	doc := createDocument(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/documents/"+doc.ID+"/save", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	saved, ok := store.docs[doc.ID]
	if !ok || saved.Text != doc.Text || saved.Hash != doc.ContentHash {
		t.Fatalf("expected document in store, got %+v", saved)
	}

	rec = do(t, srv, http.MethodGet, "/api/saved", nil)
	if list := decode[map[string][]string](t, rec); len(list["documents"]) != 1 {
		t.Errorf("expected 1 saved document, got %v", list)
	}

	rec = do(t, srv, http.MethodPost, "/api/documents/restore", map[string]string{"id": doc.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var restored struct {
		RestoredFrom string           `json:"restored_from"`
		Document     documentResponse `json:"document"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&restored); err != nil {
		t.Fatal(err)
	}
	if restored.RestoredFrom != doc.ID || restored.Document.ID == doc.ID {
		t.Errorf("expected a new session restored from %s, got %+v", doc.ID, restored)
	}
	if restored.Document.Text != doc.Text {
		t.Errorf("expected restored text %q, got %q", doc.Text, restored.Document.Text)
	}

	if rec := do(t, srv, http.MethodPost, "/api/documents/restore", map[string]string{"id": "missing"}); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown saved document, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/saved/"+doc.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/saved/"+doc.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestPersistenceDisabled(t *testing.T) {
	srv := newTestServer(t, nil)
	doc := createDocument(t, srv)
	if rec := do(t, srv, http.MethodPost, "/api/documents/"+doc.ID+"/save", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/saved", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func multipartUpload(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func TestImport(t *testing.T) {
	srv := newTestServer(t, nil)

	md := "# Jane Doe\n\n## Skills\n\n- **Go**\n- Rust\n"
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartUpload(t, "resume.md", md))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	doc := decode[documentResponse](t, rec)
	if doc.Filename != "resume.md" {
		t.Errorf("expected filename resume.md, got %q", doc.Filename)
	}
	want := "# Jane Doe\n\n# Skills\n- **Go**\n- Rust\n"
	if doc.Text != want {
		t.Errorf("expected %q, got %q", want, doc.Text)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartUpload(t, "resume.exe", "x"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported type, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/stats", nil)
	var st struct {
		Sessions   int                       `json:"sessions"`
		Operations map[string]stats.Snapshot `json:"operations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Sessions != 1 {
		t.Errorf("expected 1 session, got %d", st.Sessions)
	}
	if st.Operations[stats.OpImport].Count != 1 {
		t.Errorf("expected 1 import sample, got %+v", st.Operations)
	}
}

func TestTextETagForms(t *testing.T) {
	srv := newTestServer(t, nil)
	doc := createDocument(t, srv)
	etag := `"` + doc.ContentHash + `"`

	tests := []struct {
		header string
		want   int
	}{
		{etag, http.StatusNotModified},
		{"W/" + etag, http.StatusNotModified},
		{`"stale", ` + etag, http.StatusNotModified},
		{`"stale",W/` + etag, http.StatusNotModified},
		{"*", http.StatusNotModified},
		{`"stale"`, http.StatusOK},
		{"", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/documents/"+doc.ID+"/text", nil)
		req.Header.Set("Authorization", "Bearer "+testKey)
		if tt.header != "" {
			req.Header.Set("If-None-Match", tt.header)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("If-None-Match %q: expected %d, got %d", tt.header, tt.want, rec.Code)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"resume.md":        "resume.md",
		"../../etc/passwd": "passwd",
		"a..b.txt":         "a_b.txt",
		"dir/cv.docx":      "cv.docx",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
