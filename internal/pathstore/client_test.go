package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeStore is an in-memory stand-in for the pathstore KV API.
type fakeStore struct {
	mu    sync.Mutex
	nodes map[string]json.RawMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{nodes: make(map[string]json.RawMessage)}
}

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/kv/")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(key, "/*"):
		prefix := strings.TrimSuffix(key, "*")
		var nodes []map[string]any
		for k, v := range f.nodes {
			if strings.HasPrefix(k, prefix) {
				nodes = append(nodes, map[string]any{"key_path": k, "value": v})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"nodes": nodes})
	case r.Method == http.MethodPut:
		var req struct {
			Value json.RawMessage `json:"value"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.nodes[key] = req.Value
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodGet:
		v, ok := f.nodes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
	case r.Method == http.MethodDelete:
		if _, ok := f.nodes[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.nodes, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(url string) *Client {
	c := NewClient(url, "secret")
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestClient_DocumentLifecycle(t *testing.T) {
	srv := httptest.NewServer(newFakeStore())
	defer srv.Close()
	c := newTestClient(srv.URL)
	ctx := context.Background()

	doc := Document{
		ID:       "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Filename: "jane.cv",
		Text:     "# Jane Doe\n",
		Hash:     "abc",
		SavedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := c.PutDocument(ctx, doc); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := c.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != doc.Text || got.Filename != doc.Filename || !got.SavedAt.Equal(doc.SavedAt) {
		t.Errorf("expected %+v, got %+v", doc, got)
	}

	ids, err := c.ListDocuments(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != doc.ID {
		t.Errorf("expected [%s], got %v", doc.ID, ids)
	}

	if err := c.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetDocument(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := c.DeleteDocument(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestClient_PutDocumentRequiresID(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")
	if err := c.PutDocument(context.Background(), Document{Text: "x"}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	store := newFakeStore()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		store.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if err := c.PutDocument(context.Background(), Document{ID: "doc", Text: "x"}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.PutDocument(context.Background(), Document{ID: "doc"})
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if n := calls.Load(); n != MaxRetries {
		t.Errorf("expected %d attempts, got %d", MaxRetries, n)
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.GetDocument(context.Background(), "doc")
	if err == nil || IsRetryable(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
}

func TestClient_ContextCancelStopsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.PutDocument(ctx, Document{ID: "doc"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: expected [%s, %s), got %s", attempt, base, base+base/2, d)
		}
	}
	if d := Backoff(10); d < 30*time.Second || d >= 45*time.Second {
		t.Errorf("expected capped backoff, got %s", d)
	}
}

func TestRetryableError(t *testing.T) {
	err := &RetryableError{StatusCode: 503, Message: strings.Repeat("x", 300)}
	if !strings.HasPrefix(err.Error(), "retryable error (status 503): ") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !strings.HasSuffix(err.Error(), "...") {
		t.Error("expected long message to be truncated")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("expected plain error not to be retryable")
	}
}
