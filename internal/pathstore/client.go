package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when no node exists at a key.
var ErrNotFound = errors.New("not found")

const documentPrefix = "cvtree/documents"

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: Backoff,
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value      any    `json:"value"`
	MemoryType string `json:"memory_type,omitempty"`
	Source     string `json:"source,omitempty"`
}

// NodeResponse is the response from GET /kv/{key}.
type NodeResponse struct {
	Key   string          `json:"key_path"`
	Value json.RawMessage `json:"value"`
}

// Document is a saved dialect document. The text is stored as an opaque blob.
type Document struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename,omitempty"`
	Text     string    `json:"text"`
	Hash     string    `json:"content_hash"`
	SavedAt  time.Time `json:"saved_at"`
}

// PutDocument saves doc under its ID.
func (c *Client) PutDocument(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("put document: empty id")
	}
	return c.PutNode(ctx, documentKey(doc.ID), NodeRequest{
		Value:      doc,
		MemoryType: "document",
		Source:     "cvtree",
	})
}

// GetDocument loads a saved document. It returns ErrNotFound when none exists.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	node, err := c.GetNode(ctx, documentKey(id))
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(node.Value, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return &doc, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.DeleteNode(ctx, documentKey(id))
}

// ListDocuments returns the IDs of saved documents.
func (c *Client) ListDocuments(ctx context.Context, limit int) ([]string, error) {
	nodes, err := c.ListChildren(ctx, documentPrefix, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, strings.TrimPrefix(n.Key, documentPrefix+"/"))
	}
	return ids, nil
}

func documentKey(id string) string {
	return documentPrefix + "/" + url.PathEscape(id)
}

// PutNode stores or updates a node at the given path.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	return c.withRetry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodPut, c.baseURL+"/kv/"+key, body)
		if err != nil {
			return fmt.Errorf("put node %s: %w", key, err)
		}
		defer resp.Body.Close()
		return checkStatus(resp, "put node "+key, http.StatusOK, http.StatusCreated)
	})
}

// GetNode retrieves a node by key.
func (c *Client) GetNode(ctx context.Context, key string) (*NodeResponse, error) {
	var node NodeResponse
	err := c.withRetry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/kv/"+key, nil)
		if err != nil {
			return fmt.Errorf("get node %s: %w", key, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("get node %s: %w", key, ErrNotFound)
		}
		if err := checkStatus(resp, "get node "+key, http.StatusOK); err != nil {
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
			return fmt.Errorf("decode node: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// DeleteNode deletes a node. Deleting a missing node returns ErrNotFound.
func (c *Client) DeleteNode(ctx context.Context, key string) error {
	return c.withRetry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodDelete, c.baseURL+"/kv/"+key, nil)
		if err != nil {
			return fmt.Errorf("delete node %s: %w", key, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("delete node %s: %w", key, ErrNotFound)
		}
		return checkStatus(resp, "delete node "+key, http.StatusOK, http.StatusNoContent)
	})
}

// ListChildrenResponse is a single node from a prefix scan.
type ListChildrenResponse struct {
	Key   string          `json:"key_path"`
	Value json.RawMessage `json:"value"`
}

// ListChildren does a prefix scan under the given key.
func (c *Client) ListChildren(ctx context.Context, key string, limit int) ([]ListChildrenResponse, error) {
	u := c.baseURL + "/kv/" + key + "/*"
	if limit > 0 {
		u += "?limit=" + url.QueryEscape(fmt.Sprintf("%d", limit))
	}

	var result struct {
		Nodes []ListChildrenResponse `json:"nodes"`
	}
	err := c.withRetry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("list children %s: %w", key, err)
		}
		defer resp.Body.Close()
		if err := checkStatus(resp, "list children "+key, http.StatusOK); err != nil {
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decode children: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result.Nodes, nil
}

func (c *Client) do(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &RetryableError{Message: err.Error()}
	}
	return resp, nil
}

// checkStatus maps unexpected statuses to errors. 429 and 5xx responses are
// retryable.
func checkStatus(resp *http.Response, op string, ok ...int) error {
	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%s: %w", op, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)})
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, string(respBody))
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
