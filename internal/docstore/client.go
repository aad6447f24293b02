// Package docstore is a client for the document host that publishes
// converted articles.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client communicates with the document host HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	msg := e.Message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, msg)
}

// DocumentRequest is the body for PUT /documents/{id}.
type DocumentRequest struct {
	Title       string         `json:"title"`
	HTML        string         `json:"html"`
	ContentHash string         `json:"content_hash"`
	Filename    string         `json:"filename,omitempty"`
	Format      string         `json:"format,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Document is the response from GET /documents/{id}.
type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	HTML        string         `json:"html"`
	ContentHash string         `json:"content_hash"`
	Filename    string         `json:"filename,omitempty"`
	URL         string         `json:"url,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Summary is a single entry of a listing.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PutDocument stores or replaces a document and returns its public URL.
func (c *Client) PutDocument(ctx context.Context, id string, req DocumentRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, "/documents/"+url.PathEscape(id), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("put document: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "put document "+id, http.StatusOK, http.StatusCreated); err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return "", fmt.Errorf("decode put response: %w", err)
	}
	return out.URL, nil
}

// PutAttachment uploads a rendition of a document, such as its DOCX export.
func (c *Client) PutAttachment(ctx context.Context, id, name, contentType string, data []byte) error {
	path := "/documents/" + url.PathEscape(id) + "/attachments/" + url.PathEscape(name)
	resp, err := c.do(ctx, http.MethodPut, path, contentType, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("put attachment: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, "put attachment "+id+"/"+name, http.StatusOK, http.StatusCreated, http.StatusNoContent)
}

// GetDocument retrieves a document by id. A missing document is (nil, nil).
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	resp, err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), "", nil)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := checkStatus(resp, "get document "+id, http.StatusOK); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// DeleteDocument deletes a document and its attachments.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), "", nil)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, "delete document "+id, http.StatusOK, http.StatusNoContent)
}

// ListDocuments returns up to limit documents, newest first.
func (c *Client) ListDocuments(ctx context.Context, limit int) ([]Summary, error) {
	path := "/documents"
	if limit > 0 {
		path += "?limit=" + url.QueryEscape(strconv.Itoa(limit))
	}
	return c.list(ctx, path, "list documents")
}

// FindByHash returns the id of a document with the given content hash, or ""
// when none exists.
func (c *Client) FindByHash(ctx context.Context, hash string) (string, error) {
	docs, err := c.list(ctx, "/documents/by_hash/"+url.PathEscape(hash)+"?limit=1", "find by hash")
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", nil
	}
	return docs[0].ID, nil
}

func (c *Client) list(ctx context.Context, path, op string) ([]Summary, error) {
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := checkStatus(resp, op, http.StatusOK); err != nil {
		return nil, err
	}

	var result struct {
		Documents []Summary `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode %s: %w", op, err)
	}
	return result.Documents, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.httpClient.Do(httpReq)
}

// checkStatus maps unexpected statuses to errors. 429 and 5xx are retryable.
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
