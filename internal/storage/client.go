package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/capsule-systems/capsule/internal/klog"
)

// Client is an HTTP-backed Collaborator talking to an external journaled
// object store over a small JSON/HTTP protocol. Structurally this is the
// teacher's internal/llm.Client adapted line-for-line in spirit: tiered
// env-style configuration, a normalize-base-URL helper, structured request
// logging, and the same "%w"-wrapped error convention — retargeted from a
// chat-completion endpoint to storage verbs.
type Client struct {
	baseURL    string
	authToken  string
	label      string
	httpClient *http.Client
	log        zerolog.Logger
}

// normalizeBaseURL strips a trailing slash so the client never doubles the
// path separator when it appends an endpoint suffix.
func normalizeBaseURL(raw string) string {
	return strings.TrimRight(raw, "/")
}

// NewClient creates a storage collaborator client. label identifies this
// client in structured log lines (e.g. "primary", "snapshot-store").
func NewClient(baseURL, authToken, label string) *Client {
	if label == "" {
		label = "storage"
	}
	return &Client{
		baseURL:    normalizeBaseURL(baseURL),
		authToken:  authToken,
		label:      label,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        klog.Component(label),
	}
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("storage: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("storage: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("storage request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage: http request: %w", err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("storage: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("storage request failed")
		return fmt.Errorf("storage: HTTP %d: %s", resp.StatusCode, string(respData))
	}
	if respBody == nil || len(respData) == 0 {
		return nil
	}
	if err := json.Unmarshal(respData, respBody); err != nil {
		return fmt.Errorf("storage: unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) OpenTransaction(ctx context.Context) (string, error) {
	var resp struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/transactions", nil, &resp); err != nil {
		return "", err
	}
	return resp.TransactionID, nil
}

func (c *Client) ReadObject(ctx context.Context, txn, objectID string) (Object, error) {
	var resp struct {
		Bytes   []byte `json:"bytes"`
		Version string `json:"version"`
	}
	path := fmt.Sprintf("/transactions/%s/objects/%s", txn, objectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return Object{}, err
	}
	return Object{Bytes: resp.Bytes, Version: resp.Version}, nil
}

func (c *Client) WriteObject(ctx context.Context, txn, objectID string, data []byte) error {
	path := fmt.Sprintf("/transactions/%s/objects/%s", txn, objectID)
	return c.do(ctx, http.MethodPut, path, map[string]any{"bytes": data}, nil)
}

func (c *Client) Commit(ctx context.Context, txn string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/transactions/%s/commit", txn), nil, nil)
}

func (c *Client) Rollback(ctx context.Context, txn string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/transactions/%s/rollback", txn), nil, nil)
}

func (c *Client) ResolvePath(ctx context.Context, dirView, name string) (string, bool, error) {
	var resp struct {
		ObjectID string `json:"object_id"`
		Found    bool   `json:"found"`
	}
	path := fmt.Sprintf("/directories/%s/resolve?name=%s", dirView, name)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", false, err
	}
	return resp.ObjectID, resp.Found, nil
}

func (c *Client) Link(ctx context.Context, dirView, name, objectID string) error {
	path := fmt.Sprintf("/directories/%s/link", dirView)
	return c.do(ctx, http.MethodPost, path, map[string]any{"name": name, "object_id": objectID}, nil)
}
