package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Record is a vector plus metadata to upsert into the index. Record ids are
// derived deterministically from the document id and chunk index, so
// re-upserting the same document overwrites instead of duplicating.
type Record struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

// Metadata travels with each vector and comes back on query matches.
type Metadata struct {
	Text       string `json:"text"`
	DocumentID string `json:"document_id"`
	CorpusID   string `json:"corpus_id,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
}

// Match is a single similarity-search result, ordered by descending score.
type Match struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

type upsertRequest struct {
	Vectors []Record `json:"vectors"`
}

type queryRequest struct {
	Vector          []float32         `json:"vector"`
	Filter          map[string]string `json:"filter"`
	TopK            int               `json:"topK"`
	IncludeMetadata bool              `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Client talks to the external nearest-neighbor index service over JSON/HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a vector index client. timeout bounds every call.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Upsert writes all records in one batched call. The index overwrites
// records whose ids already exist.
func (c *Client) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	var resp upsertResponse
	if err := c.post(ctx, "/vectors/upsert", upsertRequest{Vectors: records}, &resp); err != nil {
		return fmt.Errorf("vector upsert failed: %w", err)
	}

	return nil
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// Query runs a filtered similarity search and returns up to topK matches
// with metadata, in the order the index ranks them.
func (c *Client) Query(ctx context.Context, vector []float32, filter map[string]string, topK int) ([]Match, error) {
	req := queryRequest{
		Vector:          vector,
		Filter:          filter,
		TopK:            topK,
		IncludeMetadata: true,
	}

	var resp queryResponse
	if err := c.post(ctx, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	return resp.Matches, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("index returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
