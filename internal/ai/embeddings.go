package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// EmbeddedChunk is one chunk of a document together with its embedding
// vector, as produced by the batch form of the embedding service.
type EmbeddedChunk struct {
	Index     int       `json:"chunk_index"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// GeminiEmbedder produces embeddings with Google Generative AI
// (text-embedding-004 by default). Document text is chunked locally with
// the deterministic chunker, then embedded in one batch call.
type GeminiEmbedder struct {
	client  *genai.Client
	model   string
	chunker *Chunker
}

// NewGeminiEmbedder creates a Gemini-backed embedding client.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, chunker *Chunker) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GeminiEmbedder{
		client:  client,
		model:   model,
		chunker: chunker,
	}, nil
}

// EmbedDocument chunks text and returns one embedding per chunk. A single
// batch request covers all chunks.
func (e *GeminiEmbedder) EmbedDocument(ctx context.Context, text string) ([]EmbeddedChunk, error) {
	chunks := e.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, nil
	}

	model := e.client.EmbeddingModel(e.model)
	batch := model.NewBatch()
	for _, ch := range chunks {
		batch = batch.AddContent(genai.Text(ch.Text))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("batch embedding failed: %w", err)
	}
	if len(resp.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(resp.Embeddings), len(chunks))
	}

	embedded := make([]EmbeddedChunk, len(chunks))
	for i, ch := range chunks {
		if resp.Embeddings[i] == nil {
			return nil, fmt.Errorf("no embedding returned for chunk %d", i)
		}
		embedded[i] = EmbeddedChunk{
			Index:     ch.Index,
			Text:      ch.Text,
			Embedding: resp.Embeddings[i].Values,
		}
	}

	return embedded, nil
}

// EmbedQuery returns a single embedding for a question.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	model := e.client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Embedding.Values, nil
}

// Close releases the underlying API client.
func (e *GeminiEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// LocalEmbedder talks to a self-hosted embedding service over JSON/HTTP.
// The service chunks and embeds document text server-side with the same
// deterministic policy.
type LocalEmbedder struct {
	baseURL    string
	httpClient *http.Client
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedDocumentResponse struct {
	Chunks []EmbeddedChunk `json:"chunks"`
}

type embedQueryResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewLocalEmbedder creates a client for the local embedding service.
func NewLocalEmbedder(baseURL string, timeout time.Duration) *LocalEmbedder {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &LocalEmbedder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// EmbedDocument sends the full text and receives embedded chunks back.
func (e *LocalEmbedder) EmbedDocument(ctx context.Context, text string) ([]EmbeddedChunk, error) {
	var resp embedDocumentResponse
	if err := e.post(ctx, "/embed", embedRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("document embedding failed: %w", err)
	}

	return resp.Chunks, nil
}

// EmbedQuery returns a single embedding for a question.
func (e *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var resp embedQueryResponse
	if err := e.post(ctx, "/embed-text", embedRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned from service")
	}

	return resp.Embedding, nil
}

func (e *LocalEmbedder) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
