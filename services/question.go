package services

import (
	"context"
	"fmt"
	"strings"

	"document-qa-platform/internal/vectorindex"
	"document-qa-platform/models"
)

// NoRelevantContent is returned when the similarity search yields no
// matches. It is an answer, not an error, and the generation client is not
// invoked in that case.
const NoRelevantContent = "No relevant content found in the document to answer this question."

// QueryEmbedder is the single-vector form of the embedding service.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher runs filtered similarity queries against the index.
type VectorSearcher interface {
	Query(ctx context.Context, vector []float32, filter map[string]string, topK int) ([]vectorindex.Match, error)
}

// GenerationClient synthesizes an answer constrained to retrieved context.
type GenerationClient interface {
	GenerateAnswer(ctx context.Context, question, contextText string) (string, error)
}

// QuestionService answers natural-language questions over one document or
// one corpus. Failures are not caught here; they propagate to the request
// boundary as typed errors.
type QuestionService struct {
	embedder  QueryEmbedder
	index     VectorSearcher
	generator GenerationClient
	topK      int
}

// NewQuestionService creates a QA engine with its clients injected.
func NewQuestionService(embedder QueryEmbedder, index VectorSearcher, generator GenerationClient, topK int) *QuestionService {
	if topK <= 0 {
		topK = 3
	}

	return &QuestionService{
		embedder:  embedder,
		index:     index,
		generator: generator,
		topK:      topK,
	}
}

// Answer embeds the question, retrieves the nearest chunks scoped to
// targetID (a document id, or a corpus id when corpusScope is set),
// assembles the context and generates a grounded answer.
func (qs *QuestionService) Answer(ctx context.Context, targetID, question string, corpusScope bool) (string, error) {
	if targetID == "" {
		return "", fmt.Errorf("%w: target id is required", models.ErrValidation)
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is required", models.ErrValidation)
	}

	embedding, err := qs.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrRetrieval, err)
	}

	filter := map[string]string{"document_id": targetID}
	if corpusScope {
		filter = map[string]string{"corpus_id": targetID}
	}

	matches, err := qs.index.Query(ctx, embedding, filter, qs.topK)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrRetrieval, err)
	}

	if len(matches) == 0 {
		return NoRelevantContent, nil
	}

	contextParts := make([]string, len(matches))
	for i, match := range matches {
		contextParts[i] = match.Metadata.Text
	}
	contextText := strings.Join(contextParts, "\n\n")

	return qs.generator.GenerateAnswer(ctx, question, contextText)
}
