package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa-platform/internal/vectorindex"
	"document-qa-platform/models"
)

type fakeQueryEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

type fakeSearcher struct {
	matches   []vectorindex.Match
	err       error
	gotFilter map[string]string
	gotTopK   int
}

func (f *fakeSearcher) Query(ctx context.Context, vector []float32, filter map[string]string, topK int) ([]vectorindex.Match, error) {
	f.gotFilter = filter
	f.gotTopK = topK
	return f.matches, f.err
}

type fakeGenerator struct {
	answer     string
	err        error
	called     bool
	gotContext string
}

func (f *fakeGenerator) GenerateAnswer(ctx context.Context, question, contextText string) (string, error) {
	f.called = true
	f.gotContext = contextText
	return f.answer, f.err
}

func matchWithText(text string) vectorindex.Match {
	return vectorindex.Match{
		ID:       "doc-1_0",
		Score:    0.9,
		Metadata: vectorindex.Metadata{Text: text, DocumentID: "doc-1"},
	}
}

func TestAnswerHappyPath(t *testing.T) {
	searcher := &fakeSearcher{matches: []vectorindex.Match{matchWithText("Paris is the capital of France.")}}
	generator := &fakeGenerator{answer: "Paris."}
	qs := NewQuestionService(&fakeQueryEmbedder{vector: []float32{0.1}}, searcher, generator, 3)

	answer, err := qs.Answer(context.Background(), "doc-1", "What is the capital of France?", false)

	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
	assert.True(t, generator.called)
	assert.Equal(t, map[string]string{"document_id": "doc-1"}, searcher.gotFilter)
	assert.Equal(t, 3, searcher.gotTopK)
}

func TestAnswerContextAssembly(t *testing.T) {
	searcher := &fakeSearcher{matches: []vectorindex.Match{
		matchWithText("Paris is the capital of France."),
		matchWithText("It has been since the 17th century."),
	}}
	generator := &fakeGenerator{answer: "Paris."}
	qs := NewQuestionService(&fakeQueryEmbedder{vector: []float32{0.1}}, searcher, generator, 3)

	_, err := qs.Answer(context.Background(), "doc-1", "Since when?", false)

	require.NoError(t, err)
	assert.Equal(t,
		"Paris is the capital of France.\n\nIt has been since the 17th century.",
		generator.gotContext)
}

func TestAnswerNoMatchesReturnsSentinel(t *testing.T) {
	generator := &fakeGenerator{answer: "should not be used"}
	qs := NewQuestionService(&fakeQueryEmbedder{vector: []float32{0.1}}, &fakeSearcher{}, generator, 3)

	answer, err := qs.Answer(context.Background(), "doc-1", "Anything?", false)

	require.NoError(t, err)
	assert.Equal(t, NoRelevantContent, answer)
	assert.False(t, generator.called)
}

func TestAnswerUnknownTargetReturnsSentinel(t *testing.T) {
	qs := NewQuestionService(&fakeQueryEmbedder{vector: []float32{0.1}}, &fakeSearcher{}, &fakeGenerator{}, 3)

	answer, err := qs.Answer(context.Background(), "999", "X", false)

	require.NoError(t, err)
	assert.Equal(t, NoRelevantContent, answer)
}

func TestAnswerCorpusScopeFilter(t *testing.T) {
	searcher := &fakeSearcher{}
	qs := NewQuestionService(&fakeQueryEmbedder{vector: []float32{0.1}}, searcher, &fakeGenerator{}, 3)

	_, err := qs.Answer(context.Background(), "corpus-1", "Anything?", true)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"corpus_id": "corpus-1"}, searcher.gotFilter)
}

func TestAnswerEmbeddingFailureIsRetrievalError(t *testing.T) {
	qs := NewQuestionService(&fakeQueryEmbedder{err: errors.New("embed down")}, &fakeSearcher{}, &fakeGenerator{}, 3)

	_, err := qs.Answer(context.Background(), "doc-1", "X", false)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRetrieval)
}

func TestAnswerQueryFailureIsRetrievalError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index down")}
	generator := &fakeGenerator{}
	qs := NewQuestionService(&fakeQueryEmbedder{vector: []float32{0.1}}, searcher, generator, 3)

	_, err := qs.Answer(context.Background(), "doc-1", "X", false)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRetrieval)
	assert.False(t, generator.called)
}

func TestAnswerGenerationFailurePropagates(t *testing.T) {
	searcher := &fakeSearcher{matches: []vectorindex.Match{matchWithText("context")}}
	generator := &fakeGenerator{err: models.ErrGeneration}
	qs := NewQuestionService(&fakeQueryEmbedder{vector: []float32{0.1}}, searcher, generator, 3)

	_, err := qs.Answer(context.Background(), "doc-1", "X", false)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGeneration)
	assert.NotErrorIs(t, err, models.ErrRetrieval)
}

func TestAnswerValidatesInput(t *testing.T) {
	qs := NewQuestionService(&fakeQueryEmbedder{}, &fakeSearcher{}, &fakeGenerator{}, 3)

	_, err := qs.Answer(context.Background(), "", "X", false)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = qs.Answer(context.Background(), "doc-1", "   ", false)
	assert.ErrorIs(t, err, models.ErrValidation)
}
