package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa-platform/internal/ai"
	"document-qa-platform/internal/vectorindex"
	"document-qa-platform/models"
)

type fakeStatusStore struct {
	statuses       map[string]string
	corpusStatuses map[string]string
	memberStatuses map[string][]string
	statusErr      error
	writes         []string
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{
		statuses:       make(map[string]string),
		corpusStatuses: make(map[string]string),
		memberStatuses: make(map[string][]string),
	}
}

func (f *fakeStatusStore) UpdateStatus(ctx context.Context, id, status string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statuses[id] = status
	f.writes = append(f.writes, status)
	return nil
}

func (f *fakeStatusStore) CorpusMemberStatuses(ctx context.Context, corpusID string) ([]string, error) {
	return f.memberStatuses[corpusID], nil
}

func (f *fakeStatusStore) UpdateCorpusStatus(ctx context.Context, corpusID, status string) error {
	f.corpusStatuses[corpusID] = status
	return nil
}

type fakeEmbedder struct {
	chunks []ai.EmbeddedChunk
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedDocument(ctx context.Context, text string) ([]ai.EmbeddedChunk, error) {
	f.calls++
	return f.chunks, f.err
}

type fakeIndex struct {
	records map[string]vectorindex.Record
	err     error
	upserts int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: make(map[string]vectorindex.Record)}
}

func (f *fakeIndex) Upsert(ctx context.Context, records []vectorindex.Record) error {
	if f.err != nil {
		return f.err
	}
	f.upserts++
	for _, r := range records {
		f.records[r.ID] = r
	}
	return nil
}

func newTask(t *testing.T, p ProcessDocumentPayload) *asynq.Task {
	t.Helper()
	task, err := NewProcessDocumentTask(p, DefaultRetryPolicy(), time.Minute)
	require.NoError(t, err)
	return task
}

func embeddedChunks(n int) []ai.EmbeddedChunk {
	chunks := make([]ai.EmbeddedChunk, n)
	for i := range chunks {
		chunks[i] = ai.EmbeddedChunk{
			Index:     i,
			Text:      fmt.Sprintf("chunk %d", i),
			Embedding: []float32{float32(i), 0.5},
		}
	}
	return chunks
}

func TestProcessDocumentSuccess(t *testing.T) {
	store := newFakeStatusStore()
	index := newFakeIndex()
	p := NewProcessor(store, &fakeEmbedder{chunks: embeddedChunks(2)}, index)

	task := newTask(t, ProcessDocumentPayload{DocumentID: "doc-1", Filename: "a.pdf", Text: "hello world"})
	err := p.ProcessDocument(context.Background(), task)

	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, store.statuses["doc-1"])
	assert.Len(t, index.records, 2)
	assert.Contains(t, index.records, "doc-1_0")
	assert.Contains(t, index.records, "doc-1_1")
	assert.Equal(t, "doc-1", index.records["doc-1_0"].Metadata.DocumentID)
	assert.Equal(t, "chunk 0", index.records["doc-1_0"].Metadata.Text)
}

func TestProcessDocumentIsIdempotent(t *testing.T) {
	store := newFakeStatusStore()
	index := newFakeIndex()
	p := NewProcessor(store, &fakeEmbedder{chunks: embeddedChunks(3)}, index)

	task := newTask(t, ProcessDocumentPayload{DocumentID: "doc-1", Filename: "a.pdf", Text: "hello world"})

	require.NoError(t, p.ProcessDocument(context.Background(), task))
	firstIDs := make([]string, 0, len(index.records))
	for id := range index.records {
		firstIDs = append(firstIDs, id)
	}

	// Simulate redelivery of the same job.
	require.NoError(t, p.ProcessDocument(context.Background(), task))

	assert.Equal(t, 2, index.upserts)
	assert.Len(t, index.records, len(firstIDs))
	for _, id := range firstIDs {
		assert.Contains(t, index.records, id)
	}
}

func TestProcessDocumentEmptyTextIsFatal(t *testing.T) {
	store := newFakeStatusStore()
	embedder := &fakeEmbedder{chunks: embeddedChunks(1)}
	p := NewProcessor(store, embedder, newFakeIndex())

	task := newTask(t, ProcessDocumentPayload{DocumentID: "doc-1", Filename: "a.pdf", Text: ""})
	err := p.ProcessDocument(context.Background(), task)

	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, models.StatusFailed, store.statuses["doc-1"])
	assert.Zero(t, embedder.calls)
}

func TestProcessDocumentEmbeddingFailureIsRetryable(t *testing.T) {
	store := newFakeStatusStore()
	p := NewProcessor(store, &fakeEmbedder{err: errors.New("embedding service down")}, newFakeIndex())

	task := newTask(t, ProcessDocumentPayload{DocumentID: "doc-1", Filename: "a.pdf", Text: "hello"})
	err := p.ProcessDocument(context.Background(), task)

	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, models.StatusFailed, store.statuses["doc-1"])
}

func TestProcessDocumentUpsertFailureSetsFailed(t *testing.T) {
	store := newFakeStatusStore()
	index := newFakeIndex()
	index.err = errors.New("index unavailable")
	p := NewProcessor(store, &fakeEmbedder{chunks: embeddedChunks(1)}, index)

	task := newTask(t, ProcessDocumentPayload{DocumentID: "doc-1", Filename: "a.pdf", Text: "hello"})
	err := p.ProcessDocument(context.Background(), task)

	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, store.statuses["doc-1"])
}

func TestProcessDocumentStatusWriteIsLastAction(t *testing.T) {
	store := newFakeStatusStore()
	store.statusErr = errors.New("database down")
	index := newFakeIndex()
	p := NewProcessor(store, &fakeEmbedder{chunks: embeddedChunks(1)}, index)

	task := newTask(t, ProcessDocumentPayload{DocumentID: "doc-1", Filename: "a.pdf", Text: "hello"})
	err := p.ProcessDocument(context.Background(), task)

	// Work was done, but the stale PENDING record forces a retry.
	require.Error(t, err)
	assert.Equal(t, 1, index.upserts)
	assert.Empty(t, store.statuses)
}

func TestProcessDocumentRecoversAfterFailure(t *testing.T) {
	store := newFakeStatusStore()
	embedder := &fakeEmbedder{err: errors.New("transient")}
	index := newFakeIndex()
	p := NewProcessor(store, embedder, index)

	task := newTask(t, ProcessDocumentPayload{DocumentID: "doc-1", Filename: "a.pdf", Text: "hello"})

	require.Error(t, p.ProcessDocument(context.Background(), task))
	assert.Equal(t, models.StatusFailed, store.statuses["doc-1"])

	// Redelivery after the transient failure clears.
	embedder.err = nil
	embedder.chunks = embeddedChunks(1)
	require.NoError(t, p.ProcessDocument(context.Background(), task))
	assert.Equal(t, models.StatusCompleted, store.statuses["doc-1"])
	assert.Equal(t, []string{models.StatusFailed, models.StatusCompleted}, store.writes)
}

func TestProcessDocumentRefreshesCorpusStatus(t *testing.T) {
	store := newFakeStatusStore()
	store.memberStatuses["corpus-1"] = []string{models.StatusCompleted, models.StatusCompleted}
	index := newFakeIndex()
	p := NewProcessor(store, &fakeEmbedder{chunks: embeddedChunks(1)}, index)

	task := newTask(t, ProcessDocumentPayload{
		DocumentID: "doc-2",
		Filename:   "b.pdf",
		Text:       "hello",
		CorpusID:   "corpus-1",
	})
	require.NoError(t, p.ProcessDocument(context.Background(), task))

	assert.Equal(t, models.StatusCompleted, store.corpusStatuses["corpus-1"])
	assert.Equal(t, "corpus-1", index.records["doc-2_0"].Metadata.CorpusID)
}

func TestCorpusAggregateStatus(t *testing.T) {
	cases := []struct {
		name     string
		members  []string
		expected string
	}{
		{"all completed", []string{models.StatusCompleted, models.StatusCompleted}, models.StatusCompleted},
		{"any failed", []string{models.StatusCompleted, models.StatusFailed}, models.StatusFailed},
		{"still pending", []string{models.StatusCompleted, models.StatusPending}, models.StatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStatusStore()
			store.memberStatuses["corpus-1"] = tc.members
			p := NewProcessor(store, &fakeEmbedder{chunks: embeddedChunks(1)}, newFakeIndex())

			p.refreshCorpusStatus(context.Background(), "corpus-1")
			assert.Equal(t, tc.expected, store.corpusStatuses["corpus-1"])
		})
	}
}

func TestProcessDocumentMalformedPayload(t *testing.T) {
	store := newFakeStatusStore()
	p := NewProcessor(store, &fakeEmbedder{}, newFakeIndex())

	task := asynq.NewTask(TaskProcessDocument, []byte("not json"))
	err := p.ProcessDocument(context.Background(), task)

	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, store.statuses)
}
