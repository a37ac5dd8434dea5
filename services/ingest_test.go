package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa-platform/internal/queue"
	"document-qa-platform/models"
)

type fakeDocumentStore struct {
	docs    map[string]*models.Document // keyed by id
	byName  map[string]string           // plain uploads only: filename -> id
	corpora map[string]*models.Corpus
	findErr error
	creates int
	updates int
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{
		docs:    make(map[string]*models.Document),
		byName:  make(map[string]string),
		corpora: make(map[string]*models.Corpus),
	}
}

func (s *fakeDocumentStore) FindByFilename(ctx context.Context, filename string) (*models.Document, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if id, ok := s.byName[filename]; ok {
		return s.docs[id], nil
	}
	return nil, nil
}

func (s *fakeDocumentStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	s.creates++
	copied := *doc
	s.docs[doc.ID] = &copied
	if doc.CorpusID == "" {
		s.byName[doc.Filename] = doc.ID
	}
	return nil
}

func (s *fakeDocumentStore) UpdateContent(ctx context.Context, id string, pdfContent []byte, textContent string) error {
	s.updates++
	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	// Merge semantics: empty values do not clobber stored content.
	if len(pdfContent) > 0 {
		doc.PDFContent = pdfContent
	}
	if textContent != "" {
		doc.TextContent = textContent
	}
	doc.Status = models.StatusPending
	return nil
}

func (s *fakeDocumentStore) CreateCorpus(ctx context.Context, corpus *models.Corpus) error {
	copied := *corpus
	s.corpora[corpus.ID] = &copied
	return nil
}

type fakeJobQueue struct {
	jobs []queue.ProcessDocumentPayload
	err  error
}

func (q *fakeJobQueue) Enqueue(ctx context.Context, p queue.ProcessDocumentPayload) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, p)
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) ExtractText(raw []byte) (string, error) {
	return e.text, e.err
}

func TestSubmitNewUploadWithExtraction(t *testing.T) {
	store := newFakeDocumentStore()
	jobs := &fakeJobQueue{}
	ing := NewIngestor(store, jobs, &fakeExtractor{text: "extracted text"})

	resp, err := ing.Submit(context.Background(), "report.pdf", []byte("%PDF"), true, "")

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, resp.Status)
	assert.Equal(t, "extracted text", resp.TextContent)
	assert.NotEmpty(t, resp.ID)

	stored := store.docs[resp.ID]
	require.NotNil(t, stored)
	assert.Empty(t, stored.PDFContent, "extracted uploads keep text only")
	assert.Equal(t, "extracted text", stored.TextContent)

	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, resp.ID, jobs.jobs[0].DocumentID)
	assert.Equal(t, "extracted text", jobs.jobs[0].Text)
}

func TestSubmitRawUploadSkipsQueue(t *testing.T) {
	store := newFakeDocumentStore()
	jobs := &fakeJobQueue{}
	ing := NewIngestor(store, jobs, &fakeExtractor{})

	resp, err := ing.Submit(context.Background(), "report.pdf", []byte("%PDF"), false, "")

	require.NoError(t, err)
	stored := store.docs[resp.ID]
	require.NotNil(t, stored)
	assert.Equal(t, []byte("%PDF"), stored.PDFContent)
	assert.Empty(t, stored.TextContent)
	assert.Empty(t, jobs.jobs, "no text means nothing to process")
}

func TestSubmitReuploadMergesAndResets(t *testing.T) {
	store := newFakeDocumentStore()
	jobs := &fakeJobQueue{}
	ing := NewIngestor(store, jobs, &fakeExtractor{text: "v2 text"})

	first, err := ing.Submit(context.Background(), "report.pdf", []byte("%PDF v1"), false, "")
	require.NoError(t, err)
	store.docs[first.ID].Status = models.StatusCompleted

	second, err := ing.Submit(context.Background(), "report.pdf", []byte("%PDF v2"), true, "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same filename reuses the record")
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, 1, store.updates)

	stored := store.docs[first.ID]
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, "v2 text", stored.TextContent)
	assert.Equal(t, []byte("%PDF v1"), stored.PDFContent, "empty pdf update does not clobber stored bytes")

	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, first.ID, jobs.jobs[0].DocumentID)
}

func TestSubmitExtractionFailurePersistsNothing(t *testing.T) {
	store := newFakeDocumentStore()
	jobs := &fakeJobQueue{}
	extractErr := fmt.Errorf("%w: encrypted file", models.ErrExtraction)
	ing := NewIngestor(store, jobs, &fakeExtractor{err: extractErr})

	_, err := ing.Submit(context.Background(), "report.pdf", []byte("%PDF"), true, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExtraction)
	assert.Empty(t, store.docs)
	assert.Zero(t, store.creates)
	assert.Empty(t, jobs.jobs)
}

func TestSubmitEnqueueFailureIsSwallowed(t *testing.T) {
	store := newFakeDocumentStore()
	jobs := &fakeJobQueue{err: errors.New("redis unreachable")}
	ing := NewIngestor(store, jobs, &fakeExtractor{text: "some text"})

	resp, err := ing.Submit(context.Background(), "report.pdf", []byte("%PDF"), true, "")

	require.NoError(t, err, "upload succeeds even when the queue is down")
	assert.Equal(t, models.StatusPending, store.docs[resp.ID].Status)
}

func TestSubmitValidatesInput(t *testing.T) {
	ing := NewIngestor(newFakeDocumentStore(), &fakeJobQueue{}, &fakeExtractor{})

	_, err := ing.Submit(context.Background(), "", []byte("x"), false, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = ing.Submit(context.Background(), "report.pdf", nil, false, "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSubmitCorpusCreatesMembers(t *testing.T) {
	store := newFakeDocumentStore()
	jobs := &fakeJobQueue{}
	ing := NewIngestor(store, jobs, &fakeExtractor{text: "member text"})

	result, err := ing.SubmitCorpus(context.Background(), "Quarterly Reports", []CorpusFile{
		{Filename: "q1.pdf", Raw: []byte("%PDF")},
		{Filename: "q2.pdf", Raw: []byte("%PDF")},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Corpus.ID)
	assert.Equal(t, "Quarterly Reports", result.Corpus.Title)
	require.Len(t, result.Documents, 2)

	require.Len(t, jobs.jobs, 2)
	for i, job := range jobs.jobs {
		assert.Equal(t, result.Documents[i].ID, job.DocumentID)
		assert.Equal(t, result.Corpus.ID, job.CorpusID)
		assert.Equal(t, "member text", job.Text)
	}
}

func TestSubmitCorpusMembersNotDeduplicated(t *testing.T) {
	store := newFakeDocumentStore()
	ing := NewIngestor(store, &fakeJobQueue{}, &fakeExtractor{text: "text"})

	first, err := ing.SubmitCorpus(context.Background(), "A", []CorpusFile{{Filename: "same.pdf", Raw: []byte("%PDF")}})
	require.NoError(t, err)
	second, err := ing.SubmitCorpus(context.Background(), "B", []CorpusFile{{Filename: "same.pdf", Raw: []byte("%PDF")}})
	require.NoError(t, err)

	assert.NotEqual(t, first.Documents[0].ID, second.Documents[0].ID)
	assert.Equal(t, 2, store.creates)
}

func TestSubmitCorpusExtractionFailureLeavesNoPartialCorpus(t *testing.T) {
	store := newFakeDocumentStore()
	calls := 0
	ing := NewIngestor(store, &fakeJobQueue{}, &sequenceExtractor{calls: &calls})

	_, err := ing.SubmitCorpus(context.Background(), "Mixed", []CorpusFile{
		{Filename: "ok.pdf", Raw: []byte("%PDF")},
		{Filename: "broken.pdf", Raw: []byte("%PDF")},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExtraction)
	assert.Empty(t, store.corpora)
	assert.Empty(t, store.docs)
}

// sequenceExtractor succeeds on the first call and fails on the second.
type sequenceExtractor struct {
	calls *int
}

func (e *sequenceExtractor) ExtractText(raw []byte) (string, error) {
	if *e.calls++; *e.calls > 1 {
		return "", fmt.Errorf("%w: corrupt page tree", models.ErrExtraction)
	}
	return "first text", nil
}
