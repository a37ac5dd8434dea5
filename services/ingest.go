package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"document-qa-platform/internal/queue"
	"document-qa-platform/models"
)

// DocumentStore is the persistence surface the coordinator needs.
type DocumentStore interface {
	FindByFilename(ctx context.Context, filename string) (*models.Document, error)
	CreateDocument(ctx context.Context, doc *models.Document) error
	UpdateContent(ctx context.Context, id string, pdfContent []byte, textContent string) error
	CreateCorpus(ctx context.Context, corpus *models.Corpus) error
}

// JobQueue carries processing jobs to the worker.
type JobQueue interface {
	Enqueue(ctx context.Context, p queue.ProcessDocumentPayload) error
}

// TextExtractor derives plain text from raw document bytes.
type TextExtractor interface {
	ExtractText(raw []byte) (string, error)
}

// Ingestor coordinates uploads: persist/update the document, set status
// PENDING, and enqueue a processing job when text is available.
type Ingestor struct {
	store     DocumentStore
	jobs      JobQueue
	extractor TextExtractor
}

// NewIngestor creates an ingestion coordinator with its collaborators
// injected.
func NewIngestor(store DocumentStore, jobs JobQueue, extractor TextExtractor) *Ingestor {
	return &Ingestor{
		store:     store,
		jobs:      jobs,
		extractor: extractor,
	}
}

// Submit handles one uploaded file. When extractText is set the text is
// derived before anything is persisted; an extraction failure is returned
// synchronously and no record is created or updated. Plain uploads are
// deduplicated by filename: a re-upload merges content and resets status to
// PENDING. Corpus members (corpusID set) always create a new record.
//
// An enqueue failure is logged and swallowed: the record stays PENDING
// until an operator re-drives it.
func (ing *Ingestor) Submit(ctx context.Context, filename string, raw []byte, extractText bool, corpusID string) (*models.UploadResponse, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", models.ErrValidation)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty file", models.ErrValidation)
	}

	textContent := ""
	if extractText {
		var err error
		textContent, err = ing.extractor.ExtractText(raw)
		if err != nil {
			return nil, err
		}
	}

	// When text was extracted only the text is kept; otherwise the raw
	// bytes are stored for later retrieval.
	rawToStore := raw
	if extractText {
		rawToStore = nil
	}

	var documentID string
	if corpusID == "" {
		existing, err := ing.store.FindByFilename(ctx, filename)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if err := ing.store.UpdateContent(ctx, existing.ID, rawToStore, textContent); err != nil {
				return nil, err
			}
			documentID = existing.ID
		}
	}

	if documentID == "" {
		doc := &models.Document{
			ID:          uuid.NewString(),
			Filename:    filename,
			CorpusID:    corpusID,
			PDFContent:  rawToStore,
			TextContent: textContent,
			Status:      models.StatusPending,
		}
		if err := ing.store.CreateDocument(ctx, doc); err != nil {
			return nil, err
		}
		documentID = doc.ID
	}

	if textContent != "" {
		ing.enqueue(ctx, queue.ProcessDocumentPayload{
			DocumentID: documentID,
			Filename:   filename,
			Text:       textContent,
			CorpusID:   corpusID,
		})
	}

	return &models.UploadResponse{
		ID:          documentID,
		Filename:    filename,
		Status:      models.StatusPending,
		TextContent: textContent,
	}, nil
}

// CorpusFile is one uploaded member of a corpus.
type CorpusFile struct {
	Filename string
	Raw      []byte
}

// CorpusUploadResult reports the created corpus and its members.
type CorpusUploadResult struct {
	Corpus    models.Corpus           `json:"corpus"`
	Documents []models.UploadResponse `json:"documents"`
}

// SubmitCorpus creates a corpus and one member document per file. Text is
// extracted from every file before anything is persisted, so an extraction
// failure leaves no partial corpus behind. Members are never deduplicated.
func (ing *Ingestor) SubmitCorpus(ctx context.Context, title string, files []CorpusFile) (*CorpusUploadResult, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: corpus title is required", models.ErrValidation)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one file is required", models.ErrValidation)
	}

	texts := make([]string, len(files))
	for i, f := range files {
		if f.Filename == "" || len(f.Raw) == 0 {
			return nil, fmt.Errorf("%w: file %d is missing a name or content", models.ErrValidation, i)
		}
		text, err := ing.extractor.ExtractText(f.Raw)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}

	corpus := &models.Corpus{
		ID:    uuid.NewString(),
		Title: title,
	}
	if err := ing.store.CreateCorpus(ctx, corpus); err != nil {
		return nil, err
	}

	result := &CorpusUploadResult{Corpus: *corpus}
	for i, f := range files {
		doc := &models.Document{
			ID:          uuid.NewString(),
			Filename:    f.Filename,
			CorpusID:    corpus.ID,
			TextContent: texts[i],
			Status:      models.StatusPending,
		}
		if err := ing.store.CreateDocument(ctx, doc); err != nil {
			return nil, err
		}

		ing.enqueue(ctx, queue.ProcessDocumentPayload{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Text:       texts[i],
			CorpusID:   corpus.ID,
		})

		result.Documents = append(result.Documents, models.UploadResponse{
			ID:       doc.ID,
			Filename: doc.Filename,
			Status:   doc.Status,
		})
	}

	return result, nil
}

// enqueue logs and swallows queue failures. This is a known at-least-once
// gap: the document stays PENDING until an operator re-drives it.
func (ing *Ingestor) enqueue(ctx context.Context, p queue.ProcessDocumentPayload) {
	if err := ing.jobs.Enqueue(ctx, p); err != nil {
		log.Printf("Error adding job to queue for document %s: %v", p.DocumentID, err)
	}
}
