package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"document-qa-platform/internal/ai"
	"document-qa-platform/internal/telemetry"
	"document-qa-platform/internal/vectorindex"
	"document-qa-platform/models"
)

const TaskProcessDocument = "document:process"

// ProcessDocumentPayload is the queue message body for one unit of
// ingestion work.
type ProcessDocumentPayload struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Text       string `json:"text"`
	CorpusID   string `json:"corpus_id,omitempty"`
}

// NewProcessDocumentTask builds the asynq task carrying a processing job,
// with the retry ceiling and per-attempt timeout baked in.
func NewProcessDocumentTask(p ProcessDocumentPayload, policy RetryPolicy, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessDocument,
		payload,
		asynq.MaxRetry(policy.MaxRetry()),
		asynq.Timeout(timeout),
		asynq.Queue("critical"),
	), nil
}

// StatusStore finalizes document lifecycle state and recomputes corpus
// aggregate status after each member job.
type StatusStore interface {
	UpdateStatus(ctx context.Context, id, status string) error
	CorpusMemberStatuses(ctx context.Context, corpusID string) ([]string, error)
	UpdateCorpusStatus(ctx context.Context, corpusID, status string) error
}

// EmbeddingClient is the batch form of the embedding service.
type EmbeddingClient interface {
	EmbedDocument(ctx context.Context, text string) ([]ai.EmbeddedChunk, error)
}

// VectorIndex upserts chunk vectors into the external similarity index.
type VectorIndex interface {
	Upsert(ctx context.Context, records []vectorindex.Record) error
}

// Processor handles document processing jobs: chunk + embed, build index
// records, upsert, finalize status. Redelivery is safe because record ids
// are derived from documentId + chunk index, so a re-upsert overwrites.
type Processor struct {
	store    StatusStore
	embedder EmbeddingClient
	index    VectorIndex
	metrics  *telemetry.Metrics
}

// NewProcessor creates a task processor with its collaborators injected.
func NewProcessor(store StatusStore, embedder EmbeddingClient, index VectorIndex) *Processor {
	return &Processor{
		store:    store,
		embedder: embedder,
		index:    index,
	}
}

// WithMetrics enables per-job instrumentation.
func (p *Processor) WithMetrics(m *telemetry.Metrics) *Processor {
	p.metrics = m
	return p
}

// ProcessDocument is the asynq handler for TaskProcessDocument. The status
// write is the very last action of every attempt: COMPLETED on success,
// FAILED on any processing error. If the status write itself fails the
// document stays PENDING until reprocessed.
func (p *Processor) ProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload ProcessDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Processing document %s (%s)", payload.DocumentID, payload.Filename)

	start := time.Now()
	chunks, procErr := p.process(ctx, payload)

	status := models.StatusCompleted
	outcome := "completed"
	if procErr != nil {
		status = models.StatusFailed
		outcome = "failed"
		log.Printf("Error processing document %s: %v", payload.DocumentID, procErr)
	}
	p.metrics.RecordProcessing(ctx, outcome, chunks, time.Since(start))

	if err := p.store.UpdateStatus(ctx, payload.DocumentID, status); err != nil {
		log.Printf("Failed to write status %s for document %s: %v", status, payload.DocumentID, err)
		if procErr == nil {
			// Successful work with a stale PENDING record: retry the job,
			// the upsert is idempotent.
			return err
		}
	}

	if payload.CorpusID != "" {
		p.refreshCorpusStatus(ctx, payload.CorpusID)
	}

	if procErr != nil {
		return procErr
	}

	log.Printf("Document processed successfully: %s", payload.DocumentID)
	return nil
}

// process runs the chunk/embed/upsert steps for one job and reports how
// many chunks were indexed.
func (p *Processor) process(ctx context.Context, payload ProcessDocumentPayload) (int, error) {
	if payload.Text == "" {
		return 0, fmt.Errorf("no text content provided in job data: %w", asynq.SkipRetry)
	}

	embedded, err := p.embedder.EmbedDocument(ctx, payload.Text)
	if err != nil {
		return 0, fmt.Errorf("embedding failed: %w", err)
	}
	if len(embedded) == 0 {
		return 0, fmt.Errorf("chunking produced no chunks: %w", asynq.SkipRetry)
	}

	records := make([]vectorindex.Record, len(embedded))
	for i, ch := range embedded {
		records[i] = vectorindex.Record{
			ID:     fmt.Sprintf("%s_%d", payload.DocumentID, ch.Index),
			Values: ch.Embedding,
			Metadata: vectorindex.Metadata{
				Text:       ch.Text,
				DocumentID: payload.DocumentID,
				CorpusID:   payload.CorpusID,
				ChunkIndex: ch.Index,
			},
		}
	}

	if err := p.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("vector upsert failed: %w", err)
	}

	return len(records), nil
}

// refreshCorpusStatus recomputes a corpus's aggregate status from its
// member documents. Best effort: a failure here is logged, not retried.
func (p *Processor) refreshCorpusStatus(ctx context.Context, corpusID string) {
	statuses, err := p.store.CorpusMemberStatuses(ctx, corpusID)
	if err != nil {
		log.Printf("Failed to read member statuses for corpus %s: %v", corpusID, err)
		return
	}

	aggregate := models.StatusCompleted
	for _, st := range statuses {
		if st == models.StatusFailed {
			aggregate = models.StatusFailed
			break
		}
		if st != models.StatusCompleted {
			aggregate = models.StatusPending
		}
	}

	if err := p.store.UpdateCorpusStatus(ctx, corpusID, aggregate); err != nil {
		log.Printf("Failed to update status for corpus %s: %v", corpusID, err)
	}
}
