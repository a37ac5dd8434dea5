package models

import "time"

// Document lifecycle status constants
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Document represents a single ingested unit of content and its lifecycle status.
// Plain uploads are deduplicated by filename; corpus members (CorpusID set)
// are not.
type Document struct {
	ID          string    `bson:"_id" json:"id"`
	Filename    string    `bson:"filename" json:"filename"`
	CorpusID    string    `bson:"corpus_id,omitempty" json:"corpus_id,omitempty"`
	PDFContent  []byte    `bson:"pdf_content,omitempty" json:"-"`
	TextContent string    `bson:"text_content,omitempty" json:"text_content,omitempty"`
	Status      string    `bson:"status" json:"status"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// ContentType describes which content fields a document carries: "both",
// "pdf", "text" or "none".
func (d *Document) ContentType() string {
	switch {
	case len(d.PDFContent) > 0 && d.TextContent != "":
		return "both"
	case len(d.PDFContent) > 0:
		return "pdf"
	case d.TextContent != "":
		return "text"
	default:
		return "none"
	}
}

// Corpus is a named grouping of documents processed as a group for scoped
// retrieval. Its status aggregates the member statuses.
type Corpus struct {
	ID        string    `bson:"_id" json:"id"`
	Title     string    `bson:"title" json:"title"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// DocumentSummary is the listing surface for documents.
type DocumentSummary struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Status      string    `json:"status"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadResponse is returned to the uploader once a document is persisted
// and its processing job (if any) has been enqueued.
type UploadResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Status      string `json:"status"`
	TextContent string `json:"text_content,omitempty"`
}
