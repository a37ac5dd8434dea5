package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"document-qa-platform/models"
)

// Store persists documents and corpora in MongoDB. All mutation is by
// id-scoped single-row writes; no cross-row transactions are needed.
type Store struct {
	documents *mongo.Collection
	corpora   *mongo.Collection
}

// NewStore creates a store over the given database.
func NewStore(db *mongo.Database) *Store {
	return &Store{
		documents: db.Collection("documents"),
		corpora:   db.Collection("corpora"),
	}
}

// FindByFilename looks up a plain (non-corpus) document by filename.
// Returns nil when no such document exists.
func (s *Store) FindByFilename(ctx context.Context, filename string) (*models.Document, error) {
	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{
		"filename":  filename,
		"corpus_id": bson.M{"$exists": false},
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}

	return &doc, nil
}

// CreateDocument inserts a new document record.
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	update := bson.M{
		"_id":        doc.ID,
		"filename":   doc.Filename,
		"status":     doc.Status,
		"created_at": doc.CreatedAt,
		"updated_at": doc.UpdatedAt,
	}
	if doc.CorpusID != "" {
		update["corpus_id"] = doc.CorpusID
	}
	if len(doc.PDFContent) > 0 {
		update["pdf_content"] = doc.PDFContent
	}
	if doc.TextContent != "" {
		update["text_content"] = doc.TextContent
	}

	if _, err := s.documents.InsertOne(ctx, update); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// UpdateContent merges new content into an existing document and resets its
// status to PENDING. Each content field is overwritten only when a non-empty
// value is supplied, mirroring a COALESCE-style update.
func (s *Store) UpdateContent(ctx context.Context, id string, pdfContent []byte, textContent string) error {
	set := bson.M{
		"status":     models.StatusPending,
		"updated_at": time.Now(),
	}
	if len(pdfContent) > 0 {
		set["pdf_content"] = pdfContent
	}
	if textContent != "" {
		set["text_content"] = textContent
	}

	res, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}

	return nil
}

// UpdateStatus writes a document's lifecycle status.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := s.documents.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}

	return nil
}

// GetDocument fetches a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}

	return &doc, nil
}

// ListDocuments returns plain documents oldest first, with the derived
// content_type surface.
func (s *Store) ListDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	cursor, err := s.documents.Find(
		ctx,
		bson.M{"corpus_id": bson.M{"$exists": false}},
		options.Find().SetSort(bson.M{"created_at": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	summaries := make([]models.DocumentSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = models.DocumentSummary{
			ID:          doc.ID,
			Filename:    doc.Filename,
			Status:      doc.Status,
			ContentType: doc.ContentType(),
			CreatedAt:   doc.CreatedAt,
		}
	}

	return summaries, nil
}

// Reset drops both collections. Exposed for the operator reset endpoint.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.documents.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop documents: %w", err)
	}
	if err := s.corpora.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop corpora: %w", err)
	}

	return nil
}
