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

// CreateCorpus inserts a corpus record with status PENDING.
func (s *Store) CreateCorpus(ctx context.Context, corpus *models.Corpus) error {
	corpus.Status = models.StatusPending
	corpus.CreatedAt = time.Now()

	if _, err := s.corpora.InsertOne(ctx, corpus); err != nil {
		return fmt.Errorf("failed to create corpus: %w", err)
	}

	return nil
}

// GetCorpus fetches a corpus by id.
func (s *Store) GetCorpus(ctx context.Context, id string) (*models.Corpus, error) {
	var corpus models.Corpus
	err := s.corpora.FindOne(ctx, bson.M{"_id": id}).Decode(&corpus)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("corpus %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch corpus: %w", err)
	}

	return &corpus, nil
}

// ListCorpora returns corpora newest first.
func (s *Store) ListCorpora(ctx context.Context) ([]models.Corpus, error) {
	cursor, err := s.corpora.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list corpora: %w", err)
	}
	defer cursor.Close(ctx)

	var corpora []models.Corpus
	if err := cursor.All(ctx, &corpora); err != nil {
		return nil, fmt.Errorf("failed to decode corpora: %w", err)
	}

	return corpora, nil
}

// UpdateCorpusStatus writes a corpus's aggregate status.
func (s *Store) UpdateCorpusStatus(ctx context.Context, id, status string) error {
	res, err := s.corpora.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("failed to update corpus status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("corpus %s: %w", id, models.ErrNotFound)
	}

	return nil
}

// CorpusMemberStatuses returns the lifecycle status of every member
// document of a corpus.
func (s *Store) CorpusMemberStatuses(ctx context.Context, corpusID string) ([]string, error) {
	cursor, err := s.documents.Find(
		ctx,
		bson.M{"corpus_id": corpusID},
		options.Find().SetProjection(bson.M{"status": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus members: %w", err)
	}
	defer cursor.Close(ctx)

	var members []struct {
		Status string `bson:"status"`
	}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode corpus members: %w", err)
	}

	statuses := make([]string, len(members))
	for i, m := range members {
		statuses[i] = m.Status
	}

	return statuses, nil
}

// CorpusMembers returns the member documents of a corpus oldest first.
func (s *Store) CorpusMembers(ctx context.Context, corpusID string) ([]models.DocumentSummary, error) {
	cursor, err := s.documents.Find(
		ctx,
		bson.M{"corpus_id": corpusID},
		options.Find().SetSort(bson.M{"created_at": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus members: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode corpus members: %w", err)
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
