package mongo

import (
	"context"
	"errors"
	"time"

	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const accessLogCollectionName = "submission_access_logs"

// mongoAccessLogRepository implements repository.AccessLogRepository.
// The collection is append-only; no update or delete methods exist.
type mongoAccessLogRepository struct {
	collection *mongo.Collection
}

// NewMongoAccessLogRepository creates a new access log repository backed by MongoDB.
func NewMongoAccessLogRepository(db *mongo.Database) repository.AccessLogRepository {
	return &mongoAccessLogRepository{
		collection: db.Collection(accessLogCollectionName),
	}
}

// Append records one access event.
func (r *mongoAccessLogRepository) Append(ctx context.Context, entry *domain.AccessLogEntry) error {
	if entry.SubmissionID == primitive.NilObjectID || entry.AccessType == "" {
		return errors.New("access log entry requires submissionId and accessType")
	}

	entry.ID = primitive.NewObjectID()
	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = time.Now().UTC()
	}
	if entry.AccessedBy == "" {
		entry.AccessedBy = domain.AnonymousAccessor
	}

	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// GetBySubmissionID returns the access history of a submission, newest first.
func (r *mongoAccessLogRepository) GetBySubmissionID(ctx context.Context, submissionID primitive.ObjectID) ([]domain.AccessLogEntry, error) {
	filter := bson.M{"submissionId": submissionID}
	opts := options.Find().SetSort(bson.D{{Key: "accessedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []domain.AccessLogEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// EnsureAccessLogIndexes creates necessary indexes for the access log collection.
func EnsureAccessLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "submissionId", Value: 1}, {Key: "accessedAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
