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

const reminderCollectionName = "reminders"

// mongoReminderRepository implements repository.ReminderRepository.
type mongoReminderRepository struct {
	collection *mongo.Collection
}

// NewMongoReminderRepository creates a new Reminder repository backed by MongoDB.
func NewMongoReminderRepository(db *mongo.Database) repository.ReminderRepository {
	return &mongoReminderRepository{
		collection: db.Collection(reminderCollectionName),
	}
}

// Create inserts a new reminder.
func (r *mongoReminderRepository) Create(ctx context.Context, reminder *domain.Reminder) (primitive.ObjectID, error) {
	if reminder.OwnerID == primitive.NilObjectID || reminder.Medication == "" {
		return primitive.NilObjectID, errors.New("reminder requires ownerId and medication")
	}

	reminder.ID = primitive.NewObjectID()
	reminder.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, reminder)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByOwnerID retrieves a user's reminders.
func (r *mongoReminderRepository) GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Reminder, error) {
	filter := bson.M{"ownerId": ownerID}
	opts := options.Find().SetSort(bson.D{{Key: "hour", Value: 1}, {Key: "minute", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reminders []domain.Reminder
	if err = cursor.All(ctx, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// Delete removes a reminder; the ownerId filter prevents deleting someone
// else's reminder.
func (r *mongoReminderRepository) Delete(ctx context.Context, id, ownerID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetEnabled returns all enabled reminders for the scheduler sweep.
func (r *mongoReminderRepository) GetEnabled(ctx context.Context) ([]domain.Reminder, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"enabled": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reminders []domain.Reminder
	if err = cursor.All(ctx, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// MarkFired stamps the last firing time after a dispatch.
func (r *mongoReminderRepository) MarkFired(ctx context.Context, id primitive.ObjectID, firedAt time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"lastFired": firedAt}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureReminderIndexes creates necessary indexes for the reminders collection.
func EnsureReminderIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "enabled", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
