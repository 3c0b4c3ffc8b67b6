package repository

import (
	"context"
	"time"

	"carelink/health-portal/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound = RepositoryError("not found")
	// ErrVersionConflict is returned when an aggregate write loses the
	// compare-and-swap on the submission version (concurrent review).
	ErrVersionConflict = RepositoryError("version conflict")
	ErrUpdateFailed    = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// SubmissionRepository defines the interface for submission aggregates.
// A submission is written as one document; ReplaceFiles performs the
// version-checked batch update used by the review workflow.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *domain.Submission) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Submission, error)
	GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Submission, error)
	GetAll(ctx context.Context) ([]domain.Submission, error)
	// ReplaceFiles swaps the full file array and derived status in one
	// atomic write, guarded by expectedVersion. Returns ErrVersionConflict
	// when another writer got there first, ErrNotFound when no submission
	// matches the id.
	ReplaceFiles(ctx context.Context, id primitive.ObjectID, files []domain.FileReviewRecord, status domain.SubmissionStatus, expectedVersion int64) error
}

// AccessLogRepository appends submission access events. Entries are never
// mutated or deleted.
type AccessLogRepository interface {
	Append(ctx context.Context, entry *domain.AccessLogEntry) error
	GetBySubmissionID(ctx context.Context, submissionID primitive.ObjectID) ([]domain.AccessLogEntry, error)
}

// ReminderRepository defines the interface for medication reminders.
type ReminderRepository interface {
	Create(ctx context.Context, reminder *domain.Reminder) (primitive.ObjectID, error)
	GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Reminder, error)
	Delete(ctx context.Context, id, ownerID primitive.ObjectID) error
	// GetEnabled returns every enabled reminder; the scheduler filters for
	// due ones in memory (the collection is small per deployment).
	GetEnabled(ctx context.Context) ([]domain.Reminder, error)
	MarkFired(ctx context.Context, id primitive.ObjectID, firedAt time.Time) error
}
