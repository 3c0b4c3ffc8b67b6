package mongo

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"time"

	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	submissionCollectionName      = "submissions"
	submissionIndexCollectionName = "submission_index"
)

// mongoSubmissionRepository implements repository.SubmissionRepository.
// Reads pass through normalizeSubmission so call sites only ever see the
// current schema, regardless of which version is on disk.
type mongoSubmissionRepository struct {
	collection *mongo.Collection
	index      *mongo.Collection
}

// NewMongoSubmissionRepository creates a new Submission repository backed by MongoDB.
func NewMongoSubmissionRepository(db *mongo.Database) repository.SubmissionRepository {
	return &mongoSubmissionRepository{
		collection: db.Collection(submissionCollectionName),
		index:      db.Collection(submissionIndexCollectionName),
	}
}

// submissionIndexEntry is the lightweight lookup-by-owner record written
// alongside each aggregate.
type submissionIndexEntry struct {
	SubmissionID primitive.ObjectID `bson:"submissionId"`
	OwnerID      primitive.ObjectID `bson:"ownerId"`
	OwnerEmail   string             `bson:"ownerEmail"`
	SubmittedAt  time.Time          `bson:"submittedAt"`
	FileCount    int                `bson:"fileCount"`
}

// Create inserts the submission aggregate as a single document, then writes
// the owner-index record. The aggregate write is the authoritative one; an
// index write failure is returned but leaves the aggregate readable by id.
func (r *mongoSubmissionRepository) Create(ctx context.Context, submission *domain.Submission) (primitive.ObjectID, error) {
	if submission.OwnerID == primitive.NilObjectID || len(submission.Files) == 0 {
		return primitive.NilObjectID, errors.New("submission requires ownerId and at least one file")
	}

	submission.ID = primitive.NewObjectID()
	submission.SubmittedAt = time.Now().UTC()
	submission.Status = domain.ComputeStatus(submission.Files)
	submission.Version = 1
	submission.SchemaVersion = domain.SubmissionSchemaVersion

	if _, err := r.collection.InsertOne(ctx, submission); err != nil {
		return primitive.NilObjectID, err
	}

	_, err := r.index.InsertOne(ctx, submissionIndexEntry{
		SubmissionID: submission.ID,
		OwnerID:      submission.OwnerID,
		OwnerEmail:   submission.OwnerEmail,
		SubmittedAt:  submission.SubmittedAt,
		FileCount:    len(submission.Files),
	})
	if err != nil {
		return primitive.NilObjectID, err
	}

	return submission.ID, nil
}

// GetByID retrieves a submission aggregate by its ID.
func (r *mongoSubmissionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Submission, error) {
	var doc submissionDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return normalizeSubmission(&doc), nil
}

// GetByOwnerID retrieves all submissions created by the given owner,
// newest first.
func (r *mongoSubmissionRepository) GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Submission, error) {
	filter := bson.M{"ownerId": ownerID}
	return r.find(ctx, filter)
}

// GetAll retrieves every submission, newest first.
func (r *mongoSubmissionRepository) GetAll(ctx context.Context) ([]domain.Submission, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoSubmissionRepository) find(ctx context.Context, filter bson.M) ([]domain.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []submissionDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	submissions := make([]domain.Submission, 0, len(docs))
	for i := range docs {
		submissions = append(submissions, *normalizeSubmission(&docs[i]))
	}
	return submissions, nil
}

// ReplaceFiles swaps the file array and derived status in one atomic write,
// guarded by the aggregate version. Legacy documents (no version field)
// match expectedVersion 0.
func (r *mongoSubmissionRepository) ReplaceFiles(ctx context.Context, id primitive.ObjectID, files []domain.FileReviewRecord, status domain.SubmissionStatus, expectedVersion int64) error {
	filter := bson.M{"_id": id}
	if expectedVersion == 0 {
		filter["version"] = bson.M{"$exists": false}
	} else {
		filter["version"] = expectedVersion
	}

	update := bson.M{
		"$set": bson.M{
			"files":         files,
			"status":        status,
			"version":       expectedVersion + 1,
			"schemaVersion": domain.SubmissionSchemaVersion,
		},
		// Drop legacy fields superseded by the ones set above.
		"$unset": bson.M{"documents": "", "created": ""},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing submission from a lost version race.
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}
	return nil
}

// --- schema normalization ---

// submissionDoc decodes both on-disk shapes: the current one (schemaVersion
// 2: files/submittedAt) and the legacy one (documents/created, display name
// under userName, no version field).
type submissionDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	SchemaVersion int                `bson:"schemaVersion,omitempty"`
	OwnerID       primitive.ObjectID `bson:"ownerId"`
	OwnerEmail    string             `bson:"ownerEmail,omitempty"`
	OwnerName     string             `bson:"ownerName,omitempty"`
	Status        string             `bson:"status,omitempty"`
	Version       int64              `bson:"version,omitempty"`

	Files       []fileDoc `bson:"files,omitempty"`
	SubmittedAt time.Time `bson:"submittedAt,omitempty"`

	// legacy (v1) fields
	Documents []fileDoc `bson:"documents,omitempty"`
	Created   time.Time `bson:"created,omitempty"`
	UserName  string    `bson:"userName,omitempty"`
	UserEmail string    `bson:"userEmail,omitempty"`
}

// fileDoc decodes both file shapes; legacy records use name/file/type/size
// and may lack an _id.
type fileDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	OriginalName string             `bson:"originalName,omitempty"`
	StoredName   string             `bson:"storedName,omitempty"`
	MimeType     string             `bson:"mimeType,omitempty"`
	SizeBytes    int64              `bson:"sizeBytes,omitempty"`
	Description  string             `bson:"description,omitempty"`
	InlineData   []byte             `bson:"inlineData,omitempty"`
	Status       string             `bson:"status,omitempty"`

	RejectionReason string     `bson:"rejectionReason,omitempty"`
	ReviewNotes     string     `bson:"reviewNotes,omitempty"`
	ReviewedBy      string     `bson:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time `bson:"reviewedAt,omitempty"`
	UploadedAt      time.Time  `bson:"uploadedAt,omitempty"`

	// legacy (v1) fields
	Name     string    `bson:"name,omitempty"`
	File     string    `bson:"file,omitempty"`
	Type     string    `bson:"type,omitempty"`
	Size     int64     `bson:"size,omitempty"`
	Uploaded time.Time `bson:"uploaded,omitempty"`
}

// normalizeSubmission maps either schema version onto the current domain
// shape. The status is always recomputed from the files rather than trusted
// from the stored field.
func normalizeSubmission(doc *submissionDoc) *domain.Submission {
	sub := &domain.Submission{
		ID:            doc.ID,
		OwnerID:       doc.OwnerID,
		OwnerEmail:    doc.OwnerEmail,
		OwnerName:     doc.OwnerName,
		SubmittedAt:   doc.SubmittedAt,
		Version:       doc.Version,
		SchemaVersion: domain.SubmissionSchemaVersion,
	}

	rawFiles := doc.Files
	if doc.SchemaVersion < domain.SubmissionSchemaVersion {
		if len(rawFiles) == 0 {
			rawFiles = doc.Documents
		}
		if sub.SubmittedAt.IsZero() {
			sub.SubmittedAt = doc.Created
		}
		if sub.OwnerEmail == "" {
			sub.OwnerEmail = doc.UserEmail
		}
		if sub.OwnerName == "" {
			sub.OwnerName = doc.UserName
		}
	}

	sub.Files = make([]domain.FileReviewRecord, 0, len(rawFiles))
	for i := range rawFiles {
		sub.Files = append(sub.Files, normalizeFile(&rawFiles[i], doc.ID, i))
	}
	sub.Status = domain.ComputeStatus(sub.Files)
	return sub
}

func normalizeFile(doc *fileDoc, submissionID primitive.ObjectID, position int) domain.FileReviewRecord {
	rec := domain.FileReviewRecord{
		ID:              doc.ID,
		OriginalName:    doc.OriginalName,
		StoredName:      doc.StoredName,
		MimeType:        doc.MimeType,
		SizeBytes:       doc.SizeBytes,
		Description:     doc.Description,
		InlineData:      doc.InlineData,
		Status:          domain.FileStatus(doc.Status),
		RejectionReason: doc.RejectionReason,
		ReviewNotes:     doc.ReviewNotes,
		ReviewedBy:      doc.ReviewedBy,
		ReviewedAt:      doc.ReviewedAt,
		UploadedAt:      doc.UploadedAt,
	}

	if rec.OriginalName == "" {
		rec.OriginalName = doc.Name
	}
	if rec.StoredName == "" {
		rec.StoredName = doc.File
	}
	if rec.MimeType == "" {
		rec.MimeType = doc.Type
	}
	if rec.SizeBytes == 0 {
		rec.SizeBytes = doc.Size
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = doc.Uploaded
	}
	if rec.Status == "" {
		rec.Status = domain.FilePending
	}
	// Legacy file records carry no _id; derive one deterministically so the
	// same file keeps the same id across reads.
	if rec.ID == primitive.NilObjectID {
		rec.ID = derivedFileID(submissionID, position)
	}
	return rec
}

// derivedFileID builds a stable ObjectID from the parent submission id and
// the file's position within it.
func derivedFileID(submissionID primitive.ObjectID, position int) primitive.ObjectID {
	h := sha256.New()
	h.Write(submissionID[:])
	var pos [8]byte
	binary.BigEndian.PutUint64(pos[:], uint64(position))
	h.Write(pos[:])

	var id primitive.ObjectID
	copy(id[:], h.Sum(nil))
	return id
}

// EnsureSubmissionIndexes creates necessary indexes for the submissions and
// submission_index collections.
func EnsureSubmissionIndexes(ctx context.Context, db *mongo.Database) {
	subIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "submittedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := db.Collection(submissionCollectionName).Indexes().CreateMany(ctx, subIndexes)
	if err != nil {
		// log.Printf("WARN: Failed to create submission indexes: %v", err)
	}

	idxIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "submissionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = db.Collection(submissionIndexCollectionName).Indexes().CreateMany(ctx, idxIndexes)
	if err != nil {
		// log.Printf("WARN: Failed to create submission_index indexes: %v", err)
	}
}
