package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmissionStatus is the aggregate status derived from the file statuses.
// It is never authored independently; use ComputeStatus.
type SubmissionStatus string

const (
	SubmissionPending         SubmissionStatus = "pending"
	SubmissionApproved        SubmissionStatus = "approved"
	SubmissionRejected        SubmissionStatus = "rejected"
	SubmissionPartialApproved SubmissionStatus = "partial_approved"
)

// FileStatus is the review status of a single file within a submission.
type FileStatus string

const (
	FilePending  FileStatus = "pending"
	FileApproved FileStatus = "approved"
	FileRejected FileStatus = "rejected"
)

// Current schema version for submission documents. Legacy documents
// (schemaVersion absent or 1) are normalized at the repository boundary.
const SubmissionSchemaVersion = 2

// Submission is the aggregate of files a worker uploads together for review.
// Files are embedded so a review batch is a single document write.
type Submission struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	OwnerEmail  string             `bson:"ownerEmail" json:"ownerEmail"`
	OwnerName   string             `bson:"ownerName" json:"ownerName"`
	Files       []FileReviewRecord `bson:"files" json:"files"` // insertion order = intake order
	Status      SubmissionStatus   `bson:"status" json:"status"`
	SubmittedAt time.Time          `bson:"submittedAt" json:"submittedAt"`
	// Version guards concurrent review batches (compare-and-swap on update).
	Version       int64 `bson:"version" json:"-"`
	SchemaVersion int   `bson:"schemaVersion" json:"-"`
}

// FileReviewRecord is one file's metadata and review state. It is owned
// exclusively by its parent Submission and has no identity outside it.
type FileReviewRecord struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	StoredName   string             `bson:"storedName" json:"-"` // S3 object key or inline marker
	MimeType     string             `bson:"mimeType" json:"mimeType"`
	SizeBytes    int64              `bson:"sizeBytes" json:"sizeBytes"`
	Description  string             `bson:"description" json:"description"`
	// InlineData holds the encoded payload when the deployment runs without
	// object storage. Empty when the file lives in S3 under StoredName.
	InlineData []byte     `bson:"inlineData,omitempty" json:"-"`
	Status     FileStatus `bson:"status" json:"status"`

	RejectionReason string     `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	ReviewNotes     string     `bson:"reviewNotes,omitempty" json:"reviewNotes,omitempty"`
	ReviewedBy      string     `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	UploadedAt      time.Time  `bson:"uploadedAt" json:"uploadedAt"`
}

// Reviewed reports whether the file has reached a terminal review state.
// Transitions out of approved/rejected are not allowed.
func (f *FileReviewRecord) Reviewed() bool {
	return f.Status == FileApproved || f.Status == FileRejected
}

// ComputeStatus derives the submission status from its file statuses:
// all approved -> approved, all rejected -> rejected, all pending -> pending,
// any other mix -> partial_approved.
func ComputeStatus(files []FileReviewRecord) SubmissionStatus {
	if len(files) == 0 {
		return SubmissionPending
	}
	var approved, rejected, pending int
	for i := range files {
		switch files[i].Status {
		case FileApproved:
			approved++
		case FileRejected:
			rejected++
		default:
			pending++
		}
	}
	switch {
	case approved == len(files):
		return SubmissionApproved
	case rejected == len(files):
		return SubmissionRejected
	case pending == len(files):
		return SubmissionPending
	default:
		return SubmissionPartialApproved
	}
}
