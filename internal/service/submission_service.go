package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"carelink/health-portal/internal/config"
	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/repository"
	"carelink/health-portal/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrFileNotFound        = errors.New("file not found in submission")
	ErrFileAlreadyReviewed = errors.New("file has already been reviewed")
	ErrNothingToReview     = errors.New("submission has no pending files")
	ErrReviewForbidden     = errors.New("caller is not allowed to review submissions")
	ErrReviewConflict      = errors.New("submission was modified by another reviewer, retry")
	ErrInvalidDecision     = errors.New("review decision must be approved or rejected")
	ErrNoValidFiles        = errors.New("no files in the batch passed validation")
)

// FileUpload is one raw uploaded file entering the intake pipeline.
type FileUpload struct {
	Data         []byte
	OriginalName string
	MimeType     string
	Description  string
}

// FileError reports why a single file was rejected at intake. Sibling files
// are unaffected.
type FileError struct {
	OriginalName string `json:"originalName"`
	Reason       string `json:"reason"`
}

// IntakeResult is the terminal outcome of an intake batch. Partial success
// is valid: Submission is nil only when every file failed validation.
type IntakeResult struct {
	Submission    *domain.Submission
	UploadedFiles []string
	Errors        []FileError
}

// StatusNotifier is notified once per successful review batch. Implementations
// must not block; failures must never surface to the review caller.
type StatusNotifier interface {
	NotifyStatusChange(submission *domain.Submission, decision domain.FileStatus, note string)
}

// --- Service Interface ---
type SubmissionService interface {
	// Intake validates and persists an uploaded file batch as one submission.
	Intake(ctx context.Context, owner *domain.User, uploads []FileUpload) (*IntakeResult, error)

	// ReviewAll applies one decision to every pending file in the submission.
	ReviewAll(ctx context.Context, reviewer *domain.User, submissionID primitive.ObjectID, decision domain.FileStatus, reason, notes string) (*domain.Submission, error)

	// ReviewOne applies a decision to a single pending file.
	ReviewOne(ctx context.Context, reviewer *domain.User, submissionID, fileID primitive.ObjectID, decision domain.FileStatus, reason, notes string) (*domain.Submission, error)

	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Submission, error)
	GetByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Submission, error)
	GetAll(ctx context.Context) ([]domain.Submission, error)

	// FileDownloadURL returns a presigned URL for a stored file, or an empty
	// string for inline files (whose bytes ride in the submission document).
	FileDownloadURL(ctx context.Context, submissionID, fileID primitive.ObjectID) (string, error)
}

// --- Service Implementation ---

type submissionService struct {
	submissionRepo repository.SubmissionRepository
	fileStorage    storage.FileStorage // nil when the inline-database path is configured
	notifier       StatusNotifier
	uploadCfg      config.UploadConfig
}

// NewSubmissionService creates a new instance of submissionService.
// fileStorage may be nil; the service then embeds file payloads in the
// submission document under the tighter inline size limit.
func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	fileStorage storage.FileStorage,
	notifier StatusNotifier,
	uploadCfg config.UploadConfig,
) SubmissionService {
	return &submissionService{
		submissionRepo: submissionRepo,
		fileStorage:    fileStorage,
		notifier:       notifier,
		uploadCfg:      uploadCfg,
	}
}

// === Intake ===

func (s *submissionService) maxFileBytes() int64 {
	if s.fileStorage != nil {
		return s.uploadCfg.MaxObjectBytes
	}
	return s.uploadCfg.MaxInlineBytes
}

// validateUpload applies the per-file checks in order: presence, size, type.
func (s *submissionService) validateUpload(u *FileUpload) error {
	if len(u.Data) == 0 || u.OriginalName == "" || u.MimeType == "" || u.Description == "" {
		return errors.New("missing required field (file, name, type, and description are all required)")
	}
	if limit := s.maxFileBytes(); int64(len(u.Data)) > limit {
		return fmt.Errorf("file exceeds maximum size of %d bytes", limit)
	}
	if !s.mimeAllowed(u.MimeType) {
		return fmt.Errorf("unsupported file type %q", u.MimeType)
	}
	return nil
}

func (s *submissionService) mimeAllowed(mimeType string) bool {
	for _, allowed := range s.uploadCfg.AllowedTypes {
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok {
			if strings.HasPrefix(mimeType, prefix+"/") {
				return true
			}
			continue
		}
		if mimeType == allowed {
			return true
		}
	}
	return false
}

// Intake validates every file in the batch, collecting per-file errors
// instead of aborting, then persists the survivors as one aggregate write.
// Binary payloads go to object storage when configured, otherwise inline.
func (s *submissionService) Intake(ctx context.Context, owner *domain.User, uploads []FileUpload) (*IntakeResult, error) {
	if owner == nil || owner.ID == primitive.NilObjectID {
		return nil, errors.New("owner identity is required")
	}
	if len(uploads) == 0 {
		return nil, errors.New("at least one file is required")
	}

	result := &IntakeResult{}
	now := time.Now().UTC()

	var files []domain.FileReviewRecord
	var payloads [][]byte
	for i := range uploads {
		u := &uploads[i]
		if err := s.validateUpload(u); err != nil {
			result.Errors = append(result.Errors, FileError{OriginalName: u.OriginalName, Reason: err.Error()})
			continue
		}

		rec := domain.FileReviewRecord{
			ID:           primitive.NewObjectID(),
			OriginalName: u.OriginalName,
			StoredName:   objectKey(owner.ID, u.OriginalName),
			MimeType:     u.MimeType,
			SizeBytes:    int64(len(u.Data)),
			Description:  u.Description,
			Status:       domain.FilePending,
			UploadedAt:   now,
		}
		if s.fileStorage == nil {
			rec.InlineData = u.Data
		}
		files = append(files, rec)
		payloads = append(payloads, u.Data)
	}

	if len(files) == 0 {
		return result, nil // every file failed; terminal outcome, not an error
	}

	// The full batch is validated; now perform the durable writes. One
	// object-store write per file, then the single aggregate write.
	if s.fileStorage != nil {
		for i := range files {
			if err := s.fileStorage.Upload(ctx, files[i].StoredName, files[i].MimeType, payloads[i]); err != nil {
				return nil, fmt.Errorf("storing file %q: %w", files[i].OriginalName, err)
			}
		}
	}

	submission := &domain.Submission{
		OwnerID:    owner.ID,
		OwnerEmail: owner.Email,
		OwnerName:  owner.Name,
		Files:      files,
	}
	if _, err := s.submissionRepo.Create(ctx, submission); err != nil {
		return nil, err
	}

	result.Submission = submission
	for i := range files {
		result.UploadedFiles = append(result.UploadedFiles, files[i].OriginalName)
	}
	return result, nil
}

// objectKey builds the stored name for an uploaded file.
func objectKey(ownerID primitive.ObjectID, originalName string) string {
	return fmt.Sprintf("submissions/%s/%s%s", ownerID.Hex(), uuid.NewString(), filepath.Ext(originalName))
}

// === Review ===

// ReviewAll applies the same decision to every pending file in one atomic
// batch, then notifies the owner exactly once.
func (s *submissionService) ReviewAll(ctx context.Context, reviewer *domain.User, submissionID primitive.ObjectID, decision domain.FileStatus, reason, notes string) (*domain.Submission, error) {
	submission, err := s.reviewPreamble(ctx, reviewer, submissionID, decision)
	if err != nil {
		return nil, err
	}

	transitioned := 0
	now := time.Now().UTC()
	for i := range submission.Files {
		if submission.Files[i].Reviewed() {
			continue // terminal states are one-shot; bulk review skips them
		}
		stampReview(&submission.Files[i], reviewer, decision, reason, notes, now)
		transitioned++
	}
	if transitioned == 0 {
		return nil, ErrNothingToReview
	}

	return s.persistReview(ctx, submission, decision, notes)
}

// ReviewOne applies a decision to a single file.
func (s *submissionService) ReviewOne(ctx context.Context, reviewer *domain.User, submissionID, fileID primitive.ObjectID, decision domain.FileStatus, reason, notes string) (*domain.Submission, error) {
	submission, err := s.reviewPreamble(ctx, reviewer, submissionID, decision)
	if err != nil {
		return nil, err
	}

	found := false
	now := time.Now().UTC()
	for i := range submission.Files {
		if submission.Files[i].ID != fileID {
			continue
		}
		if submission.Files[i].Reviewed() {
			return nil, ErrFileAlreadyReviewed
		}
		stampReview(&submission.Files[i], reviewer, decision, reason, notes, now)
		found = true
		break
	}
	if !found {
		return nil, ErrFileNotFound
	}

	return s.persistReview(ctx, submission, decision, notes)
}

func (s *submissionService) reviewPreamble(ctx context.Context, reviewer *domain.User, submissionID primitive.ObjectID, decision domain.FileStatus) (*domain.Submission, error) {
	if reviewer == nil || !reviewer.CanReview() {
		return nil, ErrReviewForbidden
	}
	if decision != domain.FileApproved && decision != domain.FileRejected {
		return nil, ErrInvalidDecision
	}

	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

func stampReview(file *domain.FileReviewRecord, reviewer *domain.User, decision domain.FileStatus, reason, notes string, at time.Time) {
	file.Status = decision
	file.ReviewedBy = reviewer.Email
	file.ReviewedAt = &at
	file.ReviewNotes = notes
	if decision == domain.FileRejected {
		file.RejectionReason = reason
	}
}

func (s *submissionService) persistReview(ctx context.Context, submission *domain.Submission, decision domain.FileStatus, notes string) (*domain.Submission, error) {
	submission.Status = domain.ComputeStatus(submission.Files)

	err := s.submissionRepo.ReplaceFiles(ctx, submission.ID, submission.Files, submission.Status, submission.Version)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrReviewConflict
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	submission.Version++

	// One notification per review batch, never per file. Fire-and-forget:
	// the dispatcher owns delivery and its failures.
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(submission, decision, notes)
	}
	return submission, nil
}

// === Reads ===

func (s *submissionService) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Submission, error) {
	submission, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

func (s *submissionService) GetByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Submission, error) {
	return s.submissionRepo.GetByOwnerID(ctx, ownerID)
}

func (s *submissionService) GetAll(ctx context.Context) ([]domain.Submission, error) {
	return s.submissionRepo.GetAll(ctx)
}

// FileDownloadURL resolves a presigned download URL for a stored file.
func (s *submissionService) FileDownloadURL(ctx context.Context, submissionID, fileID primitive.ObjectID) (string, error) {
	submission, err := s.GetByID(ctx, submissionID)
	if err != nil {
		return "", err
	}
	for i := range submission.Files {
		if submission.Files[i].ID != fileID {
			continue
		}
		if len(submission.Files[i].InlineData) > 0 || s.fileStorage == nil {
			return "", nil // inline file, no external URL
		}
		return s.fileStorage.GeneratePresignedDownloadURL(ctx, submission.Files[i].StoredName, storage.DefaultPresignedURLExpiry)
	}
	return "", ErrFileNotFound
}
