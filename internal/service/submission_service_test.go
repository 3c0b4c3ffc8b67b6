package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"carelink/health-portal/internal/config"
	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Fakes ---

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[primitive.ObjectID]*domain.Submission
	// forceVersionConflict makes the next ReplaceFiles lose the CAS.
	forceVersionConflict bool
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: make(map[primitive.ObjectID]*domain.Submission)}
}

func (f *fakeSubmissionRepo) Create(_ context.Context, s *domain.Submission) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = primitive.NewObjectID()
	s.SubmittedAt = time.Now().UTC()
	s.Status = domain.ComputeStatus(s.Files)
	s.Version = 1
	s.SchemaVersion = domain.SubmissionSchemaVersion
	cp := cloneSubmission(s)
	f.submissions[s.ID] = cp
	return s.ID, nil
}

func (f *fakeSubmissionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSubmission(s), nil
}

func (f *fakeSubmissionRepo) GetByOwnerID(_ context.Context, ownerID primitive.ObjectID) ([]domain.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Submission
	for _, s := range f.submissions {
		if s.OwnerID == ownerID {
			out = append(out, *cloneSubmission(s))
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) GetAll(_ context.Context) ([]domain.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Submission
	for _, s := range f.submissions {
		out = append(out, *cloneSubmission(s))
	}
	return out, nil
}

func (f *fakeSubmissionRepo) ReplaceFiles(_ context.Context, id primitive.ObjectID, files []domain.FileReviewRecord, status domain.SubmissionStatus, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if f.forceVersionConflict || s.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	s.Files = append([]domain.FileReviewRecord(nil), files...)
	s.Status = status
	s.Version++
	return nil
}

func cloneSubmission(s *domain.Submission) *domain.Submission {
	cp := *s
	cp.Files = append([]domain.FileReviewRecord(nil), s.Files...)
	return &cp
}

type fakeFileStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeFileStorage() *fakeFileStorage {
	return &fakeFileStorage{objects: make(map[string][]byte)}
}

func (f *fakeFileStorage) Upload(_ context.Context, objectKey, _ string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectKey] = data
	return nil
}

func (f *fakeFileStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.example.com/" + objectKey, nil
}

func (f *fakeFileStorage) DeleteObject(_ context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectKey)
	return nil
}

type statusChange struct {
	submissionID primitive.ObjectID
	status       domain.SubmissionStatus
	decision     domain.FileStatus
}

type recordingStatusNotifier struct {
	mu      sync.Mutex
	changes []statusChange
}

func (n *recordingStatusNotifier) NotifyStatusChange(s *domain.Submission, decision domain.FileStatus, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, statusChange{submissionID: s.ID, status: s.Status, decision: decision})
}

func (n *recordingStatusNotifier) Changes() []statusChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]statusChange, len(n.changes))
	copy(out, n.changes)
	return out
}

// --- Helpers ---

func testUploadCfg() config.UploadConfig {
	return config.UploadConfig{
		MaxObjectBytes: 5 * 1024 * 1024,
		MaxInlineBytes: 1 * 1024 * 1024,
		AllowedTypes:   []string{"image/*", "application/pdf"},
	}
}

func testWorker() *domain.User {
	return &domain.User{
		ID:    primitive.NewObjectID(),
		Name:  "Amina Yusuf",
		Email: "amina@example.com",
		Role:  domain.RoleWorker,
	}
}

func testAdmin() *domain.User {
	return &domain.User{
		ID:    primitive.NewObjectID(),
		Name:  "Clinic Admin",
		Email: "admin@example.com",
		Role:  domain.RoleAdmin,
	}
}

func validUpload(name string) FileUpload {
	return FileUpload{
		Data:         []byte("payload of " + name),
		OriginalName: name,
		MimeType:     "image/jpeg",
		Description:  "vaccination card",
	}
}

func submitBatch(t *testing.T, svc SubmissionService, owner *domain.User, uploads ...FileUpload) *domain.Submission {
	t.Helper()
	result, err := svc.Intake(context.Background(), owner, uploads)
	require.NoError(t, err)
	require.NotNil(t, result.Submission)
	return result.Submission
}

// --- Intake ---

func TestIntake_PartialSuccess(t *testing.T) {
	repo := newFakeSubmissionRepo()
	store := newFakeFileStorage()
	notifier := &recordingStatusNotifier{}
	svc := NewSubmissionService(repo, store, notifier, testUploadCfg())

	oversized := validUpload("huge.jpg")
	oversized.Data = make([]byte, 6*1024*1024)

	result, err := svc.Intake(context.Background(), testWorker(), []FileUpload{
		validUpload("card.jpg"),
		oversized,
		validUpload("xray.jpg"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Submission)

	assert.Equal(t, []string{"card.jpg", "xray.jpg"}, result.UploadedFiles)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "huge.jpg", result.Errors[0].OriginalName)
	assert.Contains(t, result.Errors[0].Reason, "maximum size")

	// Only the survivors made it to storage and into the aggregate.
	assert.Len(t, store.objects, 2)
	assert.Len(t, result.Submission.Files, 2)
	assert.Equal(t, domain.SubmissionPending, result.Submission.Status)
}

func TestIntake_AllFilesInvalid(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := NewSubmissionService(repo, newFakeFileStorage(), nil, testUploadCfg())

	noDescription := validUpload("card.jpg")
	noDescription.Description = ""
	badType := validUpload("report.exe")
	badType.MimeType = "application/octet-stream"

	result, err := svc.Intake(context.Background(), testWorker(), []FileUpload{noDescription, badType})
	require.NoError(t, err)
	assert.Nil(t, result.Submission)
	assert.Len(t, result.Errors, 2)
	assert.Empty(t, repo.submissions)
}

func TestIntake_MimeWildcardAndExactMatch(t *testing.T) {
	svc := NewSubmissionService(newFakeSubmissionRepo(), newFakeFileStorage(), nil, testUploadCfg())

	pngUpload := validUpload("scan.png")
	pngUpload.MimeType = "image/png"
	pdfUpload := validUpload("report.pdf")
	pdfUpload.MimeType = "application/pdf"
	textUpload := validUpload("notes.txt")
	textUpload.MimeType = "text/plain"

	result, err := svc.Intake(context.Background(), testWorker(), []FileUpload{pngUpload, pdfUpload, textUpload})
	require.NoError(t, err)
	require.NotNil(t, result.Submission)
	assert.Equal(t, []string{"scan.png", "report.pdf"}, result.UploadedFiles)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "notes.txt", result.Errors[0].OriginalName)
}

func TestIntake_InlinePathUsesTighterLimit(t *testing.T) {
	repo := newFakeSubmissionRepo()
	// No file storage configured: payloads go inline, 1 MiB cap applies.
	svc := NewSubmissionService(repo, nil, nil, testUploadCfg())

	small := validUpload("card.jpg")
	big := validUpload("xray.jpg")
	big.Data = make([]byte, 2*1024*1024)

	result, err := svc.Intake(context.Background(), testWorker(), []FileUpload{small, big})
	require.NoError(t, err)
	require.NotNil(t, result.Submission)
	assert.Equal(t, []string{"card.jpg"}, result.UploadedFiles)
	require.Len(t, result.Errors, 1)

	require.Len(t, result.Submission.Files, 1)
	assert.Equal(t, small.Data, result.Submission.Files[0].InlineData)
}

// --- Review ---

func TestReviewAll_RejectsEveryPendingFile(t *testing.T) {
	repo := newFakeSubmissionRepo()
	notifier := &recordingStatusNotifier{}
	svc := NewSubmissionService(repo, newFakeFileStorage(), notifier, testUploadCfg())

	submission := submitBatch(t, svc, testWorker(),
		validUpload("a.jpg"), validUpload("b.jpg"), validUpload("c.jpg"), validUpload("d.jpg"))

	reviewed, err := svc.ReviewAll(context.Background(), testAdmin(), submission.ID, domain.FileRejected, "document illegible", "resubmit a sharper photo")
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionRejected, reviewed.Status)
	for _, f := range reviewed.Files {
		assert.Equal(t, domain.FileRejected, f.Status)
		assert.Equal(t, "document illegible", f.RejectionReason)
		assert.Equal(t, "admin@example.com", f.ReviewedBy)
		require.NotNil(t, f.ReviewedAt)
	}

	// One notification for the whole batch, not one per file.
	changes := notifier.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, domain.SubmissionRejected, changes[0].status)
	assert.Equal(t, domain.FileRejected, changes[0].decision)
}

func TestReviewOne_MixedDecisionsYieldPartialApproved(t *testing.T) {
	repo := newFakeSubmissionRepo()
	notifier := &recordingStatusNotifier{}
	svc := NewSubmissionService(repo, newFakeFileStorage(), notifier, testUploadCfg())

	submission := submitBatch(t, svc, testWorker(), validUpload("a.jpg"), validUpload("b.jpg"))
	admin := testAdmin()

	first, err := svc.ReviewOne(context.Background(), admin, submission.ID, submission.Files[0].ID, domain.FileApproved, "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionPartialApproved, first.Status)

	second, err := svc.ReviewOne(context.Background(), admin, submission.ID, submission.Files[1].ID, domain.FileRejected, "wrong document", "")
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionPartialApproved, second.Status)

	assert.Len(t, notifier.Changes(), 2)
}

func TestReviewOne_AlreadyReviewedFileIsTerminal(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := NewSubmissionService(repo, newFakeFileStorage(), &recordingStatusNotifier{}, testUploadCfg())

	submission := submitBatch(t, svc, testWorker(), validUpload("a.jpg"))
	admin := testAdmin()

	_, err := svc.ReviewOne(context.Background(), admin, submission.ID, submission.Files[0].ID, domain.FileApproved, "", "")
	require.NoError(t, err)

	_, err = svc.ReviewOne(context.Background(), admin, submission.ID, submission.Files[0].ID, domain.FileRejected, "changed my mind", "")
	assert.ErrorIs(t, err, ErrFileAlreadyReviewed)

	// The stored decision is untouched.
	stored, err := svc.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileApproved, stored.Files[0].Status)
}

func TestReviewAll_NothingPendingLeft(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := NewSubmissionService(repo, newFakeFileStorage(), &recordingStatusNotifier{}, testUploadCfg())

	submission := submitBatch(t, svc, testWorker(), validUpload("a.jpg"))
	admin := testAdmin()

	_, err := svc.ReviewAll(context.Background(), admin, submission.ID, domain.FileApproved, "", "")
	require.NoError(t, err)

	_, err = svc.ReviewAll(context.Background(), admin, submission.ID, domain.FileApproved, "", "")
	assert.ErrorIs(t, err, ErrNothingToReview)
}

func TestReview_WorkerCannotReview(t *testing.T) {
	repo := newFakeSubmissionRepo()
	notifier := &recordingStatusNotifier{}
	svc := NewSubmissionService(repo, newFakeFileStorage(), notifier, testUploadCfg())

	worker := testWorker()
	submission := submitBatch(t, svc, worker, validUpload("a.jpg"))

	_, err := svc.ReviewAll(context.Background(), worker, submission.ID, domain.FileApproved, "", "")
	assert.ErrorIs(t, err, ErrReviewForbidden)

	stored, err := svc.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionPending, stored.Status)
	assert.Empty(t, notifier.Changes())
}

func TestReview_InvalidDecisionRejected(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := NewSubmissionService(repo, newFakeFileStorage(), nil, testUploadCfg())

	submission := submitBatch(t, svc, testWorker(), validUpload("a.jpg"))

	_, err := svc.ReviewAll(context.Background(), testAdmin(), submission.ID, domain.FilePending, "", "")
	assert.ErrorIs(t, err, ErrInvalidDecision)
}

func TestReview_VersionConflictSurfaces(t *testing.T) {
	repo := newFakeSubmissionRepo()
	notifier := &recordingStatusNotifier{}
	svc := NewSubmissionService(repo, newFakeFileStorage(), notifier, testUploadCfg())

	submission := submitBatch(t, svc, testWorker(), validUpload("a.jpg"))
	repo.forceVersionConflict = true

	_, err := svc.ReviewAll(context.Background(), testAdmin(), submission.ID, domain.FileApproved, "", "")
	assert.ErrorIs(t, err, ErrReviewConflict)
	assert.Empty(t, notifier.Changes())
}

func TestReview_SubmissionNotFound(t *testing.T) {
	svc := NewSubmissionService(newFakeSubmissionRepo(), newFakeFileStorage(), nil, testUploadCfg())

	_, err := svc.ReviewAll(context.Background(), testAdmin(), primitive.NewObjectID(), domain.FileApproved, "", "")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

// --- Download URLs ---

func TestFileDownloadURL(t *testing.T) {
	repo := newFakeSubmissionRepo()
	store := newFakeFileStorage()
	svc := NewSubmissionService(repo, store, nil, testUploadCfg())

	submission := submitBatch(t, svc, testWorker(), validUpload("a.jpg"))

	url, err := svc.FileDownloadURL(context.Background(), submission.ID, submission.Files[0].ID)
	require.NoError(t, err)
	assert.Contains(t, url, submission.Files[0].StoredName)

	_, err = svc.FileDownloadURL(context.Background(), submission.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFileDownloadURL_InlineFileHasNoURL(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := NewSubmissionService(repo, nil, nil, testUploadCfg())

	submission := submitBatch(t, svc, testWorker(), validUpload("a.jpg"))

	url, err := svc.FileDownloadURL(context.Background(), submission.ID, submission.Files[0].ID)
	require.NoError(t, err)
	assert.Empty(t, url)
}
