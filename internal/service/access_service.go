package service

import (
	"context"
	"errors"
	"time"

	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/qr"
	"carelink/health-portal/internal/repository"
	"carelink/health-portal/internal/token"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAccessDenied = errors.New("token does not grant access to this submission")
	ErrQRRender     = errors.New("failed to render QR image")
)

// QRResult is the outcome of issuing an access token: the opaque token, its
// expiry, and the rendered QR PNG encoding the token.
type QRResult struct {
	Token     string
	ExpiresAt time.Time
	PNG       []byte
}

// --- Service Interface ---
type AccessService interface {
	// GenerateQR issues an encrypted access token for the user and renders
	// it as a QR image.
	GenerateQR(ctx context.Context, user *domain.User) (*QRResult, error)

	// RedeemAccess validates a QR token against a submission, appends a
	// qr_scan access-log entry, and returns the submission. Failed or
	// expired redemptions leave no log entry.
	RedeemAccess(ctx context.Context, submissionID primitive.ObjectID, tok, userAgent string) (*domain.Submission, error)

	// DashboardAccess reads a submission on behalf of reviewing staff and
	// appends an admin_dashboard access-log entry.
	DashboardAccess(ctx context.Context, submissionID primitive.ObjectID, accessor *domain.User, userAgent string) (*domain.Submission, error)

	// AccessHistory returns the append-only access log of a submission.
	AccessHistory(ctx context.Context, submissionID primitive.ObjectID) ([]domain.AccessLogEntry, error)
}

// --- Service Implementation ---

type accessService struct {
	submissionRepo repository.SubmissionRepository
	accessLogRepo  repository.AccessLogRepository
	codec          *token.Codec
	renderer       qr.Renderer
	tokenTTL       time.Duration
}

// NewAccessService creates a new instance of accessService.
func NewAccessService(
	submissionRepo repository.SubmissionRepository,
	accessLogRepo repository.AccessLogRepository,
	codec *token.Codec,
	renderer qr.Renderer,
	tokenTTL time.Duration,
) AccessService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &accessService{
		submissionRepo: submissionRepo,
		accessLogRepo:  accessLogRepo,
		codec:          codec,
		renderer:       renderer,
		tokenTTL:       tokenTTL,
	}
}

// GenerateQR issues a token carrying the user's identity and renders it.
func (s *accessService) GenerateQR(ctx context.Context, user *domain.User) (*QRResult, error) {
	if user == nil || user.ID == primitive.NilObjectID {
		return nil, errors.New("user identity is required")
	}

	now := time.Now().UTC()
	payload := token.Payload{
		UserID:          user.ID.Hex(),
		UserEmail:       user.Email,
		UserDisplayName: user.Name,
		Type:            token.TypeSubmissionAccess,
		GeneratedAt:     now,
		ExpiresAt:       now.Add(s.tokenTTL),
		Version:         token.PayloadVersion,
	}

	tok, err := s.codec.Issue(payload)
	if err != nil {
		return nil, err
	}

	png, err := s.renderer.RenderPNG(tok, qr.DefaultSize)
	if err != nil {
		return nil, ErrQRRender
	}

	return &QRResult{Token: tok, ExpiresAt: payload.ExpiresAt, PNG: png}, nil
}

// RedeemAccess decrypts and validates the token, checks it belongs to the
// submission owner, then logs and returns the submission. Token errors pass
// through unchanged so handlers can map Corrupt/Expired/SchemaMismatch.
func (s *accessService) RedeemAccess(ctx context.Context, submissionID primitive.ObjectID, tok, userAgent string) (*domain.Submission, error) {
	payload, err := s.codec.Redeem(tok)
	if err != nil {
		return nil, err
	}

	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	// A token only opens the submissions of the user it was minted for.
	if submission.OwnerID.Hex() != payload.UserID {
		return nil, ErrAccessDenied
	}

	accessedBy := payload.UserEmail
	if accessedBy == "" {
		accessedBy = domain.AnonymousAccessor
	}
	entry := &domain.AccessLogEntry{
		SubmissionID: submission.ID,
		AccessedBy:   accessedBy,
		AccessType:   domain.AccessQRScan,
		UserAgent:    userAgent,
	}
	if err := s.accessLogRepo.Append(ctx, entry); err != nil {
		return nil, err
	}

	return submission, nil
}

// DashboardAccess reads a submission for reviewing staff and records the
// access.
func (s *accessService) DashboardAccess(ctx context.Context, submissionID primitive.ObjectID, accessor *domain.User, userAgent string) (*domain.Submission, error) {
	if accessor == nil || !accessor.CanReview() {
		return nil, ErrReviewForbidden
	}

	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	entry := &domain.AccessLogEntry{
		SubmissionID: submission.ID,
		AccessedBy:   accessor.Email,
		AccessType:   domain.AccessAdminDashboard,
		UserAgent:    userAgent,
	}
	if err := s.accessLogRepo.Append(ctx, entry); err != nil {
		return nil, err
	}

	return submission, nil
}

// AccessHistory returns the access log entries of a submission.
func (s *accessService) AccessHistory(ctx context.Context, submissionID primitive.ObjectID) ([]domain.AccessLogEntry, error) {
	return s.accessLogRepo.GetBySubmissionID(ctx, submissionID)
}
