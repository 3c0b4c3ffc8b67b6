package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmissionHandler holds the services driving the document workflow.
type SubmissionHandler struct {
	submissionService service.SubmissionService
	authService       service.AuthService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissionService service.SubmissionService, authService service.AuthService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		authService:       authService,
	}
}

// --- Request/Response Structs ---

// Review actions accepted by the review endpoint.
const (
	ReviewActionApproveAll       = "approve_all"
	ReviewActionRejectAll        = "reject_all"
	ReviewActionReviewIndividual = "review_individual"
)

type ReviewRequest struct {
	Action          string `json:"action" binding:"required,oneof=approve_all reject_all review_individual"`
	FileID          string `json:"fileId,omitempty"`
	Decision        string `json:"decision,omitempty" binding:"omitempty,oneof=approved rejected"`
	RejectionReason string `json:"rejectionReason,omitempty"`
	ReviewNotes     string `json:"reviewNotes,omitempty"`
}

type FileResponse struct {
	ID              string     `json:"id"`
	OriginalName    string     `json:"originalName"`
	MimeType        string     `json:"mimeType"`
	SizeBytes       int64      `json:"sizeBytes"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	ReviewNotes     string     `json:"reviewNotes,omitempty"`
	ReviewedBy      string     `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	UploadedAt      time.Time  `json:"uploadedAt"`
}

type SubmissionResponse struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"ownerId"`
	OwnerEmail  string         `json:"ownerEmail"`
	OwnerName   string         `json:"ownerName"`
	Status      string         `json:"status"`
	SubmittedAt time.Time      `json:"submittedAt"`
	Files       []FileResponse `json:"files"`
}

type IntakeResponse struct {
	Submission    *SubmissionResponse `json:"submission,omitempty"`
	UploadedFiles []string            `json:"uploadedFiles"`
	Errors        []service.FileError `json:"errors,omitempty"`
	Message       string              `json:"message"`
}

// --- Handler Methods ---

// CreateSubmission accepts a multipart batch of files plus parallel
// descriptions and runs it through intake. Partial success returns 201 with
// the per-file errors listed; a batch where every file fails returns 400.
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	owner, ok := currentUser(c, h.authService)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, ErrKindValidation, fmt.Sprintf("Invalid multipart form: %v", err))
		return
	}
	fileHeaders := form.File["files"]
	descriptions := form.Value["descriptions"]
	if len(fileHeaders) == 0 {
		abortWithError(c, http.StatusBadRequest, ErrKindValidation, "At least one file is required under the 'files' field.")
		return
	}

	uploads := make([]service.FileUpload, 0, len(fileHeaders))
	for i, fh := range fileHeaders {
		upload := service.FileUpload{
			OriginalName: fh.Filename,
			MimeType:     fh.Header.Get("Content-Type"),
		}
		if i < len(descriptions) {
			upload.Description = descriptions[i]
		}

		f, err := fh.Open()
		if err != nil {
			abortWithError(c, http.StatusBadRequest, ErrKindValidation, fmt.Sprintf("Failed to read file %q: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			abortWithError(c, http.StatusBadRequest, ErrKindValidation, fmt.Sprintf("Failed to read file %q: %v", fh.Filename, err))
			return
		}
		upload.Data = data
		uploads = append(uploads, upload)
	}

	result, err := h.submissionService.Intake(c.Request.Context(), owner, uploads)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, ErrKindDependency, fmt.Sprintf("Failed to store submission: %v", err))
		return
	}

	resp := IntakeResponse{
		UploadedFiles: result.UploadedFiles,
		Errors:        result.Errors,
	}
	if result.Submission == nil {
		resp.Message = "No files were accepted."
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	mapped := MapSubmissionToResponse(result.Submission)
	resp.Submission = &mapped
	if len(result.Errors) > 0 {
		resp.Message = fmt.Sprintf("%d file(s) uploaded, %d rejected.", len(result.UploadedFiles), len(result.Errors))
	} else {
		resp.Message = fmt.Sprintf("%d file(s) uploaded.", len(result.UploadedFiles))
	}
	c.JSON(http.StatusCreated, resp)
}

// MySubmissions lists the caller's own submissions.
func (h *SubmissionHandler) MySubmissions(c *gin.Context) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, ErrKindAuth, "Unable to identify caller.")
		return
	}
	ownerID, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, ErrKindValidation, "Invalid user ID format in token.")
		return
	}

	submissions, err := h.submissionService.GetByOwner(c.Request.Context(), ownerID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to load submissions.")
		return
	}
	c.JSON(http.StatusOK, MapSubmissionsToResponse(submissions))
}

// ListSubmissions lists every submission for reviewing staff.
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	submissions, err := h.submissionService.GetAll(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to load submissions.")
		return
	}
	c.JSON(http.StatusOK, MapSubmissionsToResponse(submissions))
}

// GetSubmission fetches one submission. Workers may only read their own.
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	submissionID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	submission, err := h.submissionService.GetByID(c.Request.Context(), submissionID)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			abortWithError(c, http.StatusNotFound, ErrKindNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to load submission.")
		}
		return
	}

	role, _ := getUserRoleFromContext(c)
	if role == domain.RoleWorker {
		idStr, _ := getUserIDFromContext(c)
		if submission.OwnerID.Hex() != idStr {
			abortWithError(c, http.StatusForbidden, ErrKindAuth, "You may only view your own submissions.")
			return
		}
	}
	c.JSON(http.StatusOK, MapSubmissionToResponse(submission))
}

// Review applies a review action to a submission: approve_all, reject_all,
// or review_individual with a fileId and decision.
func (h *SubmissionHandler) Review(c *gin.Context) {
	submissionID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	reviewer, ok := currentUser(c, h.authService)
	if !ok {
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, ErrKindValidation, fmt.Sprintf("Validation error: %v", err))
		return
	}

	var submission *domain.Submission
	var err error
	switch req.Action {
	case ReviewActionApproveAll:
		submission, err = h.submissionService.ReviewAll(c.Request.Context(), reviewer, submissionID, domain.FileApproved, "", req.ReviewNotes)
	case ReviewActionRejectAll:
		if req.RejectionReason == "" {
			abortWithError(c, http.StatusBadRequest, ErrKindValidation, "rejectionReason is required when rejecting.")
			return
		}
		submission, err = h.submissionService.ReviewAll(c.Request.Context(), reviewer, submissionID, domain.FileRejected, req.RejectionReason, req.ReviewNotes)
	case ReviewActionReviewIndividual:
		if req.FileID == "" || req.Decision == "" {
			abortWithError(c, http.StatusBadRequest, ErrKindValidation, "fileId and decision are required for individual review.")
			return
		}
		fileID, idErr := primitive.ObjectIDFromHex(req.FileID)
		if idErr != nil {
			abortWithError(c, http.StatusBadRequest, ErrKindValidation, "Invalid fileId format.")
			return
		}
		decision := domain.FileStatus(req.Decision)
		if decision == domain.FileRejected && req.RejectionReason == "" {
			abortWithError(c, http.StatusBadRequest, ErrKindValidation, "rejectionReason is required when rejecting.")
			return
		}
		submission, err = h.submissionService.ReviewOne(c.Request.Context(), reviewer, submissionID, fileID, decision, req.RejectionReason, req.ReviewNotes)
	}

	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound), errors.Is(err, service.ErrFileNotFound):
			abortWithError(c, http.StatusNotFound, ErrKindNotFound, err.Error())
		case errors.Is(err, service.ErrReviewForbidden):
			abortWithError(c, http.StatusForbidden, ErrKindAuth, err.Error())
		case errors.Is(err, service.ErrFileAlreadyReviewed), errors.Is(err, service.ErrNothingToReview), errors.Is(err, service.ErrReviewConflict):
			abortWithError(c, http.StatusConflict, ErrKindConflict, err.Error())
		case errors.Is(err, service.ErrInvalidDecision):
			abortWithError(c, http.StatusBadRequest, ErrKindValidation, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to apply review.")
		}
		return
	}

	c.JSON(http.StatusOK, MapSubmissionToResponse(submission))
}

// FileDownloadURL returns a presigned URL for one stored file.
func (h *SubmissionHandler) FileDownloadURL(c *gin.Context) {
	submissionID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	fileID, ok := parseObjectIDParam(c, "fileId")
	if !ok {
		return
	}

	url, err := h.submissionService.FileDownloadURL(c.Request.Context(), submissionID, fileID)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) || errors.Is(err, service.ErrFileNotFound) {
			abortWithError(c, http.StatusNotFound, ErrKindNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to generate download URL.")
		}
		return
	}
	if url == "" {
		abortWithError(c, http.StatusNotFound, ErrKindNotFound, "File is stored inline and has no download URL.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

// --- Mappers ---

// MapSubmissionToResponse converts a domain Submission to its DTO.
func MapSubmissionToResponse(s *domain.Submission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:          s.ID.Hex(),
		OwnerID:     s.OwnerID.Hex(),
		OwnerEmail:  s.OwnerEmail,
		OwnerName:   s.OwnerName,
		Status:      string(s.Status),
		SubmittedAt: s.SubmittedAt,
		Files:       make([]FileResponse, 0, len(s.Files)),
	}
	for i := range s.Files {
		f := &s.Files[i]
		resp.Files = append(resp.Files, FileResponse{
			ID:              f.ID.Hex(),
			OriginalName:    f.OriginalName,
			MimeType:        f.MimeType,
			SizeBytes:       f.SizeBytes,
			Description:     f.Description,
			Status:          string(f.Status),
			RejectionReason: f.RejectionReason,
			ReviewNotes:     f.ReviewNotes,
			ReviewedBy:      f.ReviewedBy,
			ReviewedAt:      f.ReviewedAt,
			UploadedAt:      f.UploadedAt,
		})
	}
	return resp
}

// MapSubmissionsToResponse converts a slice of submissions.
func MapSubmissionsToResponse(submissions []domain.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(submissions))
	for i := range submissions {
		out = append(out, MapSubmissionToResponse(&submissions[i]))
	}
	return out
}

// parseObjectIDParam reads a path parameter as an ObjectID, aborting with a
// validation error when malformed.
func parseObjectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, ErrKindValidation, fmt.Sprintf("Invalid %s format.", name))
		return primitive.NilObjectID, false
	}
	return id, true
}
