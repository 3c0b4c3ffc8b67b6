package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"carelink/health-portal/internal/service"
	"carelink/health-portal/internal/token"

	"github.com/gin-gonic/gin"
)

// AccessHandler holds the services behind the QR access flow.
type AccessHandler struct {
	accessService service.AccessService
	authService   service.AuthService
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(accessService service.AccessService, authService service.AuthService) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
		authService:   authService,
	}
}

// --- Request/Response Structs ---

type QRResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	// QRImage is the PNG rendering of the token, base64-encoded for JSON.
	QRImage string `json:"qrImage"`
}

type AccessLogResponse struct {
	SubmissionID string    `json:"submissionId"`
	AccessedBy   string    `json:"accessedBy"`
	AccessType   string    `json:"accessType"`
	UserAgent    string    `json:"userAgent,omitempty"`
	AccessedAt   time.Time `json:"accessedAt"`
}

// --- Handler Methods ---

// GenerateQR issues an access token for the caller and returns it alongside
// its QR rendering.
func (h *AccessHandler) GenerateQR(c *gin.Context) {
	user, ok := currentUser(c, h.authService)
	if !ok {
		return
	}

	result, err := h.accessService.GenerateQR(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, service.ErrQRRender) {
			abortWithError(c, http.StatusInternalServerError, ErrKindDependency, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to generate access token.")
		}
		return
	}

	c.JSON(http.StatusOK, QRResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		QRImage:   base64.StdEncoding.EncodeToString(result.PNG),
	})
}

// RedeemAccess opens a submission through a scanned QR token. The token
// arrives as a query parameter because the scanning side is a plain GET.
func (h *AccessHandler) RedeemAccess(c *gin.Context) {
	submissionID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	tok := c.Query("token")
	if tok == "" {
		abortWithError(c, http.StatusBadRequest, ErrKindValidation, "token query parameter is required.")
		return
	}

	submission, err := h.accessService.RedeemAccess(c.Request.Context(), submissionID, tok, c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			abortWithError(c, http.StatusUnauthorized, ErrKindToken, "Access token has expired.")
		case errors.Is(err, token.ErrCorrupt), errors.Is(err, token.ErrSchemaMismatch):
			abortWithError(c, http.StatusUnauthorized, ErrKindToken, "Access token is invalid.")
		case errors.Is(err, service.ErrAccessDenied):
			abortWithError(c, http.StatusForbidden, ErrKindAuth, err.Error())
		case errors.Is(err, service.ErrSubmissionNotFound):
			abortWithError(c, http.StatusNotFound, ErrKindNotFound, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to open submission.")
		}
		return
	}

	c.JSON(http.StatusOK, MapSubmissionToResponse(submission))
}

// DashboardAccess reads a submission for reviewing staff, recording the
// access in the log.
func (h *AccessHandler) DashboardAccess(c *gin.Context) {
	submissionID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	accessor, ok := currentUser(c, h.authService)
	if !ok {
		return
	}

	submission, err := h.accessService.DashboardAccess(c.Request.Context(), submissionID, accessor, c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewForbidden):
			abortWithError(c, http.StatusForbidden, ErrKindAuth, err.Error())
		case errors.Is(err, service.ErrSubmissionNotFound):
			abortWithError(c, http.StatusNotFound, ErrKindNotFound, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to open submission.")
		}
		return
	}

	c.JSON(http.StatusOK, MapSubmissionToResponse(submission))
}

// AccessHistory lists the access log of a submission for reviewing staff.
func (h *AccessHandler) AccessHistory(c *gin.Context) {
	submissionID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.accessService.AccessHistory(c.Request.Context(), submissionID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to load access history.")
		return
	}

	out := make([]AccessLogResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, AccessLogResponse{
			SubmissionID: e.SubmissionID.Hex(),
			AccessedBy:   e.AccessedBy,
			AccessType:   string(e.AccessType),
			UserAgent:    e.UserAgent,
			AccessedAt:   e.AccessedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
