package api

import (
	"errors"
	"fmt"
	"net/http"

	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderHandler holds the reminder service dependency.
type ReminderHandler struct {
	reminderService service.ReminderService
	authService     service.AuthService
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(reminderService service.ReminderService, authService service.AuthService) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
		authService:     authService,
	}
}

// --- Request/Response Structs ---

type CreateReminderRequest struct {
	Medication string `json:"medication" binding:"required"`
	Dosage     string `json:"dosage,omitempty"`
	Hour       *int   `json:"hour" binding:"required"`
	Minute     *int   `json:"minute" binding:"required"`
}

type ReminderResponse struct {
	ID         string `json:"id"`
	Medication string `json:"medication"`
	Dosage     string `json:"dosage,omitempty"`
	Hour       int    `json:"hour"`
	Minute     int    `json:"minute"`
	Enabled    bool   `json:"enabled"`
}

// --- Handler Methods ---

// CreateReminder schedules a daily medication reminder for the caller.
func (h *ReminderHandler) CreateReminder(c *gin.Context) {
	owner, ok := currentUser(c, h.authService)
	if !ok {
		return
	}

	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, ErrKindValidation, fmt.Sprintf("Validation error: %v", err))
		return
	}

	reminder, err := h.reminderService.Create(c.Request.Context(), owner, req.Medication, req.Dosage, *req.Hour, *req.Minute)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSchedule) {
			abortWithError(c, http.StatusBadRequest, ErrKindValidation, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to create reminder.")
		}
		return
	}

	c.JSON(http.StatusCreated, mapReminderToResponse(reminder))
}

// MyReminders lists the caller's reminders.
func (h *ReminderHandler) MyReminders(c *gin.Context) {
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

	reminders, err := h.reminderService.ListMine(c.Request.Context(), ownerID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to load reminders.")
		return
	}

	out := make([]ReminderResponse, 0, len(reminders))
	for i := range reminders {
		out = append(out, mapReminderToResponse(&reminders[i]))
	}
	c.JSON(http.StatusOK, out)
}

// DeleteReminder removes one of the caller's reminders.
func (h *ReminderHandler) DeleteReminder(c *gin.Context) {
	reminderID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
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

	if err := h.reminderService.Delete(c.Request.Context(), reminderID, ownerID); err != nil {
		if errors.Is(err, service.ErrReminderNotFound) {
			abortWithError(c, http.StatusNotFound, ErrKindNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, ErrKindDependency, "Failed to delete reminder.")
		}
		return
	}
	c.Status(http.StatusNoContent)
}

func mapReminderToResponse(r *domain.Reminder) ReminderResponse {
	return ReminderResponse{
		ID:         r.ID.Hex(),
		Medication: r.Medication,
		Dosage:     r.Dosage,
		Hour:       r.Hour,
		Minute:     r.Minute,
		Enabled:    r.Enabled,
	}
}
