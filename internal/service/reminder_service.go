package service

import (
	"context"
	"errors"

	"carelink/health-portal/internal/domain"
	"carelink/health-portal/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrReminderNotFound = errors.New("reminder not found")
	ErrInvalidSchedule  = errors.New("reminder schedule must be a valid time of day")
)

// --- Service Interface ---
type ReminderService interface {
	Create(ctx context.Context, owner *domain.User, medication, dosage string, hour, minute int) (*domain.Reminder, error)
	ListMine(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Reminder, error)
	Delete(ctx context.Context, id, ownerID primitive.ObjectID) error
}

// --- Service Implementation ---

type reminderService struct {
	reminderRepo repository.ReminderRepository
}

// NewReminderService creates a new instance of reminderService.
func NewReminderService(reminderRepo repository.ReminderRepository) ReminderService {
	return &reminderService{reminderRepo: reminderRepo}
}

// Create adds an enabled reminder for the owner.
func (s *reminderService) Create(ctx context.Context, owner *domain.User, medication, dosage string, hour, minute int) (*domain.Reminder, error) {
	if owner == nil || owner.ID == primitive.NilObjectID {
		return nil, errors.New("owner identity is required")
	}
	if medication == "" {
		return nil, errors.New("medication name is required")
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, ErrInvalidSchedule
	}

	reminder := &domain.Reminder{
		OwnerID:    owner.ID,
		OwnerEmail: owner.Email,
		Medication: medication,
		Dosage:     dosage,
		Hour:       hour,
		Minute:     minute,
		Enabled:    true,
	}

	id, err := s.reminderRepo.Create(ctx, reminder)
	if err != nil {
		return nil, err
	}
	reminder.ID = id
	return reminder, nil
}

// ListMine returns the owner's reminders.
func (s *reminderService) ListMine(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Reminder, error) {
	return s.reminderRepo.GetByOwnerID(ctx, ownerID)
}

// Delete removes one of the owner's reminders.
func (s *reminderService) Delete(ctx context.Context, id, ownerID primitive.ObjectID) error {
	err := s.reminderRepo.Delete(ctx, id, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrReminderNotFound
	}
	return err
}
