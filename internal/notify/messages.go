package notify

import (
	"fmt"

	"carelink/health-portal/internal/domain"
)

// PortalNotifier composes portal-specific messages and hands them to the
// dispatcher. It satisfies the notifier interfaces of the service and
// reminder packages.
type PortalNotifier struct {
	dispatcher *Dispatcher
}

// NewPortalNotifier wraps a dispatcher.
func NewPortalNotifier(d *Dispatcher) *PortalNotifier {
	return &PortalNotifier{dispatcher: d}
}

// NotifyStatusChange tells the submission owner about a review outcome.
// Fire-and-forget; the caller's response never waits on delivery.
func (p *PortalNotifier) NotifyStatusChange(submission *domain.Submission, decision domain.FileStatus, note string) {
	body := fmt.Sprintf("Hello %s,\n\nYour document submission from %s has been reviewed. Current status: %s.",
		submission.OwnerName, submission.SubmittedAt.Format("2 Jan 2006"), submission.Status)
	if decision == domain.FileRejected && note != "" {
		body += fmt.Sprintf("\nReviewer note: %s", note)
	}
	body += "\n\nOpen the portal to see the outcome for each document."

	p.dispatcher.Dispatch(Notification{
		Kind:      KindStatusChange,
		Recipient: submission.OwnerEmail,
		Subject:   fmt.Sprintf("Document review update: %s", submission.Status),
		Body:      body,
	})
}

// NotifyReminder sends a medication reminder to its owner.
func (p *PortalNotifier) NotifyReminder(reminder domain.Reminder) {
	body := fmt.Sprintf("Time to take %s", reminder.Medication)
	if reminder.Dosage != "" {
		body += fmt.Sprintf(" (%s)", reminder.Dosage)
	}
	body += "."

	p.dispatcher.Dispatch(Notification{
		Kind:      KindMedicationReminder,
		Recipient: reminder.OwnerEmail,
		Subject:   "Medication reminder: " + reminder.Medication,
		Body:      body,
	})
}
