package notify

import "time"

// Kind classifies what a notification is about.
type Kind string

const (
	KindStatusChange       Kind = "status_change"
	KindMedicationReminder Kind = "medication_reminder"
)

// Notification is an outbound message to a submission owner or reminder
// holder. Recipient may be empty, in which case delivery is skipped.
type Notification struct {
	Kind      Kind   `json:"kind"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Result is the dispatcher's record of one delivery attempt.
type Result string

const (
	ResultSent    Result = "sent"
	ResultSkipped Result = "delivery_skipped"
	ResultFailed  Result = "failed"
)

// Attempt pairs a notification with its outcome for the failure log sink.
type Attempt struct {
	Notification Notification
	Result       Result
	At           time.Time
}
