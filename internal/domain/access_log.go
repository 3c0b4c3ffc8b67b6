package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessType distinguishes how a submission was read.
type AccessType string

const (
	AccessQRScan         AccessType = "qr_scan"
	AccessAdminDashboard AccessType = "admin_dashboard"
)

// AnonymousAccessor is recorded when a QR scan carries no identifiable email.
const AnonymousAccessor = "anonymous"

// AccessLogEntry records one read of a submission. Entries are append-only
// and are written only for successful reads; a failed or expired token
// redemption leaves no entry.
type AccessLogEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SubmissionID primitive.ObjectID `bson:"submissionId" json:"submissionId"`
	AccessedBy   string             `bson:"accessedBy" json:"accessedBy"` // role/email or "anonymous"
	AccessedAt   time.Time          `bson:"accessedAt" json:"accessedAt"`
	AccessType   AccessType         `bson:"accessType" json:"accessType"`
	UserAgent    string             `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
}
