package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reminder is a recurring medication reminder owned by a worker. The
// scheduler fires it at most once per day at the configured local time.
type Reminder struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID    primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	OwnerEmail string             `bson:"ownerEmail" json:"-"`
	Medication string             `bson:"medication" json:"medication"`
	Dosage     string             `bson:"dosage,omitempty" json:"dosage,omitempty"`
	Hour       int                `bson:"hour" json:"hour"`     // 0-23
	Minute     int                `bson:"minute" json:"minute"` // 0-59
	Enabled    bool               `bson:"enabled" json:"enabled"`
	LastFired  *time.Time         `bson:"lastFired,omitempty" json:"lastFired,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// Due reports whether the reminder should fire at the given time.
// A reminder is due once its scheduled minute has passed for the current
// day and it has not already fired today.
func (r *Reminder) Due(now time.Time) bool {
	if !r.Enabled {
		return false
	}
	scheduled := time.Date(now.Year(), now.Month(), now.Day(), r.Hour, r.Minute, 0, 0, now.Location())
	if now.Before(scheduled) {
		return false
	}
	if r.LastFired != nil && !r.LastFired.Before(scheduled) {
		return false
	}
	return true
}
