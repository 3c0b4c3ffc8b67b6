package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleWorker       Role = "worker"
	RoleAdmin        Role = "admin"
	RoleHealthCenter Role = "health_center"
)

// User represents an account in the portal: a migrant worker submitting
// documents, a reviewing admin, or health-center staff.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	// Optional push-notification device token registered by the mobile client.
	DeviceToken string    `bson:"deviceToken,omitempty" json:"-"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsWorker() bool {
	return u.Role == RoleWorker
}

// CanReview reports whether this user may act on submission reviews.
func (u *User) CanReview() bool {
	return u.Role == RoleAdmin || u.Role == RoleHealthCenter
}
