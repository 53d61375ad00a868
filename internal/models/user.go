package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole controls access to the operator surface
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleSeller UserRole = "seller"
	RoleUser   UserRole = "user"
)

// User represents an account. The core only reads display fields for winner
// denormalization; the operator surface additionally authenticates admins.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password,omitempty" json:"-"`
	Role       UserRole           `bson:"role" json:"role"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	NationalID string             `bson:"nationalId,omitempty" json:"nationalId,omitempty"`
	Blocked    bool               `bson:"blocked" json:"blocked"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
