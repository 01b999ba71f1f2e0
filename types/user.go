package types

import "time"

// Roles a user account can hold. Every account is created with RoleUser;
// promotion to RoleAdmin happens out of band.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique handle chosen by the user (3-30 characters).
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the system,
	// one of RoleUser or RoleAdmin.
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// AvatarKey is the object-storage key of the user's avatar image.
	// Empty when no avatar has been uploaded.
	AvatarKey string `json:"-" db:"avatar_key"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
