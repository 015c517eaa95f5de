package models

import (
	"time"
)

// User represents a user record in the database
type User struct {
	ID          int64      `json:"id" db:"id"`                       // Primary key
	Username    string     `json:"username" db:"username"`           // Unique username
	Email       string     `json:"email" db:"email"`                 // User email
	Password    string     `json:"-" db:"password"`                  // Hashed password, never rendered
	FirstName   string     `json:"first_name" db:"first_name"`       // Given name
	LastName    string     `json:"last_name" db:"last_name"`         // Family name
	Bio         string     `json:"bio" db:"bio"`                     // Free text about the user
	DateOfBirth *time.Time `json:"date_of_birth" db:"date_of_birth"` // Optional birth date
	IsActive    bool       `json:"-" db:"is_active"`                 // false = soft deleted
	CreatedAt   time.Time  `json:"-" db:"created_at"`                // Creation timestamp
	UpdatedAt   time.Time  `json:"-" db:"updated_at"`                // Last update timestamp
}

// Profile holds the user fields that can be set on registration or profile update.
type Profile struct {
	Email       string
	FirstName   string
	LastName    string
	Bio         string
	DateOfBirth *time.Time
}

// RegisterParams is the input of a registration.
type RegisterParams struct {
	Username string
	Password string
	Profile  ProfileUpdate
}

// ProfileUpdate carries optional profile fields; nil means "not supplied".
// DateOfBirth is YYYY-MM-DD, an empty string clears it.
type ProfileUpdate struct {
	Email       *string
	FirstName   *string
	LastName    *string
	Bio         *string
	DateOfBirth *string
}

// ProfileOf returns the writable profile fields of u.
func ProfileOf(u *User) Profile {
	return Profile{
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Bio:         u.Bio,
		DateOfBirth: u.DateOfBirth,
	}
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	User        *User
	Token       string
	Reactivated bool
}
