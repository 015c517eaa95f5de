package models

import "time"

// AuthToken represents an opaque bearer token owned by one user
type AuthToken struct {
	Key       string    `json:"token" db:"token"`             // Random hex key
	UserID    int64     `json:"user_id" db:"user_id"`       // Owning user
	CreatedAt time.Time `json:"created_at" db:"created_at"` // Issue timestamp
}
