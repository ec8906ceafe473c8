package entity

import "time"

// Client is an end user who uploads requested documents. A client starts
// with a one-time access key and no password; activation consumes the key,
// stores a password hash and flips IsActive. The key and an activated
// password hash are mutually exclusive.
type Client struct {
	ID              int64     `db:"id"`
	Name            string    `db:"name"`
	Email           string    `db:"email"`
	AccessKey       *string   `db:"access_key"`
	PasswordHash    *string   `db:"password_hash"`
	IsActive        bool      `db:"is_active"`
	CreatedByFirmID int64     `db:"created_by_firm_id"`
	CreatedAt       time.Time `db:"created_at"`
}
