package models

import "time"

// Session binds an issued user token to a server-side expiry and activity
// clock. A token is only usable while both its own embedded expiry and the
// session's expiresAt hold.
type Session struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Token        string    `json:"token"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActivity time.Time `json:"lastActivity"`
}

func (s Session) Expired() bool {
	return s.ExpiresAt.Before(time.Now())
}

type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}
