package models

import (
	"encoding/json"
	"time"
)

// Admin roles. Only owners may delete catalog entries.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleUnknown = "unknown"
)

// Series is keyed by its slug (ID).
type Series struct {
	ID          string          `json:"id" validate:"required"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Episodes    json.RawMessage `json:"episodes"`
	AddedBy     string          `json:"addedBy"`
	// CreatedAt is nil for records imported from the legacy data directory.
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// ApplyDefaults fills the optional fields the way legacy records expect.
func (s *Series) ApplyDefaults() {
	if len(s.Episodes) == 0 || string(s.Episodes) == "null" {
		s.Episodes = json.RawMessage(`{}`)
	}
	if s.AddedBy == "" {
		s.AddedBy = "unknown"
	}
}

// admins collection
type Admin struct {
	Username     string     `json:"username" validate:"required"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *LoginInfo `json:"lastLogin,omitempty"`

	// LegacyPassword is the plaintext credential of records written before
	// hashing was introduced. It is cleared on the first successful login.
	LegacyPassword string `json:"password,omitempty"`
}

type LoginInfo struct {
	Timestamp     time.Time `json:"timestamp"`
	SourceAddress string    `json:"ip,omitempty"`
}

// AdminProfile is the credential-free view returned over the API.
type AdminProfile struct {
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *LoginInfo `json:"lastLogin,omitempty"`
}

func (a Admin) Profile() AdminProfile {
	return AdminProfile{
		Username:  a.Username,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
		LastLogin: a.LastLogin,
	}
}

// sessions collection; append-only.
type Session struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Token         string `json:"token"` // fingerprint, never the bearer token itself
	SourceAddress string `json:"ip,omitempty"`
	Timestamp     int64  `json:"timestamp"` // unix millis
}

// Notification is one parsed line of the notification log.
type Notification struct {
	Timestamp int64  `json:"timestamp"` // unix millis
	Message   string `json:"message"`
}

type Stats struct {
	TotalMovies  int `json:"totalMovies"`
	TotalSeries  int `json:"totalSeries"`
	TotalAdmins  int `json:"totalAdmins"`
	RecentLogins int `json:"recentLogins"`
}
