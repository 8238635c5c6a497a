package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionSnapshot is the identity snapshot persisted for an active
// session. It is written on every successful login or register, deleted
// on logout, and restored on demand so the session survives restarts of
// the client. A snapshot that fails to decode is treated as no session.
type SessionSnapshot struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
}

// SnapshotFromUser builds the persisted snapshot for a user.
func SnapshotFromUser(u *User) *SessionSnapshot {
	return &SessionSnapshot{
		UserID:       u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.RoleName(),
		ProfileImage: u.ProfileImage,
		IssuedAt:     time.Now().UTC(),
	}
}
