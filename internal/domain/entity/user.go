package entity

import (
	"time"

	"github.com/google/uuid"
)

// User represents the centralized authentication table. The role is
// assigned at registration and never changes afterwards.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RoleID       int       `gorm:"not null;index" json:"role_id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"type:text;not null" json:"-"`
	FirstName    string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(100);not null" json:"last_name"`
	ProfileImage *string   `gorm:"type:text" json:"profile_image,omitempty"`
	IsActive     *bool     `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Role          Role           `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	DoctorProfile *DoctorProfile `gorm:"foreignKey:UserID" json:"doctor_profile,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// RoleName returns the canonical role name for the user.
func (u *User) RoleName() string {
	return RoleNameByID(u.RoleID)
}

// Active reports whether the account can log in.
func (u *User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}
