package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account that owns leads, sequences assignments and alerts
type User struct {
	gorm.Model
	Email        string `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	Company      string `json:"company"`

	IsActive     bool `gorm:"default:true" json:"is_active"`
	TokenVersion int  `gorm:"default:0" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`

	// Relations
	Leads  []Lead       `gorm:"foreignKey:UserID" json:"leads,omitempty"`
	Alerts []SalesAlert `gorm:"foreignKey:UserID" json:"alerts,omitempty"`
}

// RefreshToken stores issued refresh tokens so they can be revoked
type RefreshToken struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`
}
