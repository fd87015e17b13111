package models

import (
	"time"

	"fursa/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone        string         `gorm:"size:20" json:"phone"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Role         string         `gorm:"size:20;not null;index" json:"role"` // INVESTOR | OWNER | ADMIN
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsInvestor() bool { return u.Role == domain.RoleInvestor }
func (u *User) IsOwner() bool    { return u.Role == domain.RoleOwner }
func (u *User) IsAdmin() bool    { return u.Role == domain.RoleAdmin }

func (User) TableName() string {
	return "users"
}
