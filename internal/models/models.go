package models

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type User struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string     `gorm:"not null"                 json:"name"`
	Email            string     `gorm:"unique;not null"          json:"email"`
	PasswordHash     string     `gorm:"not null"                 json:"-"`
	Role             Role       `gorm:"not null;default:user"    json:"role"`
	Verified         bool       `gorm:"default:false"            json:"verified"`
	VerificationCode string     `json:"-"`
	CodeExpiresAt    *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
