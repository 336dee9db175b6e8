package models

import "time"

const (
	RoleAdmin     = "ADMIN"
	RoleStudent   = "STUDENT"
	RoleCounselor = "COUNSELOR"
	RoleFinance   = "FINANCE"
)

type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	IsVerified   bool       `json:"is_verified" db:"is_verified"`
	OTPCode      string     `json:"-" db:"otp_code"`
	OTPExpiresAt *time.Time `json:"-" db:"otp_expires_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleStudent, RoleCounselor, RoleFinance:
		return true
	}
	return false
}
