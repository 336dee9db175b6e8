package models

import "time"

type Student struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Email       string     `json:"email" db:"email"`
	FullName    string     `json:"full_name" db:"full_name"`
	Phone       string     `json:"phone" db:"phone"`
	DOB         *time.Time `json:"dob,omitempty" db:"dob"`
	Address     string     `json:"address" db:"address"`
	PassportNo  string     `json:"passport_no" db:"passport_no"`
	Nationality string     `json:"nationality" db:"nationality"`
	PhotoURL    string     `json:"photo_url" db:"photo_url"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type Guardian struct {
	ID           string    `json:"id" db:"id"`
	StudentID    string    `json:"student_id" db:"student_id"`
	Name         string    `json:"guardian_name" db:"guardian_name"`
	Relationship string    `json:"relationship" db:"relationship"`
	Phone        string    `json:"guardian_phone" db:"guardian_phone"`
	Email        string    `json:"guardian_email" db:"guardian_email"`
	Address      string    `json:"guardian_address" db:"guardian_address"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type StudentDetail struct {
	Student
	Guardian *Guardian `json:"guardian"`
}
