package models

import "time"

type University struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Country          string    `json:"country" db:"country"`
	Requirements     string    `json:"requirements" db:"requirements"`
	IELTSRequirement *float64  `json:"ielts_requirement,omitempty" db:"ielts_requirement"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

type PublicUniversity struct {
	Name             string   `json:"name"`
	Country          string   `json:"country"`
	IELTSRequirement *float64 `json:"ielts_requirement,omitempty"`
}
