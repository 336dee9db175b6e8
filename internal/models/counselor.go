package models

import "time"

type CounselorAssignment struct {
	ID          string    `json:"id" db:"id"`
	StudentID   string    `json:"student_id" db:"student_id"`
	CounselorID string    `json:"counselor_id" db:"counselor_id"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	AssignedAt  time.Time `json:"assigned_at" db:"assigned_at"`
}

type CounselorAssignmentWithDetails struct {
	CounselorAssignment
	StudentName    string `json:"student_name" db:"student_name"`
	StudentEmail   string `json:"student_email" db:"student_email"`
	CounselorEmail string `json:"counselor_email" db:"counselor_email"`
}

type CounselorWithLoad struct {
	ID             string    `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	ActiveStudents int       `json:"active_students" db:"active_students"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
