package models

import "time"

type ApplicationStatus string

const (
	StatusApplied  ApplicationStatus = "Applied"
	StatusApproved ApplicationStatus = "Approved"
	StatusRejected ApplicationStatus = "Rejected"
)

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusApplied, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Application struct {
	ID              string            `json:"id" db:"id"`
	StudentID       string            `json:"student_id" db:"student_id"`
	UniversityID    string            `json:"university_id" db:"university_id"`
	Status          ApplicationStatus `json:"status" db:"status"`
	CounselorRemark string            `json:"counselor_remark" db:"counselor_remark"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

type ApplicationWithDetails struct {
	Application
	StudentName    string `json:"student_name" db:"student_name"`
	UniversityName string `json:"university_name" db:"university_name"`
	Country        string `json:"country" db:"country"`
}

type ApplicationHistory struct {
	ID             string            `json:"id" db:"id"`
	ApplicationID  string            `json:"application_id" db:"application_id"`
	OldStatus      ApplicationStatus `json:"old_status" db:"old_status"`
	NewStatus      ApplicationStatus `json:"new_status" db:"new_status"`
	Remark         string            `json:"remark" db:"remark"`
	ChangedBy      string            `json:"changed_by" db:"changed_by"`
	ChangedByEmail string            `json:"changed_by_email,omitempty" db:"changed_by_email"`
	ChangedAt      time.Time         `json:"changed_at" db:"changed_at"`
}

// ApplicationSummary is a row of v_student_applications.
type ApplicationSummary struct {
	ApplicationID   string            `json:"application_id"`
	StudentID       string            `json:"student_id"`
	StudentName     string            `json:"student_name"`
	StudentEmail    string            `json:"student_email"`
	UniversityID    string            `json:"university_id"`
	UniversityName  string            `json:"university_name"`
	Country         string            `json:"country"`
	Status          ApplicationStatus `json:"status"`
	AppliedAt       time.Time         `json:"applied_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	CounselorRemark string            `json:"counselor_remark"`
}
