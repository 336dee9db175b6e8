package models

import "time"

const (
	CourseActive   = "Active"
	CourseInactive = "Inactive"

	// EligibleBand is the overall band a student needs to be considered ready.
	EligibleBand = 6.5
)

type IELTSCourse struct {
	ID          string     `json:"id" db:"id"`
	BatchName   string     `json:"batch_name" db:"batch_name"`
	Instructor  string     `json:"instructor" db:"instructor"`
	StartDate   *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty" db:"end_date"`
	Description string     `json:"description" db:"description"`
	Duration    string     `json:"duration" db:"duration"`
	Schedule    string     `json:"schedule" db:"schedule"`
	Price       *float64   `json:"price,omitempty" db:"price"`
	Status      string     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type MockTest struct {
	ID        string    `json:"id" db:"id"`
	CourseID  string    `json:"course_id" db:"course_id"`
	TestName  string    `json:"test_name" db:"test_name"`
	TestDate  time.Time `json:"test_date" db:"test_date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type IELTSResult struct {
	ID         string    `json:"id" db:"id"`
	MockTestID string    `json:"mock_test_id,omitempty" db:"mock_test_id"`
	StudentID  string    `json:"student_id" db:"student_id"`
	Listening  float64   `json:"listening" db:"listening"`
	Reading    float64   `json:"reading" db:"reading"`
	Writing    float64   `json:"writing" db:"writing"`
	Speaking   float64   `json:"speaking" db:"speaking"`
	Overall    float64   `json:"overall" db:"overall"`
	DateTaken  time.Time `json:"date_taken" db:"date_taken"`
	TestName   string    `json:"test_name,omitempty" db:"test_name"`
}

type Readiness struct {
	Average     float64 `json:"average"`
	TestsTaken  int     `json:"tests_taken"`
	Status      string  `json:"status"`
	TargetScore float64 `json:"target_score"`
}

type Material struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	MaterialType string    `json:"material_type" db:"material_type"`
	FileURL      string    `json:"file_url" db:"file_url"`
	CourseID     string    `json:"course_id,omitempty" db:"course_id"`
	CourseName   string    `json:"course_name,omitempty" db:"course_name"`
	IsFree       bool      `json:"is_free" db:"is_free"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
