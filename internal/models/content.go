package models

import "time"

type PublicCourse struct {
	BatchName string     `json:"batch_name"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

type PublicMaterial struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	Type  string `json:"type"`
}

type PublicIELTS struct {
	Courses   []PublicCourse   `json:"courses"`
	Materials []PublicMaterial `json:"materials"`
}
