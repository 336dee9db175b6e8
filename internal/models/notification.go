package models

import "time"

type Notification struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NotificationWithStudent struct {
	Notification
	StudentName string `json:"student_name" db:"student_name"`
}

// UnreadCount is a row of v_unread_notifications.
type UnreadCount struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	UnreadCount int    `json:"unread_count"`
}

type Reminder struct {
	ID           string    `json:"id" db:"id"`
	StudentID    string    `json:"student_id" db:"student_id"`
	InvoiceID    string    `json:"invoice_id,omitempty" db:"invoice_id"`
	Note         string    `json:"note" db:"note"`
	ReminderDate time.Time `json:"reminder_date" db:"reminder_date"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type ReminderWithStudent struct {
	Reminder
	StudentName string `json:"student_name" db:"student_name"`
}
