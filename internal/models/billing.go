package models

import "time"

const (
	InvoiceUnpaid = "Unpaid"
	InvoicePaid   = "Paid"
)

type Invoice struct {
	ID            string     `json:"id" db:"id"`
	ApplicationID string     `json:"application_id" db:"application_id"`
	Amount        float64    `json:"amount" db:"amount"`
	Status        string     `json:"status" db:"status"`
	DueDate       *time.Time `json:"due_date,omitempty" db:"due_date"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

type InvoiceWithDetails struct {
	Invoice
	StudentID      string  `json:"student_id" db:"student_id"`
	StudentName    string  `json:"student_name" db:"student_name"`
	UniversityName string  `json:"university_name" db:"university_name"`
	PaidAmount     float64 `json:"paid_amount" db:"paid_amount"`
}

type Payment struct {
	ID          string    `json:"id" db:"id"`
	InvoiceID   string    `json:"invoice_id" db:"invoice_id"`
	Amount      float64   `json:"amount" db:"amount"`
	Method      string    `json:"method" db:"method"`
	PaymentDate time.Time `json:"payment_date" db:"payment_date"`
	Notes       string    `json:"notes" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type PaymentWithDetails struct {
	Payment
	StudentName    string `json:"student_name" db:"student_name"`
	UniversityName string `json:"university_name" db:"university_name"`
}

// UnpaidInvoice is a row of v_unpaid_invoices.
type UnpaidInvoice struct {
	InvoiceID         string     `json:"invoice_id"`
	Amount            float64    `json:"amount"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	InvoiceDate       time.Time  `json:"invoice_date"`
	ApplicationID     string     `json:"application_id"`
	StudentID         string     `json:"student_id"`
	StudentName       string     `json:"student_name"`
	UniversityName    string     `json:"university_name"`
	UniversityCountry string     `json:"university_country"`
}

// PaymentResult is what recording a payment returns to the caller.
type PaymentResult struct {
	Payment       *Payment `json:"payment"`
	InvoiceStatus string   `json:"invoice_status"`
	TotalPaid     float64  `json:"total_paid"`
}
