package models

const (
	EventNotificationCreated = "notification.created"
	EventOTPEmail            = "email.otp"
)

const (
	OTPPurposeVerify = "verify"
	OTPPurposeReset  = "reset"
)

type NotificationCreatedEvent struct {
	Type           string `json:"type"`
	NotificationID string `json:"notification_id"`
	StudentID      string `json:"student_id"`
	Email          string `json:"email"`
	Message        string `json:"message"`
	Timestamp      int64  `json:"timestamp"`
}

type OTPEmailEvent struct {
	Type      string `json:"type"`
	Email     string `json:"email"`
	Code      string `json:"code"`
	Purpose   string `json:"purpose"`
	ExpiresAt int64  `json:"expires_at"`
	Timestamp int64  `json:"timestamp"`
}
