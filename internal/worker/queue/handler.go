package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/service/integration"
	"github.com/rs/zerolog"
)

var (
	otpVerifyTemplate = template.Must(template.New("otp_verify").Parse(
		`Welcome to ILHAM Education!

Your verification code is: {{.Code}}
The code expires at {{.Expires}}.
`))

	otpResetTemplate = template.Must(template.New("otp_reset").Parse(
		`We received a request to reset your ILHAM Education password.

Your OTP is: {{.Code}}
The code expires at {{.Expires}}. If you did not ask for this, ignore this email.
`))

	notificationTemplate = template.Must(template.New("notification").Parse(
		`You have a new notification from ILHAM Education:

{{.Message}}
`))
)

type MessageHandler interface {
	ProcessMessage(ctx context.Context, body []byte) error
	HandleNotificationCreated(ctx context.Context, event models.NotificationCreatedEvent) error
	HandleOTPEmail(ctx context.Context, event models.OTPEmailEvent) error
}

type messageHandler struct {
	mailer integration.Mailer
	logger zerolog.Logger
}

func NewMessageHandler(mailer integration.Mailer, logger zerolog.Logger) MessageHandler {
	return &messageHandler{
		mailer: mailer,
		logger: logger,
	}
}

// ProcessMessage dispatches on the event's "type" field. Malformed messages
// come back as permanent errors so they are not redelivered.
func (h *messageHandler) ProcessMessage(ctx context.Context, body []byte) error {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Permanent(fmt.Errorf("failed to unmarshal message: %w", err))
	}

	switch envelope.Type {
	case models.EventNotificationCreated:
		var event models.NotificationCreatedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return Permanent(fmt.Errorf("failed to unmarshal notification event: %w", err))
		}
		return h.HandleNotificationCreated(ctx, event)

	case models.EventOTPEmail:
		var event models.OTPEmailEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return Permanent(fmt.Errorf("failed to unmarshal otp event: %w", err))
		}
		return h.HandleOTPEmail(ctx, event)

	case "":
		return Permanent(errors.New("message type not specified"))

	default:
		h.logger.Warn().Str("type", envelope.Type).Msg("Unknown message type")
		return nil
	}
}

func (h *messageHandler) HandleNotificationCreated(ctx context.Context, event models.NotificationCreatedEvent) error {
	if strings.TrimSpace(event.Email) == "" {
		// students created without a login have nowhere to send to
		h.logger.Debug().Str("notification_id", event.NotificationID).Msg("Notification has no recipient, skipped")
		return nil
	}

	body, err := render(notificationTemplate, event)
	if err != nil {
		return Permanent(err)
	}

	if err := h.mailer.Send(ctx, event.Email, "New notification - ILHAM Education", body); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}

	h.logger.Info().
		Str("notification_id", event.NotificationID).
		Str("student_id", event.StudentID).
		Msg("Notification email sent")
	return nil
}

func (h *messageHandler) HandleOTPEmail(ctx context.Context, event models.OTPEmailEvent) error {
	if strings.TrimSpace(event.Email) == "" || event.Code == "" {
		return Permanent(errors.New("otp event without email or code"))
	}

	tmpl, subject := otpVerifyTemplate, "Verify Your Email - ILHAM Education"
	if event.Purpose == models.OTPPurposeReset {
		tmpl, subject = otpResetTemplate, "Password Reset OTP - ILHAM Education"
	}

	body, err := render(tmpl, map[string]string{
		"Code":    event.Code,
		"Expires": time.Unix(event.ExpiresAt, 0).UTC().Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return Permanent(err)
	}

	if err := h.mailer.Send(ctx, event.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}

	h.logger.Info().Str("email", event.Email).Str("purpose", event.Purpose).Msg("OTP email sent")
	return nil
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
