package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func encode(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestProcessMessage_OTP(t *testing.T) {
	mailer := &fakeMailer{}
	h := NewMessageHandler(mailer, zerolog.Nop())
	expires := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	err := h.ProcessMessage(context.Background(), encode(t, models.OTPEmailEvent{
		Type:      models.EventOTPEmail,
		Email:     "aisha@student.test",
		Code:      "123456",
		Purpose:   models.OTPPurposeVerify,
		ExpiresAt: expires.Unix(),
	}))
	require.NoError(t, err)

	err = h.ProcessMessage(context.Background(), encode(t, models.OTPEmailEvent{
		Type:      models.EventOTPEmail,
		Email:     "aisha@student.test",
		Code:      "654321",
		Purpose:   models.OTPPurposeReset,
		ExpiresAt: expires.Unix(),
	}))
	require.NoError(t, err)

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "aisha@student.test", mailer.sent[0].to)
	assert.Equal(t, "Verify Your Email - ILHAM Education", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "Your verification code is: 123456")
	assert.Contains(t, mailer.sent[0].body, "2026-10-15 09:30 UTC")
	assert.Equal(t, "Password Reset OTP - ILHAM Education", mailer.sent[1].subject)
	assert.Contains(t, mailer.sent[1].body, "Your OTP is: 654321")
}

func TestProcessMessage_Notification(t *testing.T) {
	mailer := &fakeMailer{}
	h := NewMessageHandler(mailer, zerolog.Nop())

	err := h.ProcessMessage(context.Background(), encode(t, models.NotificationCreatedEvent{
		Type:           models.EventNotificationCreated,
		NotificationID: "n1",
		StudentID:      "s1",
		Email:          "aisha@student.test",
		Message:        "Your application to UPM has been rejected.",
	}))
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].body, "Your application to UPM has been rejected.")

	// no recipient is not an error
	err = h.ProcessMessage(context.Background(), encode(t, models.NotificationCreatedEvent{
		Type: models.EventNotificationCreated, NotificationID: "n2", Message: "hi",
	}))
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 1)
}

func TestProcessMessage_Errors(t *testing.T) {
	mailer := &fakeMailer{}
	h := NewMessageHandler(mailer, zerolog.Nop())
	ctx := context.Background()

	assert.True(t, IsPermanent(h.ProcessMessage(ctx, []byte("{not json"))))
	assert.True(t, IsPermanent(h.ProcessMessage(ctx, []byte(`{"email":"x@y.z"}`))))
	assert.True(t, IsPermanent(h.ProcessMessage(ctx, []byte(`{"type":"email.otp","email":""}`))))
	assert.NoError(t, h.ProcessMessage(ctx, []byte(`{"type":"something.else"}`)))

	mailer.err = errors.New("smtp down")
	err := h.ProcessMessage(ctx, encode(t, models.OTPEmailEvent{
		Type: models.EventOTPEmail, Email: "a@b.c", Code: "111111", Purpose: models.OTPPurposeVerify,
	}))
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
	assert.ErrorIs(t, err, mailer.err)
}
