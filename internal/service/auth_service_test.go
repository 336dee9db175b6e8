package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) auth() (AuthService, *auth.JWTManager) {
	tokens := auth.NewJWTManager(auth.JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "ilham-test"})
	r := f.repos
	return NewAuthService(r.Tx, r.Users, r.Students, tokens, f.events, OTPSettings{Length: 6, TTL: 10 * time.Minute}, f.logger), tokens
}

func (f *fixture) lastOTP(t *testing.T) models.OTPEmailEvent {
	t.Helper()
	events := f.events.byKey(models.EventOTPEmail)
	require.NotEmpty(t, events)
	var event models.OTPEmailEvent
	require.NoError(t, json.Unmarshal(events[len(events)-1].Body, &event))
	return event
}

func TestRegisterVerifyLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, tokens := f.auth()

	user, err := svc.Register(ctx, &models.RegisterRequest{
		Email:        "  Aisha@Example.com ",
		Password:     "secret1",
		FullName:     "Aisha Rahman",
		DOB:          "2004-03-09",
		GuardianName: "Rahman",
	})
	require.NoError(t, err)
	assert.Equal(t, "aisha@example.com", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.False(t, user.IsVerified)

	student, err := f.repos.Students.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "2004-03-09", student.DOB.Format(dateLayout))
	guardian, err := f.repos.Students.GetGuardian(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, guardian)
	assert.Equal(t, "Rahman", guardian.Name)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "aisha@example.com", Password: "secret1"})
	verify := asError[*VerificationRequiredError](t, err)
	assert.Equal(t, "aisha@example.com", verify.Email)

	otp := f.lastOTP(t)
	assert.Equal(t, models.OTPPurposeVerify, otp.Purpose)
	assert.Len(t, otp.Code, 6)

	_, err = svc.VerifyEmail(ctx, "aisha@example.com", "000000x")
	asError[*ValidationError](t, err)

	already, err := svc.VerifyEmail(ctx, "aisha@example.com", otp.Code)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = svc.VerifyEmail(ctx, "aisha@example.com", otp.Code)
	require.NoError(t, err)
	assert.True(t, already)

	resp, err := svc.Login(ctx, &models.LoginRequest{Email: "AISHA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, resp.Role)

	claims, err := tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	me, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, me.Student)
	assert.Equal(t, "Aisha Rahman", me.Student.FullName)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, _ := f.auth()

	req := &models.RegisterRequest{Email: "dup@example.com", Password: "secret1", FullName: "Dup"}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	conflict := asError[*ConflictError](t, err)
	assert.Equal(t, "Email already registered", conflict.Message)

	students, err := f.repos.Students.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestRegister_ShortPassword(t *testing.T) {
	f := newFixture(t)
	svc, _ := f.auth()

	_, err := svc.Register(context.Background(), &models.RegisterRequest{Email: "a@b.co", Password: "123", FullName: "A"})
	asError[*ValidationError](t, err)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, _ := f.auth()

	hash, err := auth.HashPassword("counsel1")
	require.NoError(t, err)
	u := f.user(t, "counselor@ilham.test", models.RoleCounselor)
	require.NoError(t, f.repos.Users.UpdatePassword(ctx, u.ID, hash))

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@ilham.test", Password: "x"})
	assert.Equal(t, "Email not found", asError[*NotFoundError](t, err).Error())

	_, err = svc.Login(ctx, &models.LoginRequest{Email: u.Email, Password: "wrong"})
	asError[*UnauthorizedError](t, err)

	resp, err := svc.Login(ctx, &models.LoginRequest{Email: u.Email, Password: "counsel1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCounselor, resp.Role)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, _ := f.auth()

	u := f.user(t, "staff@ilham.test", models.RoleFinance)
	require.NoError(t, svc.ForgotPassword(ctx, u.Email))

	otp := f.lastOTP(t)
	assert.Equal(t, models.OTPPurposeReset, otp.Purpose)

	err := svc.ResetPassword(ctx, &models.ResetPasswordRequest{Email: u.Email, OTP: "999999", NewPassword: "newpass1"})
	if otp.Code != "999999" {
		assert.Equal(t, "Invalid or expired OTP", asError[*ValidationError](t, err).Message)
	}

	require.NoError(t, svc.ResetPassword(ctx, &models.ResetPasswordRequest{Email: u.Email, OTP: otp.Code, NewPassword: "newpass1"}))

	_, err = svc.Login(ctx, &models.LoginRequest{Email: u.Email, Password: "newpass1"})
	require.NoError(t, err)

	// the code is single use
	err = svc.ResetPassword(ctx, &models.ResetPasswordRequest{Email: u.Email, OTP: otp.Code, NewPassword: "another1"})
	asError[*ValidationError](t, err)

	assert.True(t, IsNotFound(svc.ForgotPassword(ctx, "ghost@ilham.test")))
}

func TestVerifyEmail_ExpiredCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, _ := f.auth()

	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "late@example.com", Password: "secret1", FullName: "Late"})
	require.NoError(t, err)
	otp := f.lastOTP(t)

	user, err := f.repos.Users.GetByEmail(ctx, "late@example.com")
	require.NoError(t, err)
	require.NoError(t, f.repos.Users.SetOTP(ctx, user.ID, otp.Code, time.Now().Add(-time.Minute)))

	_, err = svc.VerifyEmail(ctx, "late@example.com", otp.Code)
	assert.Equal(t, "OTP Expired", asError[*ValidationError](t, err).Message)
}
