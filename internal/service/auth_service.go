package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/ilham-education/ilham-backend/internal/service/integration"
	"github.com/ilham-education/ilham-backend/pkg/auth"
	"github.com/rs/zerolog"
)

type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	VerifyEmail(ctx context.Context, email, otp string) (alreadyVerified bool, err error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error
	Me(ctx context.Context, userID string) (*models.MeResponse, error)
}

type OTPSettings struct {
	Length int
	TTL    time.Duration
}

type authService struct {
	tx          repository.Transactor
	userRepo    repository.UserRepository
	studentRepo repository.StudentRepository
	tokens      *auth.JWTManager
	publisher   integration.EventPublisher
	otp         OTPSettings
	logger      zerolog.Logger
}

func NewAuthService(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	studentRepo repository.StudentRepository,
	tokens *auth.JWTManager,
	publisher integration.EventPublisher,
	otp OTPSettings,
	logger zerolog.Logger,
) AuthService {
	if otp.Length <= 0 {
		otp.Length = 6
	}
	if otp.TTL <= 0 {
		otp.TTL = 10 * time.Minute
	}
	return &authService{
		tx:          tx,
		userRepo:    userRepo,
		studentRepo: studentRepo,
		tokens:      tokens,
		publisher:   publisher,
		otp:         otp,
		logger:      logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified STUDENT user, its student profile and an
// optional guardian in one transaction, then mails the verification code.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	fullName := strings.TrimSpace(req.FullName)
	if email == "" || fullName == "" || req.Password == "" {
		return nil, validationf("Full name, email, and password are required")
	}
	dob, err := parseDate("dob", req.DOB)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, validationf("Password must be at least 6 characters")
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := auth.GenerateOTP(s.otp.Length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(s.otp.TTL)
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleStudent,
		OTPCode:      code,
		OTPExpiresAt: &expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if existing != nil {
			return &ConflictError{Message: "Email already registered", ExistingID: existing.ID}
		}

		if err := s.userRepo.Create(ctx, user); err != nil {
			if repository.IsUniqueViolation(err, "") {
				return &ConflictError{Message: "Email already registered"}
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		student := &models.Student{
			ID:          uuid.New().String(),
			UserID:      user.ID,
			Email:       email,
			FullName:    fullName,
			Phone:       req.Phone,
			DOB:         dob,
			PassportNo:  req.PassportNo,
			Nationality: req.Nationality,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.studentRepo.Create(ctx, student); err != nil {
			return fmt.Errorf("failed to create student: %w", err)
		}

		if req.GuardianName != "" {
			guardian := &models.Guardian{
				ID:        uuid.New().String(),
				StudentID: student.ID,
				Name:      req.GuardianName,
				Phone:     req.GuardianPhone,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.studentRepo.UpsertGuardian(ctx, guardian); err != nil {
				return fmt.Errorf("failed to create guardian: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", email).Msg("Student registered")

	s.sendOTP(ctx, email, code, models.OTPPurposeVerify, expiresAt)

	return user, nil
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, validationf("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &NotFoundError{Resource: "Email"}
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		return nil, &UnauthorizedError{Message: "Invalid password"}
	}

	if user.Role == models.RoleStudent && !user.IsVerified {
		return nil, &VerificationRequiredError{Email: user.Email}
	}

	token, err := s.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("User logged in")

	return &models.LoginResponse{
		Token: token,
		Role:  user.Role,
		User:  user,
	}, nil
}

func (s *authService) checkOTP(user *models.User, code string) error {
	if user.OTPCode == "" || !auth.OTPEqual(user.OTPCode, code) {
		return validationf("Invalid OTP")
	}
	if user.OTPExpiresAt == nil || user.OTPExpiresAt.Before(time.Now()) {
		return validationf("OTP Expired")
	}
	return nil
}

func (s *authService) VerifyEmail(ctx context.Context, email, otp string) (bool, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, notFound("User")
	}
	if user.IsVerified {
		return true, nil
	}

	if err := s.checkOTP(user, otp); err != nil {
		return false, err
	}

	if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
		return false, fmt.Errorf("failed to verify email: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Email verified")
	return false, nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return notFound("User")
	}

	code, err := auth.GenerateOTP(s.otp.Length)
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	expiresAt := time.Now().Add(s.otp.TTL)

	if err := s.userRepo.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	s.sendOTP(ctx, user.Email, code, models.OTPPurposeReset, expiresAt)
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return notFound("User")
	}

	if err := s.checkOTP(user, req.OTP); err != nil {
		return validationf("Invalid or expired OTP")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return validationf("Password must be at least 6 characters")
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Password reset")
	return nil
}

func (s *authService) Me(ctx context.Context, userID string) (*models.MeResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, notFound("User")
	}

	resp := &models.MeResponse{User: user}
	if user.Role == models.RoleStudent {
		student, err := s.studentRepo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get student profile: %w", err)
		}
		resp.Student = student
	}
	return resp, nil
}

func (s *authService) sendOTP(ctx context.Context, email, code, purpose string, expiresAt time.Time) {
	if s.publisher == nil {
		return
	}
	event := &models.OTPEmailEvent{
		Type:      models.EventOTPEmail,
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: expiresAt.Unix(),
		Timestamp: time.Now().Unix(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), models.EventOTPEmail, event); err != nil {
		s.logger.Error().Err(err).Str("email", email).Str("purpose", purpose).Msg("Failed to publish otp email")
	}
}
