package httpd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/service"
	"github.com/ilham-education/ilham-backend/pkg/auth"
	"github.com/ilham-education/ilham-backend/pkg/validation"
	"github.com/rs/zerolog"
)

const (
	codeValidation   = "VALIDATION_ERROR"
	codeNotFound     = "NOT_FOUND"
	codeDuplicate    = "DUPLICATE_ENTRY"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeDatabase     = "DATABASE_ERROR"
)

type Services struct {
	Auth          service.AuthService
	Students      service.StudentService
	Universities  service.UniversityService
	Applications  service.ApplicationService
	Billing       service.BillingService
	Notifications service.NotificationService
	Reminders     service.ReminderService
	Documents     service.DocumentService
	Counselors    service.CounselorService
	IELTS         service.IELTSService
	Content       service.ContentService
	Dashboard     service.DashboardService
}

type Options struct {
	// Production hides internal error details from responses.
	Production bool
	// UploadsDir is served under UploadsPath when files are stored on local disk.
	UploadsDir    string
	UploadsPath   string
	MaxUploadSize int64
}

type Handler struct {
	services  Services
	tokens    *auth.JWTManager
	validator *validation.Validator
	opts      Options
	logger    zerolog.Logger
}

func NewHandler(services Services, tokens *auth.JWTManager, validator *validation.Validator, opts Options, logger zerolog.Logger) *Handler {
	if opts.UploadsPath == "" {
		opts.UploadsPath = "/uploads"
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 50 << 20
	}
	return &Handler{
		services:  services,
		tokens:    tokens,
		validator: validator,
		opts:      opts,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	if h.opts.UploadsDir != "" {
		prefix := strings.TrimRight(h.opts.UploadsPath, "/")
		files := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(h.opts.UploadsDir)))
		router.Handle(prefix+"/*", files)
	}

	router.Route("/api", func(api chi.Router) {
		api.Route("/auth", h.authRoutes)
		api.Route("/student", h.studentRoutes)
		api.Route("/applications", h.applicationRoutes)
		api.Route("/billing", h.billingRoutes)
		api.Route("/admin", h.adminRoutes)
		api.Route("/notifications", h.notificationRoutes)
		api.Route("/reminders", h.reminderRoutes)
		api.Route("/documents", h.documentRoutes)
		api.Route("/counselors", h.counselorRoutes)
		api.Route("/ielts", h.ieltsRoutes)
		api.Route("/ielts-mock", h.ieltsMockRoutes)
		api.Route("/cms", h.cmsRoutes)
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "ilham-backend",
		"timestamp": time.Now().UTC(),
	})
}

type successResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errorResponse struct {
	Error          string      `json:"error"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	VerifyRequired bool        `json:"verify_required,omitempty"`
	Email          string      `json:"email,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeSuccess(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: message, Data: data})
}

func writeCreated(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusCreated, successResponse{Success: true, Message: message, Data: data})
}

// handleError maps service errors onto the API error codes. Anything it does
// not recognise is reported as a database error.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.NotFoundError
		duplicateErr  *service.DuplicateApplicationError
		conflictErr   *service.ConflictError
		unauthErr     *service.UnauthorizedError
		verifyErr     *service.VerificationRequiredError
		forbiddenErr  *service.ForbiddenError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   codeValidation,
			Message: validationErr.Message,
			Details: validationErr.Details,
		})
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, codeNotFound, notFoundErr.Error())
	case errors.As(err, &duplicateErr):
		writeError(w, http.StatusBadRequest, codeDuplicate, duplicateErr.Error())
	case errors.As(err, &conflictErr):
		resp := errorResponse{Error: codeDuplicate, Message: conflictErr.Message}
		if conflictErr.ExistingID != "" {
			resp.Details = map[string]string{"existing_id": conflictErr.ExistingID}
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &unauthErr):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, unauthErr.Message)
	case errors.As(err, &verifyErr):
		writeJSON(w, http.StatusForbidden, errorResponse{
			Error:          codeForbidden,
			Message:        verifyErr.Error(),
			VerifyRequired: true,
			Email:          verifyErr.Email,
		})
	case errors.As(err, &forbiddenErr):
		writeError(w, http.StatusForbidden, codeForbidden, forbiddenErr.Message)
	default:
		h.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")

		resp := errorResponse{Error: codeDatabase, Message: "Database error"}
		if !h.opts.Production {
			resp.Details = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// decode reads a JSON body into dst and runs the struct validator over it.
// It writes the error response itself and reports whether to continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Invalid request body")
		return false
	}
	return h.validate(w, dst)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func (h *Handler) validate(w http.ResponseWriter, v interface{}) bool {
	if err := h.validator.ValidateStruct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   codeValidation,
			Message: "Validation failed",
			Details: validation.FormatValidationErrors(err),
		})
		return false
	}
	return true
}

func boolQueryParam(r *http.Request, key string) *bool {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &b
}

func actorFrom(r *http.Request) service.Actor {
	claims := claimsFrom(r.Context())
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{UserID: claims.UserID, Role: claims.Role}
}

// ownerScope restricts reads to the caller when the caller is a student.
func ownerScope(r *http.Request) string {
	actor := actorFrom(r)
	if actor.Role == models.RoleStudent {
		return actor.UserID
	}
	return ""
}
