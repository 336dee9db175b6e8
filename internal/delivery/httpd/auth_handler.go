package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
)

func (h *Handler) authRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/student/verify-email", h.VerifyEmail)
	r.Post("/student/forgot-password", h.ForgotPassword)
	r.Post("/student/reset-password", h.ResetPassword)
	r.With(h.Authenticate).Get("/me", h.Me)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.services.Auth.Register(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Registration successful. Check your email for the verification code.", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.services.Auth.Login(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Login successful", resp)
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	already, err := h.services.Auth.VerifyEmail(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if already {
		writeSuccess(w, "Already verified", nil)
		return
	}
	writeSuccess(w, "Email verified successfully", nil)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.services.Auth.ForgotPassword(r.Context(), req.Email); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "OTP sent to your email", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.services.Auth.ResetPassword(r.Context(), &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Password reset successful", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.services.Auth.Me(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", me)
}
