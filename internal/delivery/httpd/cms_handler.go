package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
)

func (h *Handler) cmsRoutes(r chi.Router) {
	r.Get("/public/content", h.PublicContent)
	r.Get("/public/universities", h.PublicUniversities)
	r.Get("/public/ielts", h.PublicIELTS)

	r.With(h.Authenticate, RequireRole(models.RoleAdmin)).Post("/admin/content", h.UpdateContent)
}

func (h *Handler) PublicContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.services.Content.PublicContent(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", content)
}

func (h *Handler) PublicUniversities(w http.ResponseWriter, r *http.Request) {
	universities, err := h.services.Content.PublicUniversities(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", universities)
}

func (h *Handler) PublicIELTS(w http.ResponseWriter, r *http.Request) {
	ielts, err := h.services.Content.PublicIELTS(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", ielts)
}

func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := decodeJSON(r, &updates); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Invalid request body")
		return
	}

	if err := h.services.Content.UpdateContent(r.Context(), updates); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Content updated", nil)
}
