package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
)

func (h *Handler) counselorRoutes(r chi.Router) {
	r.Use(h.Authenticate)

	r.Get("/students/{counselorId}", h.CounselorStudents)
	r.Get("/student/{studentId}", h.StudentCounselor)

	r.Group(func(r chi.Router) {
		r.Use(RequireRole(models.RoleAdmin))

		r.Post("/assign", h.AssignCounselor)
		r.Put("/assignment/{id}", h.UpdateAssignment)
		r.Delete("/assignment/{id}", h.DeleteAssignment)
		r.Get("/list", h.ListCounselors)
		r.Get("/assignments", h.ListAssignments)
	})
}

func (h *Handler) AssignCounselor(w http.ResponseWriter, r *http.Request) {
	var req models.AssignCounselorRequest
	if !h.decode(w, r, &req) {
		return
	}

	assignment, err := h.services.Counselors.Assign(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Counselor assigned", assignment)
}

func (h *Handler) CounselorStudents(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if v := boolQueryParam(r, "include_inactive"); v != nil {
		includeInactive = *v
	}

	students, err := h.services.Counselors.StudentsOf(r.Context(), chi.URLParam(r, "counselorId"), includeInactive)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", students)
}

func (h *Handler) StudentCounselor(w http.ResponseWriter, r *http.Request) {
	assignment, err := h.services.Counselors.CounselorOf(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", assignment)
}

func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateAssignmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.services.Counselors.SetActive(r.Context(), chi.URLParam(r, "id"), *req.IsActive); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Assignment updated", nil)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Counselors.DeleteAssignment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Assignment deleted", nil)
}

func (h *Handler) ListCounselors(w http.ResponseWriter, r *http.Request) {
	counselors, err := h.services.Counselors.ListCounselors(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", counselors)
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.services.Counselors.ListAssignments(r.Context(), boolQueryParam(r, "is_active"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", assignments)
}
