package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
)

func (h *Handler) applicationRoutes(r chi.Router) {
	r.Use(h.Authenticate)

	r.With(RequireRole(models.RoleStudent)).Post("/apply", h.Apply)
	r.With(RequireRole(models.RoleStudent)).Get("/my", h.MyApplications)
	r.With(RequireRole(models.RoleAdmin, models.RoleCounselor)).Post("/status", h.SetApplicationStatus)
	r.Get("/{id}/history", h.ApplicationHistory)
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var req models.ApplyRequest
	if !h.decode(w, r, &req) {
		return
	}

	app, err := h.services.Applications.ApplyAsStudent(r.Context(), actorFrom(r).UserID, req.UniversityID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Application submitted", app)
}

func (h *Handler) MyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.services.Applications.ListForStudentUser(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", apps)
}

func (h *Handler) SetApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req models.SetStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	app, err := h.services.Applications.SetStatus(
		r.Context(),
		req.ApplicationID,
		models.ApplicationStatus(req.Status),
		req.Remark,
		actorFrom(r).UserID,
	)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Application status updated", app)
}

func (h *Handler) ApplicationHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.services.Applications.History(r.Context(), chi.URLParam(r, "id"), ownerScope(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", history)
}

func (h *Handler) AdminCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req models.AdminCreateApplicationRequest
	if !h.decode(w, r, &req) {
		return
	}

	app, err := h.services.Applications.Apply(r.Context(), req.StudentID, req.UniversityID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Application created", app)
}

func (h *Handler) AdminUpdateApplication(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateApplicationRequest
	if !h.decode(w, r, &req) {
		return
	}

	app, err := h.services.Applications.Update(r.Context(), chi.URLParam(r, "id"), &req, actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Application updated", app)
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.services.Applications.ListAll(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", apps)
}

func (h *Handler) ApplicationsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.services.Applications.Summary(r.Context(), r.URL.Query().Get("student_id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", summary)
}
