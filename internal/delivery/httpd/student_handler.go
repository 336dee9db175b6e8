package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/service"
)

// studentRoutes are the self-service endpoints of a logged in student.
func (h *Handler) studentRoutes(r chi.Router) {
	r.Use(h.Authenticate, RequireRole(models.RoleStudent))

	r.Post("/profile", h.SaveProfile)
	r.Post("/guardian", h.SaveGuardian)
	r.Get("/dashboard/full", h.StudentDashboard)
}

func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var req models.StudentProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	student, err := h.services.Students.SaveProfile(r.Context(), actorFrom(r).UserID, &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Profile saved", student)
}

func (h *Handler) SaveGuardian(w http.ResponseWriter, r *http.Request) {
	var req models.GuardianRequest
	if !h.decode(w, r, &req) {
		return
	}

	guardian, err := h.services.Students.SaveGuardian(r.Context(), actorFrom(r).UserID, &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Guardian saved", guardian)
}

func (h *Handler) StudentDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.services.Students.Dashboard(r.Context(), actorFrom(r).UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", dashboard)
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStudentRequest
	if !h.decode(w, r, &req) {
		return
	}

	student, err := h.services.Students.Create(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeCreated(w, "Student created", student)
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.services.Students.List(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", students)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := h.services.Students.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", student)
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStudentRequest
	if !h.decode(w, r, &req) {
		return
	}

	student, err := h.services.Students.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Student updated", student)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Students.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Student deleted", nil)
}

func (h *Handler) UploadStudentPhoto(w http.ResponseWriter, r *http.Request) {
	file, ok := h.formFile(w, r, "photo")
	if !ok {
		return
	}
	defer file.Close()

	student, err := h.services.Students.UploadPhoto(r.Context(), chi.URLParam(r, "id"), service.FileUpload{
		FileName:    file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
		Content:     file,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "Photo uploaded", map[string]string{"photo_url": student.PhotoURL})
}

func (h *Handler) StudentApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.services.Applications.ListByStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", apps)
}

func (h *Handler) StudentResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.services.IELTS.StudentResults(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", results)
}

func (h *Handler) StudentInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.services.Billing.StudentInvoices(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeSuccess(w, "", invoices)
}
